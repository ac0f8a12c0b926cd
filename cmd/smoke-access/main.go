package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// smoke-access прогоняет сквозной сценарий против работающего API:
// владелец регистрирует бизнес, нанимает работника, работник получает
// доступ к табелю, увольнение доступ отзывает.
func main() {
	base := os.Getenv("SMENA_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c := &client{base: base, http: &http.Client{Timeout: 10 * time.Second}}
	bizCtx := fmt.Sprintf("biz-smoke-%d", rand.New(rand.NewSource(time.Now().UnixNano())).Intn(1_000_000))

	owner, err := c.register(ctx, "Smoke Owner")
	if err != nil {
		log.Fatalf("register owner: %v", err)
	}
	worker, err := c.register(ctx, "Smoke Worker")
	if err != nil {
		log.Fatalf("register worker: %v", err)
	}

	// Владелец регистрирует бизнес и получает роль owner.
	if _, err := c.createPaper(ctx, owner, map[string]any{
		"type":                "business_registration",
		"business_context_id": bizCtx,
	}); err != nil {
		log.Fatalf("business registration: %v", err)
	}
	if err := c.expectRole(ctx, owner, "owner", true); err != nil {
		log.Fatalf("owner role: %v", err)
	}

	// Владелец оформляет трудовой договор работнику.
	contractID, err := c.createPaper(ctx, owner, map[string]any{
		"owner_id":            worker.id,
		"type":                "employment_contract",
		"business_context_id": bizCtx,
	})
	if err != nil {
		log.Fatalf("employment contract: %v", err)
	}
	if err := c.expectRole(ctx, worker, "worker", true); err != nil {
		log.Fatalf("worker role: %v", err)
	}

	// У работника есть доступ к своему табелю в этом бизнесе, но не к
	// утверждению чужих.
	if err := c.expectAccess(ctx, worker, "attendance", "create", bizCtx, true); err != nil {
		log.Fatalf("attendance create: %v", err)
	}
	if err := c.expectAccess(ctx, worker, "attendance", "approve", bizCtx, false); err != nil {
		log.Fatalf("attendance approve: %v", err)
	}
	// В чужом контексте роль не действует.
	if err := c.expectAccess(ctx, worker, "attendance", "create", bizCtx+"-other", false); err != nil {
		log.Fatalf("attendance create (foreign context): %v", err)
	}

	// Увольнение: владелец деактивирует договор, роль и доступ пропадают.
	if err := c.deletePaper(ctx, owner, contractID); err != nil {
		log.Fatalf("deactivate contract: %v", err)
	}
	if err := c.expectRole(ctx, worker, "worker", false); err != nil {
		log.Fatalf("worker role revoked: %v", err)
	}
	if err := c.expectAccess(ctx, worker, "attendance", "create", bizCtx, false); err != nil {
		log.Fatalf("attendance create revoked: %v", err)
	}

	fmt.Printf("✅ access smoke test passed: owner=%s worker=%s context=%s\n", owner.id, worker.id, bizCtx)
}

type principal struct {
	id    string
	token string
}

type client struct {
	base string
	http *http.Client
}

func (c *client) register(ctx context.Context, name string) (principal, error) {
	var idn struct {
		ID string `json:"id"`
	}
	status, err := c.do(ctx, principal{}, http.MethodPost, "/v1/identities",
		map[string]any{"display_name": name}, &idn)
	if err != nil {
		return principal{}, err
	}
	if status != http.StatusCreated {
		return principal{}, fmt.Errorf("status %d", status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	status, err = c.do(ctx, principal{}, http.MethodPost, "/v1/auth/token",
		map[string]any{"identity_id": idn.ID}, &tok)
	if err != nil {
		return principal{}, err
	}
	if status == http.StatusServiceUnavailable {
		// API без секрета: доверяем заголовку X-Identity-Id.
		return principal{id: idn.ID}, nil
	}
	if status != http.StatusOK {
		return principal{}, fmt.Errorf("token: status %d", status)
	}
	return principal{id: idn.ID, token: tok.AccessToken}, nil
}

func (c *client) createPaper(ctx context.Context, p principal, payload map[string]any) (string, error) {
	var paper struct {
		ID string `json:"id"`
	}
	status, err := c.do(ctx, p, http.MethodPost, "/v1/papers", payload, &paper)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("status %d", status)
	}
	return paper.ID, nil
}

func (c *client) deletePaper(ctx context.Context, p principal, id string) error {
	status, err := c.do(ctx, p, http.MethodDelete, "/v1/papers/"+id, nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

func (c *client) expectRole(ctx context.Context, p principal, role string, want bool) error {
	var out struct {
		Roles []struct {
			Role string `json:"role"`
		} `json:"roles"`
	}
	status, err := c.do(ctx, p, http.MethodGet, "/v1/identities/"+p.id+"/roles", nil, &out)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	var got bool
	for _, r := range out.Roles {
		if r.Role == role {
			got = true
		}
	}
	if got != want {
		return fmt.Errorf("role %s: have=%v want=%v", role, got, want)
	}
	return nil
}

func (c *client) expectAccess(ctx context.Context, p principal, resource, action, bizCtx string, want bool) error {
	var decision struct {
		Allowed bool   `json:"allowed"`
		Reason  string `json:"reason"`
	}
	status, err := c.do(ctx, p, http.MethodPost, "/v1/access/check", map[string]any{
		"resource":            resource,
		"action":              action,
		"business_context_id": bizCtx,
	}, &decision)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	if decision.Allowed != want {
		return fmt.Errorf("%s:%s allowed=%v want=%v (%s)", resource, action, decision.Allowed, want, decision.Reason)
	}
	return nil
}

func (c *client) do(ctx context.Context, p principal, method, path string, payload, out any) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	} else if p.id != "" {
		req.Header.Set("X-Identity-Id", p.id)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
