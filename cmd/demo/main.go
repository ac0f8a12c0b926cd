package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"smena.org/internal/sim"
)

// demo регистрирует персонал сценария, раздаёт бумаги и задаёт вопросы
// авторизации против работающего API. Инструмент для ручной проверки и
// нагрузочных прогонов.
func main() {
	var (
		baseURL  = flag.String("base-url", "http://localhost:8080", "API base URL")
		workers  = flag.Int("workers", 4, "Concurrent worker count")
		duration = flag.Duration("duration", time.Minute, "Duration of the simulation")
		seed     = flag.Int64("seed", 0, "Random seed (0 = wall clock)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	generator := sim.NewGenerator(*seed)
	scenario := generator.Scenario()
	log.Printf("Launching demo %q: base=%s workers=%d duration=%s", scenario.Name, *baseURL, *workers, *duration)

	client := &apiClient{
		base: *baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}

	// Сначала регистрируем весь персонал, чтобы воркерам было с кем работать.
	cast := make(map[string]principal, len(scenario.People))
	for _, person := range scenario.People {
		p, err := client.register(ctx, person.Label)
		if err != nil {
			log.Fatalf("register %s: %v", person.Label, err)
		}
		cast[person.Label] = p
		log.Printf("registered %s as %s", person.Label, p.id)
	}

	var counter sim.Counter
	var counterMu sync.Mutex
	var failures int64
	var rateLimited int64

	var wg sync.WaitGroup
	deadline := time.Now().Add(*duration)

	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id*7919)))
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					return
				default:
				}

				if rnd.Intn(3) == 0 {
					grant := generator.NextGrant()
					p := cast[grant.PersonLabel]
					if err := client.filePaper(ctx, p, grant); err != nil {
						atomic.AddInt64(&failures, 1)
						if errors.Is(err, errRateLimited) {
							atomic.AddInt64(&rateLimited, 1)
							time.Sleep(250 * time.Millisecond)
						}
					} else {
						counterMu.Lock()
						counter.AddGrant(grant)
						counterMu.Unlock()
						log.Printf("worker %d: %s", id, grant.Describe())
					}
				} else {
					probe := generator.NextProbe()
					p := cast[probe.PersonLabel]
					allowed, err := client.checkAccess(ctx, p, probe)
					if err != nil {
						atomic.AddInt64(&failures, 1)
						if errors.Is(err, errRateLimited) {
							atomic.AddInt64(&rateLimited, 1)
							time.Sleep(250 * time.Millisecond)
						}
					} else {
						counterMu.Lock()
						counter.AddProbe(allowed)
						counterMu.Unlock()
					}
				}
				time.Sleep(time.Duration(50+rnd.Intn(150)) * time.Millisecond)
			}
		}(i)
	}

	wg.Wait()

	counterMu.Lock()
	defer counterMu.Unlock()
	log.Printf("Run complete: %d grants, %d probes (%.0f%% allowed), failures=%d rate_limited=%d",
		counter.Grants, counter.Probes, counter.AllowRate()*100, failures, rateLimited)
	for typ, n := range counter.GrantsByTyp {
		log.Printf("  %s: %d", typ, n)
	}
}

var errRateLimited = errors.New("rate limited")

type principal struct {
	id    string
	token string
}

type apiClient struct {
	base string
	http *http.Client
}

// register creates an identity and obtains a bearer token for it. When the
// API runs without an auth secret the token endpoint answers 503 and the
// demo falls back to the X-Identity-Id header.
func (c *apiClient) register(ctx context.Context, displayName string) (principal, error) {
	var idn struct {
		ID string `json:"id"`
	}
	status, err := c.do(ctx, principal{}, http.MethodPost, "/v1/identities",
		map[string]any{"display_name": displayName}, &idn)
	if err != nil {
		return principal{}, err
	}
	if status != http.StatusCreated {
		return principal{}, fmt.Errorf("register: status %d", status)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	status, err = c.do(ctx, principal{}, http.MethodPost, "/v1/auth/token",
		map[string]any{"identity_id": idn.ID}, &tok)
	if err != nil {
		return principal{}, err
	}
	switch status {
	case http.StatusOK:
		return principal{id: idn.ID, token: tok.AccessToken}, nil
	case http.StatusServiceUnavailable:
		return principal{id: idn.ID}, nil
	default:
		return principal{}, fmt.Errorf("token: status %d", status)
	}
}

func (c *apiClient) filePaper(ctx context.Context, p principal, g sim.Grant) error {
	payload := map[string]any{
		"type":        g.PaperType,
		"valid_until": time.Now().UTC().Add(g.ValidFor).Format(time.RFC3339),
		"payload":     map[string]any{"note": "demo grant"},
	}
	if g.BusinessContextID != "" {
		payload["business_context_id"] = g.BusinessContextID
	}
	status, err := c.do(ctx, p, http.MethodPost, "/v1/papers", payload, nil)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		return errRateLimited
	}
	if status != http.StatusCreated {
		return fmt.Errorf("file paper: status %d", status)
	}
	return nil
}

func (c *apiClient) checkAccess(ctx context.Context, p principal, probe sim.Probe) (bool, error) {
	var decision struct {
		Allowed bool `json:"allowed"`
	}
	status, err := c.do(ctx, p, http.MethodPost, "/v1/access/check", map[string]any{
		"resource":            probe.Resource,
		"action":              probe.Action,
		"business_context_id": probe.BusinessContextID,
	}, &decision)
	if err != nil {
		return false, err
	}
	if status == http.StatusTooManyRequests {
		return false, errRateLimited
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("access check: status %d", status)
	}
	return decision.Allowed, nil
}

func (c *apiClient) do(ctx context.Context, p principal, method, path string, payload, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
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
