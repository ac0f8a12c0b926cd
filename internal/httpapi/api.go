package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"smena.org/api/spec"
	"smena.org/internal/access"
	"smena.org/internal/authn"
	"smena.org/internal/identity"
	"smena.org/internal/obs"
	"smena.org/internal/paper"
	"smena.org/internal/stream"
)

const serviceName = "smena-api"

// ReadyProbe — простая проверка готовности (например, ping БД).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API — HTTP слой поверх движка ролей и разрешений.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	tokens     *authn.Tokens
	identities *identity.Service
	papers     *paper.Service
	facade     *access.Facade
	events     *stream.Stream
}

// Deps bundles the engine services the API exposes.
type Deps struct {
	Tokens     *authn.Tokens
	Identities *identity.Service
	Papers     *paper.Service
	Facade     *access.Facade
	Events     *stream.Stream
}

func New(rp ReadyProbe, version string, deps Deps) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		tokens:     deps.Tokens,
		identities: deps.Identities,
		papers:     deps.Papers,
		facade:     deps.Facade,
		events:     deps.Events,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// OpenAPI YAML
	a.mux.HandleFunc("/openapi.yaml", a.OpenAPISpec)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// dev token issuance
	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	// identities
	a.mux.HandleFunc("/v1/identities", a.handleIdentitiesCollection)
	a.mux.HandleFunc("/v1/identities/", a.handleIdentityScoped)

	// papers
	a.mux.HandleFunc("/v1/papers", a.handlePapersCollection)
	a.mux.HandleFunc("/v1/papers/", a.handlePaperScoped)

	// access decisions
	a.mux.HandleFunc("/v1/access/check", a.handleAccessCheck)

	// live event feed
	a.mux.HandleFunc("/v1/events", a.Stream)

	// корень — 404
	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler возвращает полностью обёрнутый http.Handler для сервера.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = obs.Instrument(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, 50, 25)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
