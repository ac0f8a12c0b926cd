package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Общие HTTP-метрики
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets, // [0.005..10]
		},
		[]string{"method", "path", "status"},
	)

	// Метрики движка ролей и проверок доступа
	roleRecomputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_recomputations_total",
			Help: "Role recomputation runs by result.",
		},
		[]string{"result"},
	)

	permissionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Permission evaluations by decision.",
		},
		[]string{"decision"},
	)

	paperMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "papers_mutations_total",
			Help: "Paper lifecycle mutations by operation.",
		},
		[]string{"op"},
	)

	serviceReady = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the service reports ready, 0 otherwise.",
	})
)

// Регистрация метрик в default-регистре.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		roleRecomputations, permissionChecks, paperMutations, serviceReady,
	)
}

// Хэндлер Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRecomputation counts a role recomputation run ("ok" or "error").
func ObserveRecomputation(result string) {
	roleRecomputations.WithLabelValues(result).Inc()
}

// ObservePermissionCheck counts an access decision ("allow", "deny", "unavailable").
func ObservePermissionCheck(decision string) {
	permissionChecks.WithLabelValues(decision).Inc()
}

// ObservePaperMutation counts a paper lifecycle operation.
func ObservePaperMutation(op string) {
	paperMutations.WithLabelValues(op).Inc()
}

// SetReady publishes the readiness state.
func SetReady(ready bool) {
	if ready {
		serviceReady.Set(1)
	} else {
		serviceReady.Set(0)
	}
}

// Обёртка для измерения RPS/latency/в полёте.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// CanonicalPath сворачивает идентификаторы в :id, чтобы не раздувать кардинальность меток.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, prefix := range []string{"papers", "identities"} {
		if len(segments) >= 3 && segments[0] == "v1" && segments[1] == prefix {
			segments[2] = ":id"
			return "/" + strings.Join(segments, "/")
		}
	}
	return path
}

// statusWriter — локальная копия, чтобы знать код ответа.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush пробрасывается явно, иначе SSE за обёрткой не работает.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
