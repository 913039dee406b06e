package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	consentHandler "consents/internal/consent/handler"
	"consents/internal/platform/health"
	"consents/internal/platform/metrics"
	"consents/internal/platform/middleware"
	"consents/pkg/platform/httputil"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators the router wires together.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Admission gates the consent routes and the 404/405 fallbacks. Health
	// and metrics are never gated.
	Admission      func(http.Handler) http.Handler
	RequestTimeout time.Duration
	Consents       *consentHandler.Handler
	Health         *health.Handler
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(d.Logger, d.Metrics))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger, d.Metrics))

	gate := func(h http.HandlerFunc) http.HandlerFunc {
		if d.Admission == nil {
			return h
		}
		return d.Admission(h).ServeHTTP
	}

	// Unmatched routes and methods are counted like any other request.
	r.NotFound(gate(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Message: httputil.MessageNoResource})
	}))
	r.MethodNotAllowed(gate(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Message: httputil.MessageMethodNotAllowed})
	}))

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if d.Admission != nil {
			r.Use(d.Admission)
		}
		if d.RequestTimeout > 0 {
			r.Use(middleware.Timeout(d.RequestTimeout))
		}
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.BodyLimit(maxBodyBytes))
		d.Consents.Register(r)
	})

	return r
}
