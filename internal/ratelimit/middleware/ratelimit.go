package middleware

import (
	"context"
	"net/http"

	platformMW "consents/internal/platform/middleware"
	"consents/internal/ratelimit/service/admission"
	"consents/pkg/platform/httputil"
)

// Admitter decides whether a client identified by key may proceed.
type Admitter interface {
	Admit(ctx context.Context, key string) admission.Decision
}

type Middleware struct {
	admitter Admitter
}

func New(admitter Admitter) *Middleware {
	return &Middleware{admitter: admitter}
}

// Admission gates next behind the per-client admission check. The client key is
// the host part of the connection's remote address. Rejected requests get a 429
// and never reach next; admitted requests are forwarded untouched.
func (m *Middleware) Admission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := m.admitter.Admit(r.Context(), platformMW.ClientIP(r))
		if !decision.Allowed {
			httputil.WriteTooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
