package handlers

import (
	"net/http"

	"github.com/yuki-disu/PPD-back/internal/service"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

// RequireSession authenticates the bearer token against current storage and
// attaches the user to the request context.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, err := h.sessions.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		ctx := logger.WithUserID(r.Context(), user.ID.String())
		ctx = withUser(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RestrictTo admits only the given roles. It must run after RequireSession.
func (h *Handlers) RestrictTo(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := service.RequireRole(CurrentUser(r.Context()), roles...); err != nil {
				writeServiceError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles by client IP within the named scope.
func (h *Handlers) RateLimit(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if h.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := scope + ":" + getClientIP(r)
			if !h.limiter.Allow(r.Context(), key) {
				logger.WarnContext(r.Context(), "Rate limit exceeded", "scope", scope)
				writeFail(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMIT_EXCEEDED", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
