package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/ratelimit"
	"github.com/yuki-disu/PPD-back/internal/service"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	authService     service.AuthService
	recoveryService service.RecoveryService
	userService     service.UserService
	estateService   service.EstateService
	favoriteService service.FavoriteService
	bookingService  service.BookingService
	sessions        *service.SessionVerifier
	limiter         ratelimit.Limiter
}

// Services groups the dependencies of the HTTP layer.
type Services struct {
	Auth      service.AuthService
	Recovery  service.RecoveryService
	Users     service.UserService
	Estates   service.EstateService
	Favorites service.FavoriteService
	Bookings  service.BookingService
	Sessions  *service.SessionVerifier
}

func New(svc Services, limiter ratelimit.Limiter) *Handlers {
	return &Handlers{
		authService:     svc.Auth,
		recoveryService: svc.Recovery,
		userService:     svc.Users,
		estateService:   svc.Estates,
		favoriteService: svc.Favorites,
		bookingService:  svc.Bookings,
		sessions:        svc.Sessions,
		limiter:         limiter,
	}
}

// Routes builds the /api/v1 subtree.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.RateLimit("auth"))
			r.Post("/signup", h.Signup)
			r.Post("/login", h.Login)
			r.Post("/forgot-password", h.ForgotPassword)
			r.Patch("/reset-password", h.ResetPassword)
			r.Patch("/reset-password/{code}", h.ResetPassword)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Patch("/update-my-password", h.UpdateMyPassword)
			r.Get("/me", h.GetMe)
			r.Patch("/me", h.UpdateMe)
			r.Delete("/me", h.DeleteMe)

			r.With(h.RestrictTo(domain.RoleAdmin)).Get("/", h.ListUsers)
		})
	})

	r.Route("/estates", func(r chi.Router) {
		r.Get("/", h.ListEstates)
		r.Get("/{id}", h.GetEstate)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.With(h.RestrictTo(domain.RoleAdmin, domain.RoleCompany, domain.RoleUser)).Post("/", h.CreateEstate)
			r.Patch("/{id}", h.UpdateEstate)
			r.Delete("/{id}", h.DeleteEstate)
		})
	})

	r.Route("/favorites", func(r chi.Router) {
		r.Use(h.RequireSession)
		r.Get("/", h.ListFavorites)
		r.Post("/", h.AddFavorite)
		r.Delete("/", h.RemoveFavorite)
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/days/{id}", h.RentDays)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Post("/", h.CreateTransaction)
			r.Get("/", h.ListMyTransactions)
		})
	})

	return r
}

type userContextKey struct{}

// CurrentUser returns the user attached by RequireSession.
func CurrentUser(ctx context.Context) *domain.User {
	if u, ok := ctx.Value(userContextKey{}).(*domain.User); ok {
		return u
	}
	return nil
}

func withUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// decodeJSON reads a single JSON object from the body. strict rejects
// fields the target does not declare.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is required")
		}
		if strict && strings.HasPrefix(err.Error(), "json: unknown field ") {
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return domain.NewValidationError("field " + field + " cannot be updated here")
		}
		return domain.NewValidationError("invalid JSON format")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, domain.NewValidationError("invalid " + name)
	}
	return id, nil
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}

func parseBoolParam(r *http.Request, name string) *bool {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
