package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/handlers"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/ratelimit"
	"github.com/yuki-disu/PPD-back/internal/repository/memory"
	"github.com/yuki-disu/PPD-back/internal/service"
	"github.com/yuki-disu/PPD-back/pkg/auth"
	"github.com/yuki-disu/PPD-back/pkg/events"
)

// ---------- Mocks ----------

type mockMailer struct {
	mu      sync.Mutex
	last    mailer.Message
	sent    int
	sendErr error
}

func (m *mockMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = msg
	m.sent++
	return m.sendErr
}

var codeRE = regexp.MustCompile(`code=([A-Z0-9]{8})`)

func (m *mockMailer) code(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	match := codeRE.FindStringSubmatch(m.last.Text)
	require.Len(t, match, 2)
	return match[1]
}

// ---------- Helpers ----------

type testServer struct {
	router http.Handler
	store  *memory.Store
	mail   *mockMailer
}

func newTestServer(t *testing.T, limiter ratelimit.Limiter) *testServer {
	t.Helper()
	store := memory.New()
	mail := &mockMailer{}
	params := &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	creds := service.NewCredentialAuthority(auth.NewIssuer("handler-test-secret-0123456789-0123456789", time.Hour, "estates-api"), params)
	bus := events.NoopBus{}

	h := handlers.New(handlers.Services{
		Auth:      service.NewAuthService(store.Users(), creds, bus),
		Recovery:  service.NewRecoveryService(store.Users(), store.Recovery(), creds, mail, bus, 0, "https://estates.test"),
		Users:     service.NewUserService(store.Users(), creds, bus),
		Estates:   service.NewEstateService(store.Estates()),
		Favorites: service.NewFavoriteService(store.Favorites()),
		Bookings:  service.NewBookingService(store.Bookings(), store.Estates(), bus),
		Sessions:  service.NewSessionVerifier(creds, store.Users()),
	}, limiter)

	r := chi.NewRouter()
	r.Mount("/api/v1", h.Routes())
	return &testServer{router: r, store: store, mail: mail}
}

type envelope struct {
	Status  string          `json:"status"`
	Results *int            `json:"results"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Errors  []string        `json:"errors"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

func (s *testServer) signup(t *testing.T, handle, role string) session {
	t.Helper()
	rr, env := s.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"username":        handle,
		"email":           handle + "@example.com",
		"password":        "password-1",
		"passwordConfirm": "password-1",
		"firstname":       handle,
		"role":            role,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Equal(t, "success", env.Status)

	var sess session
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	return sess
}

func (s *testServer) createEstate(t *testing.T, token string) string {
	t.Helper()
	rr, env := s.do(t, http.MethodPost, "/api/v1/estates", token, map[string]any{
		"location":      "12 Harbour Road",
		"description":   "Two bedroom flat near the sea",
		"type":          "apartment",
		"numOfRooms":    2,
		"numOfBathroom": 1,
		"area":          70,
		"price":         120,
		"for_rent":      true,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var data struct {
		Estate struct {
			ID string `json:"id"`
		} `json:"estate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Estate.ID
}

// ---------- Tests ----------

func TestSignupLoginAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	sess := s.signup(t, "alice", "")
	require.Equal(t, "user", sess.User.Role)

	rr, env := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "alice@example.com", "password": "password-1",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "success", env.Status)

	rr, env = s.do(t, http.MethodGet, "/api/v1/users/me", sess.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, string(env.Data), `"username":"alice"`)
	require.NotContains(t, rr.Body.String(), "argon2id")
}

func TestLoginFailuresUseFailEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "alice", "")

	rr, env := s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong-password",
	})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "fail", env.Status)
	require.Equal(t, "INVALID_CREDENTIALS", env.Code)

	rr, env = s.do(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.NotEmpty(t, env.Errors)
}

func TestSignupDuplicateIsConflict(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "alice", "")

	rr, env := s.do(t, http.MethodPost, "/api/v1/users/signup", "", map[string]string{
		"username": "alice2", "email": "alice@example.com",
		"password": "password-1", "passwordConfirm": "password-1", "firstname": "A",
	})
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Equal(t, "email is already in use", env.Message)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, nil)

	rr, env := s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "MISSING_TOKEN", env.Code)

	rr, env = s.do(t, http.MethodGet, "/api/v1/users/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "INVALID_TOKEN", env.Code)
}

func TestAdminOnlyUserList(t *testing.T) {
	s := newTestServer(t, nil)
	sess := s.signup(t, "alice", "")

	rr, env := s.do(t, http.MethodGet, "/api/v1/users", sess.Token, nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Equal(t, "FORBIDDEN", env.Code)
}

func TestForgotPasswordIsUniform(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "alice", "")

	known, knownEnv := s.do(t, http.MethodPost, "/api/v1/users/forgot-password", "", map[string]string{"email": "alice@example.com"})
	unknown, unknownEnv := s.do(t, http.MethodPost, "/api/v1/users/forgot-password", "", map[string]string{"email": "ghost@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, known.Code, unknown.Code)
	require.Equal(t, knownEnv, unknownEnv)
	require.Equal(t, 1, s.mail.sent)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "alice", "")
	s.mail.sendErr = errors.New("smtp down")

	rr, env := s.do(t, http.MethodPost, "/api/v1/users/forgot-password", "", map[string]string{"email": "alice"})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Equal(t, "error", env.Status)
	require.Equal(t, "DELIVERY_FAILED", env.Code)
	require.NotContains(t, rr.Body.String(), "smtp down")
}

func TestResetPasswordFlow(t *testing.T) {
	s := newTestServer(t, nil)
	old := s.signup(t, "alice", "")

	rr, _ := s.do(t, http.MethodPost, "/api/v1/users/forgot-password", "", map[string]string{"email": "alice"})
	require.Equal(t, http.StatusOK, rr.Code)
	code := s.mail.code(t)

	rr, env := s.do(t, http.MethodPatch, "/api/v1/users/reset-password/"+code, "", map[string]string{
		"password": "brand-new-pw", "passwordConfirm": "brand-new-pw",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var fresh session
	require.NoError(t, json.Unmarshal(env.Data, &fresh))

	rr, env = s.do(t, http.MethodGet, "/api/v1/users/me", old.Token, nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "PASSWORD_CHANGED", env.Code)

	rr, _ = s.do(t, http.MethodGet, "/api/v1/users/me", fresh.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = s.do(t, http.MethodPatch, "/api/v1/users/reset-password", "", map[string]string{
		"code": code, "password": "other-new-pw", "passwordConfirm": "other-new-pw",
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "INVALID_OR_EXPIRED_CODE", env.Code)
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	s := newTestServer(t, nil)
	sess := s.signup(t, "alice", "")

	rr, env := s.do(t, http.MethodPatch, "/api/v1/users/me", sess.Token, map[string]string{"password": "sneaky-pass"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "fail", env.Status)

	rr, _ = s.do(t, http.MethodPatch, "/api/v1/users/me", sess.Token, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr, env = s.do(t, http.MethodPatch, "/api/v1/users/me", sess.Token, map[string]string{"firstname": "Alicia"})
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, string(env.Data), "Alicia")
}

func TestEstateOwnership(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.signup(t, "owner", "company")
	other := s.signup(t, "other", "")
	id := s.createEstate(t, owner.Token)

	rr, _ := s.do(t, http.MethodPatch, "/api/v1/estates/"+id, other.Token, map[string]any{"price": 1})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = s.do(t, http.MethodPatch, "/api/v1/estates/"+id, owner.Token, map[string]any{"price": 150})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/api/v1/estates/"+id, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/estates/"+id, owner.Token, nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/estates/"+id, owner.Token, nil)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = s.do(t, http.MethodGet, "/api/v1/estates/not-a-uuid", "", nil)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTransactions(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.signup(t, "owner", "company")
	renter := s.signup(t, "renter", "")
	id := s.createEstate(t, owner.Token)

	book := func(start, end string) (*httptest.ResponseRecorder, envelope) {
		return s.do(t, http.MethodPost, "/api/v1/transactions", renter.Token, map[string]any{
			"estate_id": id, "transaction_type": "rent", "amount": 100,
			"startDate": start, "endDate": end,
		})
	}

	rr, env := book("2025-06-01", "2025-06-05")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	require.Contains(t, string(env.Data), `"startDate":"2025-06-01"`)

	rr, env = book("2025-06-05", "2025-06-08")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "OVERLAPPING_BOOKING", env.Code)
	require.Equal(t, "overlapping rental period", env.Message)

	rr, _ = book("2025-06-06", "2025-06-08")
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env = s.do(t, http.MethodGet, "/api/v1/transactions/days/"+id, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 2, *env.Results)
	require.Contains(t, string(env.Data), `{"startDate":"2025-06-06","endDate":"2025-06-08"}`)

	rr, env = s.do(t, http.MethodGet, "/api/v1/transactions", renter.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 2, *env.Results)

	rr, _ = s.do(t, http.MethodPost, "/api/v1/transactions", "", map[string]any{"estate_id": id})
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, _ = s.do(t, http.MethodPost, "/api/v1/transactions", renter.Token, map[string]any{
		"estate_id": "7f9c0d52-3a55-4a45-9d7c-5c1c5d1e2f30", "transaction_type": "buy", "amount": 1,
	})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestFavoritesEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	owner := s.signup(t, "owner", "company")
	alice := s.signup(t, "alice", "")
	id := s.createEstate(t, owner.Token)

	rr, _ := s.do(t, http.MethodPost, "/api/v1/favorites", alice.Token, map[string]string{"estate_id": id})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := s.do(t, http.MethodGet, "/api/v1/favorites", alice.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, *env.Results)

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/favorites", alice.Token, map[string]string{"estate_id": id})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr, _ = s.do(t, http.MethodDelete, "/api/v1/favorites", alice.Token, map[string]string{"estate_id": id})
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.Policy{Attempts: 2, Window: time.Hour})
	defer limiter.Close()
	s := newTestServer(t, limiter)

	body := map[string]string{"email": "nobody@example.com", "password": "whatever-1"}
	for i := 0; i < 2; i++ {
		rr, _ := s.do(t, http.MethodPost, "/api/v1/users/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	}
	rr, env := s.do(t, http.MethodPost, "/api/v1/users/login", "", body)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Equal(t, "RATE_LIMIT_EXCEEDED", env.Code)
}
