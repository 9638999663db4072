package service_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/repository/memory"
	"github.com/yuki-disu/PPD-back/internal/service"
	"github.com/yuki-disu/PPD-back/pkg/auth"
)

const testSecret = "service-test-secret-0123456789-0123456789"

// cheap parameters keep the suite fast
var fastParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

// ---------- Fakes ----------

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	sendErr error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.sendErr
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

var codeInLink = regexp.MustCompile(`code=([A-Z0-9]{8})`)

// lastCode pulls the recovery code out of the most recent email.
func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no email sent")
	match := codeInLink.FindStringSubmatch(m.sent[len(m.sent)-1].Text)
	require.Len(t, match, 2, "no code in email")
	return match[1]
}

type fakeBus struct {
	mu       sync.Mutex
	subjects []string
	payloads []any
}

func (b *fakeBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subjects = append(b.subjects, subject)
	b.payloads = append(b.payloads, data)
	return nil
}

func (b *fakeBus) Close() error { return nil }

func (b *fakeBus) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.subjects...)
}

// ---------- Harness ----------

type env struct {
	clock       *testClock
	store       *memory.Store
	mail        *fakeMailer
	bus         *fakeBus
	credentials *service.CredentialAuthority
	sessions    *service.SessionVerifier
	auth        service.AuthService
	recovery    service.RecoveryService
	users       service.UserService
	estates     service.EstateService
	favorites   service.FavoriteService
	bookings    service.BookingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New().WithClock(clk.Now)
	mail := &fakeMailer{}
	bus := &fakeBus{}

	issuer := auth.NewIssuer(testSecret, time.Hour, "estates-api").WithClock(clk.Now)
	creds := service.NewCredentialAuthority(issuer, fastParams)
	opts := []service.Option{service.WithClock(clk.Now)}

	return &env{
		clock:       clk,
		store:       store,
		mail:        mail,
		bus:         bus,
		credentials: creds,
		sessions:    service.NewSessionVerifier(creds, store.Users()),
		auth:        service.NewAuthService(store.Users(), creds, bus, opts...),
		recovery: service.NewRecoveryService(store.Users(), store.Recovery(), creds, mail, bus,
			service.DefaultRecoveryTTL, "https://estates.test", opts...),
		users:     service.NewUserService(store.Users(), creds, bus, opts...),
		estates:   service.NewEstateService(store.Estates()),
		favorites: service.NewFavoriteService(store.Favorites()),
		bookings:  service.NewBookingService(store.Bookings(), store.Estates(), bus, opts...),
	}
}

// signup registers a user through the auth service and returns the session.
func (e *env) signup(t *testing.T, handle, role string) *domain.LoginResponse {
	t.Helper()
	resp, err := e.auth.Signup(context.Background(), &domain.SignupRequest{
		Handle:          handle,
		Email:           handle + "@example.com",
		Password:        "password-1",
		PasswordConfirm: "password-1",
		FirstName:       handle,
		Role:            role,
	})
	require.NoError(t, err)
	return resp
}

func (e *env) user(t *testing.T, id uuid.UUID) *domain.User {
	t.Helper()
	u, err := e.store.Users().FindByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

// makeAdmin stores an admin directly; admins cannot sign up.
func (e *env) makeAdmin(t *testing.T) *domain.User {
	t.Helper()
	hash, err := e.credentials.HashPassword("admin-password")
	require.NoError(t, err)
	u, err := e.store.Users().Create(context.Background(), &domain.User{
		Handle:       "root",
		Email:        "root@example.com",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		FirstName:    "Root",
	})
	require.NoError(t, err)
	return u
}

func (e *env) listEstate(t *testing.T, owner *domain.User) *domain.Estate {
	t.Helper()
	est, err := e.estates.Create(context.Background(), owner, &domain.EstateInput{
		Location:       "12 Harbour Road",
		Description:    "Two bedroom flat near the sea",
		Type:           domain.EstateApartment,
		NumOfRooms:     2,
		NumOfBathrooms: 1,
		Area:           70,
		Price:          120,
		ForRent:        true,
	})
	require.NoError(t, err)
	return est
}

func bearer(token string) string {
	return "Bearer " + token
}
