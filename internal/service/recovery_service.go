package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/mailer"
	"github.com/yuki-disu/PPD-back/internal/metrics"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

const (
	recoveryCodeLen    = 8
	recoveryAlphabet   = "ABCDEFGHJKMNPQRSTUVWXYZ23456789" // no 0/O or 1/I/L
	maxIssueAttempts   = 3
	DefaultRecoveryTTL = 10 * time.Minute
)

type RecoveryService interface {
	// Issue emails a fresh code to the identity behind login. An unknown
	// identity yields ErrUserNotFound; callers must not reveal it.
	Issue(ctx context.Context, req *domain.ForgotPasswordRequest) error
	// Reset consumes a live code and sets the new password.
	Reset(ctx context.Context, req *domain.ResetPasswordRequest) (*domain.LoginResponse, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type recoveryService struct {
	users       repository.UserRepository
	records     repository.RecoveryRepository
	credentials *CredentialAuthority
	mailer      mailer.Service
	eventBus    events.Publisher
	ttl         time.Duration
	publicURL   string
	opts        options
}

func NewRecoveryService(
	users repository.UserRepository,
	records repository.RecoveryRepository,
	credentials *CredentialAuthority,
	mail mailer.Service,
	eventBus events.Publisher,
	ttl time.Duration,
	publicURL string,
	opts ...Option,
) RecoveryService {
	if ttl <= 0 {
		ttl = DefaultRecoveryTTL
	}
	return &recoveryService{
		users:       users,
		records:     records,
		credentials: credentials,
		mailer:      mail,
		eventBus:    eventBus,
		ttl:         ttl,
		publicURL:   publicURL,
		opts:        buildOptions(opts),
	}
}

// DigestCode is the deterministic one-way digest stored for a code, so the
// record can be found by the code alone.
func DigestCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func generateCode() (string, error) {
	buf := make([]byte, recoveryCodeLen)
	limit := big.NewInt(int64(len(recoveryAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate recovery code: %w", err)
		}
		buf[i] = recoveryAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func (s *recoveryService) Issue(ctx context.Context, req *domain.ForgotPasswordRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindByEmailOrHandle(ctx, req.Login)
	if err != nil {
		return internal("find user", err)
	}
	if user == nil || !user.Active {
		s.opts.metrics.RecordRecovery(metrics.OutcomeUnknown)
		return domain.ErrUserNotFound
	}

	code, err := s.store(ctx, user)
	if err != nil {
		return err
	}
	digest := DigestCode(code)

	link, err := mailer.ResetLink(s.publicURL, code, user.Email)
	if err != nil {
		s.discard(ctx, user, digest)
		return internal("build reset link", err)
	}
	msg := mailer.PasswordResetEmail(user.Email, user.FirstName, code, link, s.ttl)
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "Failed to send recovery email", "error", err, "user_id", user.ID)
		s.discard(ctx, user, digest)
		s.opts.metrics.RecordRecovery(metrics.OutcomeFailed)
		return domain.ErrDelivery.Wrap(err)
	}

	logger.InfoContext(ctx, "Recovery code issued", "user_id", user.ID)
	s.opts.metrics.RecordRecovery(metrics.OutcomeSuccess)
	return nil
}

// store writes a new record, replacing the user's previous one. A digest that
// collides with another user's live code is retried with a fresh code.
func (s *recoveryService) store(ctx context.Context, user *domain.User) (string, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return "", internal("issue recovery code", err)
		}
		now := s.opts.now()
		err = s.records.UpsertForUser(ctx, &domain.RecoveryRecord{
			UserID:    user.ID,
			CodeHash:  DigestCode(code),
			ExpiresAt: now.Add(s.ttl),
			CreatedAt: now,
		})
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			return "", internal("store recovery code", err)
		}
		return code, nil
	}
	return "", internal("store recovery code", errors.New("exhausted attempts on digest collisions"))
}

// discard removes the record whose code never reached the user. A record
// replaced by a later request is left alone.
func (s *recoveryService) discard(ctx context.Context, user *domain.User, digest string) {
	// the request context may already be cancelled
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.records.DeleteForUserDigest(ctx, user.ID, digest); err != nil {
		logger.ErrorContext(ctx, "Failed to delete undelivered recovery code", "error", err, "user_id", user.ID)
	}
}

func (s *recoveryService) Reset(ctx context.Context, req *domain.ResetPasswordRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	digest := DigestCode(req.Code)
	now := s.opts.now()
	rec, err := s.records.FindByDigest(ctx, digest, now)
	if err != nil {
		return nil, internal("find recovery record", err)
	}
	if rec == nil {
		return nil, domain.ErrInvalidOrExpiredCode
	}

	hash, err := s.credentials.HashPassword(req.Password)
	if err != nil {
		return nil, internal("reset password", err)
	}

	ok, err := s.records.ConsumeAndSetPassword(ctx, rec.UserID, digest, hash, now)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, internal("consume recovery code", err)
	}
	if !ok {
		// consumed concurrently, or expired between lookup and consume
		return nil, domain.ErrInvalidOrExpiredCode
	}

	user, err := s.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, internal("find user", err)
	}
	if user == nil {
		return nil, domain.ErrSubjectGone
	}

	logger.InfoContext(ctx, "Password reset with recovery code", "user_id", user.ID)
	publish(ctx, s.eventBus, events.UserPasswordChanged, events.PasswordChangedEvent{
		UserID:    user.ID.String(),
		Reason:    "reset",
		ChangedAt: now,
	})

	return newSession(s.credentials, user)
}

func (s *recoveryService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.records.DeleteExpired(ctx, s.opts.now())
	if err != nil {
		return 0, internal("cleanup recovery codes", err)
	}
	return n, nil
}
