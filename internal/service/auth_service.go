package service

import (
	"context"
	"time"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/metrics"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.LoginResponse, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest) (*domain.LoginResponse, error)
}

type authService struct {
	users       repository.UserRepository
	credentials *CredentialAuthority
	eventBus    events.Publisher
	opts        options
}

func NewAuthService(
	users repository.UserRepository,
	credentials *CredentialAuthority,
	eventBus events.Publisher,
	opts ...Option,
) AuthService {
	return &authService{
		users:       users,
		credentials: credentials,
		eventBus:    eventBus,
		opts:        buildOptions(opts),
	}
}

func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.credentials.HashPassword(req.Password)
	if err != nil {
		return nil, internal("signup", err)
	}

	user, err := s.users.Create(ctx, &domain.User{
		Handle:       req.Handle,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
	})
	if err != nil {
		return nil, internal("create user", err)
	}

	logger.InfoContext(ctx, "User signed up", "user_id", user.ID, "role", user.Role)
	publish(ctx, s.eventBus, events.UserSignedUp, events.UserSignedUpEvent{
		UserID:    user.ID.String(),
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})

	return s.session(user)
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmailOrHandle(ctx, req.Login)
	if err != nil {
		return nil, internal("find user", err)
	}
	// unknown and inactive accounts still pay for a full compare
	var digest string
	if user != nil {
		digest = user.PasswordHash
	}
	valid := s.credentials.VerifyPassword(req.Password, digest)
	if user == nil || !user.Active || !valid {
		s.opts.metrics.RecordLogin(metrics.OutcomeInvalid)
		return nil, domain.ErrInvalidCredentials
	}

	if s.credentials.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, req.Password)
	}

	s.opts.metrics.RecordLogin(metrics.OutcomeSuccess)
	return s.session(user)
}

// upgradeHash moves a legacy digest to argon2id. Failure leaves the old
// digest in place, which still verifies.
func (s *authService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := s.credentials.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		logger.WarnContext(ctx, "Failed to upgrade legacy password hash", "error", err, "user_id", user.ID)
		return
	}
	user.PasswordHash = hash
	logger.InfoContext(ctx, "Upgraded legacy password hash", "user_id", user.ID)
}

func (s *authService) ChangePassword(ctx context.Context, user *domain.User, req *domain.ChangePasswordRequest) (*domain.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// The caller's copy may be stale if a reset happened mid-request.
	current, err := s.users.FindByID(ctx, user.ID)
	if err != nil {
		return nil, internal("find user", err)
	}
	if current == nil || !current.Active {
		return nil, domain.ErrSubjectGone
	}
	if !s.credentials.VerifyPassword(req.PasswordCurrent, current.PasswordHash) {
		return nil, domain.ErrInvalidCredentials.WithMessage("your current password is wrong")
	}

	hash, err := s.credentials.HashPassword(req.Password)
	if err != nil {
		return nil, internal("change password", err)
	}
	changedAt := s.opts.now()
	if err := s.users.UpdatePasswordAndTimestamp(ctx, current.ID, hash, changedAt); err != nil {
		return nil, internal("update password", err)
	}
	current.PasswordHash = hash
	current.PasswordChangedAt = &changedAt

	logger.InfoContext(ctx, "Password changed", "user_id", current.ID)
	publish(ctx, s.eventBus, events.UserPasswordChanged, events.PasswordChangedEvent{
		UserID:    current.ID.String(),
		Reason:    "update",
		ChangedAt: changedAt,
	})

	return s.session(current)
}

func (s *authService) session(user *domain.User) (*domain.LoginResponse, error) {
	return newSession(s.credentials, user)
}

func newSession(credentials *CredentialAuthority, user *domain.User) (*domain.LoginResponse, error) {
	token, claims, err := credentials.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.ToUserInfo(),
	}, nil
}

// publish sends an event without failing the caller; the state change it
// describes has already been committed.
func publish(ctx context.Context, bus events.Publisher, subject string, payload any) {
	if bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "subject", subject, "error", err)
	}
}
