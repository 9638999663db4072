package service

import (
	"context"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

type UserService interface {
	UpdateMe(ctx context.Context, user *domain.User, req *domain.UpdateMeRequest) (*domain.User, error)
	DeleteMe(ctx context.Context, user *domain.User, req *domain.DeleteMeRequest) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type userService struct {
	users       repository.UserRepository
	credentials *CredentialAuthority
	eventBus    events.Publisher
	opts        options
}

func NewUserService(
	users repository.UserRepository,
	credentials *CredentialAuthority,
	eventBus events.Publisher,
	opts ...Option,
) UserService {
	return &userService{
		users:       users,
		credentials: credentials,
		eventBus:    eventBus,
		opts:        buildOptions(opts),
	}
}

func (s *userService) UpdateMe(ctx context.Context, user *domain.User, req *domain.UpdateMeRequest) (*domain.User, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// admins keep their role; nobody else may become admin through here
	if req.Role != nil && user.IsAdmin() {
		req.Role = nil
	}

	updated := *user
	req.Apply(&updated)
	saved, err := s.users.UpdateProfile(ctx, &updated)
	if err != nil {
		return nil, internal("update profile", err)
	}
	return saved, nil
}

func (s *userService) DeleteMe(ctx context.Context, user *domain.User, req *domain.DeleteMeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if !s.credentials.VerifyPassword(req.Password, user.PasswordHash) {
		return domain.ErrInvalidCredentials.WithMessage("password is incorrect")
	}
	if err := s.users.Deactivate(ctx, user.ID); err != nil {
		return internal("deactivate user", err)
	}

	logger.InfoContext(ctx, "User deactivated", "user_id", user.ID)
	publish(ctx, s.eventBus, events.UserDeactivated, events.UserDeactivatedEvent{
		UserID:        user.ID.String(),
		DeactivatedAt: s.opts.now(),
	})
	return nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}
