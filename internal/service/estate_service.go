package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/logger"
)

// Roles allowed to list estates.
var listingRoles = []string{domain.RoleUser, domain.RoleCompany, domain.RoleAdmin}

type EstateService interface {
	Create(ctx context.Context, owner *domain.User, in *domain.EstateInput) (*domain.Estate, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Estate, error)
	List(ctx context.Context, f domain.EstateFilter) ([]domain.Estate, error)
	Update(ctx context.Context, user *domain.User, id uuid.UUID, upd *domain.EstateUpdate) (*domain.Estate, error)
	Delete(ctx context.Context, user *domain.User, id uuid.UUID) error
}

type estateService struct {
	estates repository.EstateRepository
}

func NewEstateService(estates repository.EstateRepository) EstateService {
	return &estateService{estates: estates}
}

func (s *estateService) Create(ctx context.Context, owner *domain.User, in *domain.EstateInput) (*domain.Estate, error) {
	if err := RequireRole(owner, listingRoles...); err != nil {
		return nil, err
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	estate, err := s.estates.Create(ctx, in.ToEstate(owner.ID))
	if err != nil {
		return nil, internal("create estate", err)
	}
	logger.InfoContext(ctx, "Estate listed", "estate_id", estate.ID)
	return estate, nil
}

func (s *estateService) Get(ctx context.Context, id uuid.UUID) (*domain.Estate, error) {
	estate, err := s.estates.FindByID(ctx, id)
	if err != nil {
		return nil, internal("find estate", err)
	}
	if estate == nil {
		return nil, domain.ErrEstateNotFound
	}
	return estate, nil
}

func (s *estateService) List(ctx context.Context, f domain.EstateFilter) ([]domain.Estate, error) {
	estates, err := s.estates.List(ctx, f)
	if err != nil {
		return nil, internal("list estates", err)
	}
	return estates, nil
}

// loadOwned looks the estate up first so a missing estate is reported as
// not found rather than forbidden.
func (s *estateService) loadOwned(ctx context.Context, user *domain.User, id uuid.UUID) (*domain.Estate, error) {
	estate, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := RequireOwnership(user, estate.OwnerID); err != nil {
		return nil, err
	}
	return estate, nil
}

func (s *estateService) Update(ctx context.Context, user *domain.User, id uuid.UUID, upd *domain.EstateUpdate) (*domain.Estate, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}
	estate, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}
	upd.Apply(estate)

	updated, err := s.estates.Update(ctx, estate)
	if err != nil {
		return nil, internal("update estate", err)
	}
	return updated, nil
}

func (s *estateService) Delete(ctx context.Context, user *domain.User, id uuid.UUID) error {
	if _, err := s.loadOwned(ctx, user, id); err != nil {
		return err
	}
	if err := s.estates.Delete(ctx, id); err != nil {
		return internal("delete estate", err)
	}
	logger.InfoContext(ctx, "Estate deleted", "estate_id", id, "by", user.ID)
	return nil
}
