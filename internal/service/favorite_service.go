package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/repository"
)

type FavoriteService interface {
	Add(ctx context.Context, user *domain.User, estateID uuid.UUID) (*domain.Favorite, error)
	Remove(ctx context.Context, user *domain.User, estateID uuid.UUID) error
	List(ctx context.Context, user *domain.User) ([]domain.Estate, error)
}

type favoriteService struct {
	favorites repository.FavoriteRepository
}

func NewFavoriteService(favorites repository.FavoriteRepository) FavoriteService {
	return &favoriteService{favorites: favorites}
}

func (s *favoriteService) Add(ctx context.Context, user *domain.User, estateID uuid.UUID) (*domain.Favorite, error) {
	if estateID == uuid.Nil {
		return nil, domain.NewValidationError("estate_id is required")
	}
	fav, err := s.favorites.Add(ctx, user.ID, estateID)
	if err != nil {
		return nil, internal("add favorite", err)
	}
	return fav, nil
}

func (s *favoriteService) Remove(ctx context.Context, user *domain.User, estateID uuid.UUID) error {
	removed, err := s.favorites.Remove(ctx, user.ID, estateID)
	if err != nil {
		return internal("remove favorite", err)
	}
	if !removed {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

func (s *favoriteService) List(ctx context.Context, user *domain.User) ([]domain.Estate, error) {
	estates, err := s.favorites.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, internal("list favorites", err)
	}
	return estates, nil
}
