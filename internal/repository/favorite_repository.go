package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/database"
)

type FavoriteRepository interface {
	Add(ctx context.Context, userID, estateID uuid.UUID) (*domain.Favorite, error)
	// Remove reports whether a favorite was deleted.
	Remove(ctx context.Context, userID, estateID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Estate, error)
}

type favoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(pool *pgxpool.Pool) FavoriteRepository {
	return &favoriteRepository{pool: pool}
}

func (r *favoriteRepository) Add(ctx context.Context, userID, estateID uuid.UUID) (*domain.Favorite, error) {
	const q = `
		INSERT INTO favorites (user_id, estate_id)
		VALUES ($1, $2)
		RETURNING user_id, estate_id, created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var f domain.Favorite
	err := r.pool.QueryRow(ctx, q, userID, estateID).Scan(&f.UserID, &f.EstateID, &f.CreatedAt)
	if err != nil {
		if code, _ := database.PgErrorCode(err); code == database.ForeignKeyViolation {
			return nil, domain.ErrEstateNotFound
		}
		return nil, translate("add favorite", err)
	}
	return &f, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, estateID uuid.UUID) (bool, error) {
	const q = `DELETE FROM favorites WHERE user_id = $1 AND estate_id = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, userID, estateID)
	if err != nil {
		return false, translate("remove favorite", err)
	}
	return ct.RowsAffected() > 0, nil
}

func (r *favoriteRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Estate, error) {
	const q = `
		SELECT ` + estateColsQualified + `
		FROM favorites f
		JOIN estates e ON e.id = f.estate_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, translate("list favorites", err)
	}
	defer rows.Close()

	var estates []domain.Estate
	for rows.Next() {
		e, err := scanEstate(rows)
		if err != nil {
			return nil, translate("scan favorite", err)
		}
		estates = append(estates, *e)
	}
	return estates, rows.Err()
}

const estateColsQualified = `e.id, e.owner_id, e.location, e.description, e.type,
e.num_of_rooms, e.num_of_bathrooms, e.num_of_kitchens, e.garage_capacity, e.area, e.price,
e.status, e.for_rent, e.sold, e.visible_house,
e.central_heating, e.alarms_and_security, e.fire_detector, e.camera, e.parking,
e.electricity, e.gas, e.close_to_transportation, e.close_to_beach, e.nature_view,
e.created_at`
