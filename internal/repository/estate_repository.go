package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yuki-disu/PPD-back/internal/domain"
)

type EstateRepository interface {
	Create(ctx context.Context, e *domain.Estate) (*domain.Estate, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Estate, error)
	Update(ctx context.Context, e *domain.Estate) (*domain.Estate, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f domain.EstateFilter) ([]domain.Estate, error)
}

type estateRepository struct {
	pool *pgxpool.Pool
}

func NewEstateRepository(pool *pgxpool.Pool) EstateRepository {
	return &estateRepository{pool: pool}
}

const estateCols = `id, owner_id, location, description, type,
num_of_rooms, num_of_bathrooms, num_of_kitchens, garage_capacity, area, price,
status, for_rent, sold, visible_house,
central_heating, alarms_and_security, fire_detector, camera, parking,
electricity, gas, close_to_transportation, close_to_beach, nature_view,
created_at`

func estateDest(e *domain.Estate) []any {
	return []any{
		&e.ID, &e.OwnerID, &e.Location, &e.Description, &e.Type,
		&e.NumOfRooms, &e.NumOfBathrooms, &e.NumOfKitchens, &e.GarageCapacity, &e.Area, &e.Price,
		&e.Status, &e.ForRent, &e.Sold, &e.VisibleHouse,
		&e.CentralHeating, &e.AlarmsAndSecurity, &e.FireDetector, &e.Camera, &e.Parking,
		&e.Electricity, &e.Gas, &e.CloseToTransportation, &e.CloseToBeach, &e.NatureView,
		&e.CreatedAt,
	}
}

func scanEstate(row pgx.Row) (*domain.Estate, error) {
	var e domain.Estate
	if err := row.Scan(estateDest(&e)...); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *estateRepository) Create(ctx context.Context, e *domain.Estate) (*domain.Estate, error) {
	const q = `
		INSERT INTO estates (
			id, owner_id, location, description, type,
			num_of_rooms, num_of_bathrooms, num_of_kitchens, garage_capacity, area, price,
			status, for_rent, sold, visible_house,
			central_heating, alarms_and_security, fire_detector, camera, parking,
			electricity, gas, close_to_transportation, close_to_beach, nature_view
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25)
		RETURNING ` + estateCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	created, err := scanEstate(r.pool.QueryRow(ctx, q,
		e.ID, e.OwnerID, e.Location, e.Description, e.Type,
		e.NumOfRooms, e.NumOfBathrooms, e.NumOfKitchens, e.GarageCapacity, e.Area, e.Price,
		e.Status, e.ForRent, e.Sold, e.VisibleHouse,
		e.CentralHeating, e.AlarmsAndSecurity, e.FireDetector, e.Camera, e.Parking,
		e.Electricity, e.Gas, e.CloseToTransportation, e.CloseToBeach, e.NatureView,
	))
	if err != nil {
		return nil, translate("create estate", err)
	}
	return created, nil
}

func (r *estateRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Estate, error) {
	const q = `SELECT ` + estateCols + ` FROM estates WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	e, err := scanEstate(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find estate", err)
	}
	return e, nil
}

func (r *estateRepository) Update(ctx context.Context, e *domain.Estate) (*domain.Estate, error) {
	const q = `
		UPDATE estates
		SET location = $2, description = $3, price = $4, status = $5,
		    for_rent = $6, sold = $7, visible_house = $8
		WHERE id = $1
		RETURNING ` + estateCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanEstate(r.pool.QueryRow(ctx, q,
		e.ID, e.Location, e.Description, e.Price, e.Status, e.ForRent, e.Sold, e.VisibleHouse,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEstateNotFound
	}
	if err != nil {
		return nil, translate("update estate", err)
	}
	return updated, nil
}

func (r *estateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM estates WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return translate("delete estate", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrEstateNotFound
	}
	return nil
}

func (r *estateRepository) List(ctx context.Context, f domain.EstateFilter) ([]domain.Estate, error) {
	const q = `
		SELECT ` + estateCols + `
		FROM estates
		WHERE ($1::boolean IS NULL OR for_rent = $1)
		  AND ($2::boolean IS NULL OR visible_house = $2)
		  AND ($3::uuid IS NULL OR owner_id = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, f.ForRent, f.VisibleHouse, f.OwnerID, f.Limit, f.Offset)
	if err != nil {
		return nil, translate("list estates", err)
	}
	defer rows.Close()

	estates := make([]domain.Estate, 0, f.Limit)
	for rows.Next() {
		e, err := scanEstate(rows)
		if err != nil {
			return nil, translate("scan estate", err)
		}
		estates = append(estates, *e)
	}
	return estates, rows.Err()
}
