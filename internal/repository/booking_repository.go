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

// OverlapFunc decides whether two rental windows conflict.
type OverlapFunc func(a, b domain.DateRange) bool

type BookingRepository interface {
	FindRentBookingsForEstate(ctx context.Context, estateID uuid.UUID) ([]domain.Booking, error)
	// InsertWithConflictCheck inserts b only if no live rent booking of the
	// same estate overlaps it. Check and insert are one atomic unit.
	InsertWithConflictCheck(ctx context.Context, b *domain.Booking, overlaps OverlapFunc) (*domain.Booking, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingCols = `id, estate_id, buyer_id, seller_id, transaction_type, amount,
start_date, end_date, transaction_date, canceled_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.EstateID, &b.BuyerID, &b.SellerID, &b.Type, &b.Amount,
		&b.StartDate, &b.EndDate, &b.TransactionDate, &b.CanceledAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

const rentForEstateQuery = `
	SELECT ` + bookingCols + `
	FROM transactions
	WHERE estate_id = $1 AND transaction_type = 'rent' AND canceled_at IS NULL
	ORDER BY start_date`

func (r *bookingRepository) FindRentBookingsForEstate(ctx context.Context, estateID uuid.UUID) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, rentForEstateQuery, estateID)
	if err != nil {
		return nil, translate("find rent bookings", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, translate("scan rent bookings", err)
	}
	return bookings, nil
}

// InsertWithConflictCheck serializes writers per estate by locking the estate
// row before reading its rentals. The exclusion constraint on transactions
// rejects anything that slips past, surfacing as ErrOverlap.
func (r *bookingRepository) InsertWithConflictCheck(ctx context.Context, b *domain.Booking, overlaps OverlapFunc) (*domain.Booking, error) {
	const lockEstate = `SELECT id FROM estates WHERE id = $1 FOR UPDATE`
	const insert = `
		INSERT INTO transactions (id, estate_id, buyer_id, seller_id, transaction_type, amount, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + bookingCols

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, translate("begin booking", err)
	}
	defer tx.Rollback(ctx)

	var locked uuid.UUID
	if err := tx.QueryRow(ctx, lockEstate, b.EstateID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEstateNotFound
		}
		return nil, translate("lock estate", err)
	}

	if want, ok := b.Interval(); ok && b.Type == domain.BookingRent {
		rows, err := tx.Query(ctx, rentForEstateQuery, b.EstateID)
		if err != nil {
			return nil, translate("find rent bookings", err)
		}
		existing, err := collectBookings(rows)
		if err != nil {
			return nil, translate("scan rent bookings", err)
		}
		for i := range existing {
			if have, ok := existing[i].Interval(); ok && overlaps(have, want) {
				return nil, domain.ErrOverlap
			}
		}
	}

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	created, err := scanBooking(tx.QueryRow(ctx, insert,
		b.ID, b.EstateID, b.BuyerID, b.SellerID, b.Type, b.Amount, b.StartDate, b.EndDate,
	))
	if err != nil {
		return nil, translate("insert booking", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, translate("commit booking", err)
	}
	return created, nil
}

func (r *bookingRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	const q = `
		SELECT ` + bookingCols + `
		FROM transactions
		WHERE buyer_id = $1 OR seller_id = $1
		ORDER BY transaction_date DESC`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, translate("list bookings", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, translate("scan bookings", err)
	}
	return bookings, nil
}
