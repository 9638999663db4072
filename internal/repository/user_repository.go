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

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmailOrHandle(ctx context.Context, login string) (*domain.User, error)
	UpdatePasswordAndTimestamp(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, u *domain.User) (*domain.User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userCols = `id, handle, email, password_hash, role, first_name, last_name,
COALESCE(phone, ''), password_changed_at, active, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Handle, &u.Email, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName,
		&u.Phone, &u.PasswordChangedAt, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (id, handle, email, password_hash, role, first_name, last_name, phone, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	created, err := scanUser(r.pool.QueryRow(ctx, q,
		u.ID, u.Handle, u.Email, u.PasswordHash, u.Role, u.FirstName, u.LastName, nullable(u.Phone),
	))
	if err != nil {
		return nil, translate("create user", err)
	}
	return created, nil
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find user by id", err)
	}
	return u, nil
}

func (r *userRepository) FindByEmailOrHandle(ctx context.Context, login string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email = $1 OR handle = $1 LIMIT 1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, login))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find user by login", err)
	}
	return u, nil
}

func (r *userRepository) UpdatePasswordAndTimestamp(ctx context.Context, id uuid.UUID, passwordHash string, changedAt time.Time) error {
	const q = `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = now()
		WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id, passwordHash, changedAt)
	if err != nil {
		return translate("update password", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	return translate("rehash password", err)
}

func (r *userRepository) UpdateProfile(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		UPDATE users
		SET handle = $2, email = $3, first_name = $4, last_name = $5, phone = $6, role = $7, updated_at = now()
		WHERE id = $1 AND active
		RETURNING ` + userCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	updated, err := scanUser(r.pool.QueryRow(ctx, q,
		u.ID, u.Handle, u.Email, u.FirstName, u.LastName, nullable(u.Phone), u.Role,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, translate("update profile", err)
	}
	return updated, nil
}

func (r *userRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE users SET active = false, updated_at = now() WHERE id = $1 AND active`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return translate("deactivate user", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, limit, offset int) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE active ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, translate("scan user", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
