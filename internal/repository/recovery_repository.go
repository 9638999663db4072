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

type RecoveryRepository interface {
	// UpsertForUser replaces any record the user already has.
	UpsertForUser(ctx context.Context, rec *domain.RecoveryRecord) error
	// FindByDigest returns the record with codeHash that is still live at now.
	FindByDigest(ctx context.Context, codeHash string, now time.Time) (*domain.RecoveryRecord, error)
	// DeleteForUserDigest removes the user's record only while it still holds
	// codeHash, so a newer code issued in the meantime survives.
	DeleteForUserDigest(ctx context.Context, userID uuid.UUID, codeHash string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// ConsumeAndSetPassword deletes the live record matching codeHash and
	// stores the new password in one transaction. ok is false when the
	// record was already consumed or expired.
	ConsumeAndSetPassword(ctx context.Context, userID uuid.UUID, codeHash, passwordHash string, now time.Time) (ok bool, err error)
}

type recoveryRepository struct {
	pool *pgxpool.Pool
}

func NewRecoveryRepository(pool *pgxpool.Pool) RecoveryRepository {
	return &recoveryRepository{pool: pool}
}

func (r *recoveryRepository) UpsertForUser(ctx context.Context, rec *domain.RecoveryRecord) error {
	const q = `
		INSERT INTO password_reset_tokens (user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, rec.UserID, rec.CodeHash, rec.ExpiresAt, rec.CreatedAt)
	return translate("upsert recovery record", err)
}

func (r *recoveryRepository) FindByDigest(ctx context.Context, codeHash string, now time.Time) (*domain.RecoveryRecord, error) {
	const q = `
		SELECT user_id, code_hash, expires_at, created_at
		FROM password_reset_tokens
		WHERE code_hash = $1 AND expires_at > $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var rec domain.RecoveryRecord
	err := r.pool.QueryRow(ctx, q, codeHash, now).Scan(&rec.UserID, &rec.CodeHash, &rec.ExpiresAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("find recovery record", err)
	}
	return &rec, nil
}

func (r *recoveryRepository) DeleteForUserDigest(ctx context.Context, userID uuid.UUID, codeHash string) error {
	const q = `DELETE FROM password_reset_tokens WHERE user_id = $1 AND code_hash = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, userID, codeHash)
	return translate("delete recovery record", err)
}

func (r *recoveryRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `DELETE FROM password_reset_tokens WHERE expires_at <= $1`
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ct, err := r.pool.Exec(ctx, q, now)
	if err != nil {
		return 0, translate("delete expired recovery records", err)
	}
	return ct.RowsAffected(), nil
}

func (r *recoveryRepository) ConsumeAndSetPassword(ctx context.Context, userID uuid.UUID, codeHash, passwordHash string, now time.Time) (bool, error) {
	const consume = `
		DELETE FROM password_reset_tokens
		WHERE user_id = $1 AND code_hash = $2 AND expires_at > $3`
	const update = `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = now()
		WHERE id = $1 AND active`

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, translate("begin consume", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx, consume, userID, codeHash, now)
	if err != nil {
		return false, translate("consume recovery record", err)
	}
	if ct.RowsAffected() == 0 {
		return false, nil
	}

	ct, err = tx.Exec(ctx, update, userID, passwordHash, now)
	if err != nil {
		return false, translate("set password", err)
	}
	if ct.RowsAffected() == 0 {
		return false, domain.ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, translate("commit consume", err)
	}
	return true, nil
}
