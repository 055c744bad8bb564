package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type userRepo struct{ pool PgxPool }

const (
	qUserInsert = `INSERT INTO users (username, password_hash, created_at) VALUES ($1, $2, $3)`
	qUserGet    = `SELECT username, password_hash, totp_enabled, totp_secret, totp_secret_pending,
totp_last_counter, created_at FROM users WHERE username = $1`
	qUserPassword = `UPDATE users SET password_hash = $2 WHERE username = $1`
	qUserPending  = `UPDATE users SET totp_secret_pending = $2 WHERE username = $1`
	qUserEnable   = `UPDATE users SET totp_secret = totp_secret_pending, totp_secret_pending = '',
totp_enabled = TRUE, totp_last_counter = $3
WHERE username = $1 AND totp_secret_pending = $2 AND totp_secret_pending <> ''`
	qUserDisable = `UPDATE users SET totp_enabled = FALSE, totp_secret = '', totp_secret_pending = '',
totp_last_counter = NULL WHERE username = $1`
	qUserMarkUsed = `UPDATE users SET totp_last_counter = $2
WHERE username = $1 AND (totp_last_counter IS NULL OR totp_last_counter < $2)`
	qUserExists = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
)

func (r *userRepo) Create(ctx context.Context, u *repository.User) error {
	if u.Username == "" {
		return repository.ErrInvalidInput
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if _, err := r.pool.Exec(ctx, qUserInsert, u.Username, u.PasswordHash, u.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*repository.User, error) {
	var u repository.User
	err := r.pool.QueryRow(ctx, qUserGet, username).Scan(
		&u.Username, &u.PasswordHash, &u.TOTPEnabled, &u.TOTPSecret, &u.TOTPSecretPending,
		&u.TOTPLastCounter, &u.CreatedAt,
	)
	if err != nil {
		return nil, mapNoRows(err, repository.ErrNotFound)
	}
	return &u, nil
}

// execOne ejecuta un UPDATE y traduce 0 filas a ErrNotFound.
func (r *userRepo) execOne(ctx context.Context, op, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("pg: %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// execConditional ejecuta un UPDATE condicional. Con 0 filas distingue
// usuario inexistente de precondición fallida.
func (r *userRepo) execConditional(ctx context.Context, op, username, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("pg: %s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, qUserExists, username).Scan(&exists); err != nil {
		return fmt.Errorf("pg: check user: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrPreconditionFailed
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	return r.execOne(ctx, "update password", qUserPassword, username, hash)
}

func (r *userRepo) SetPendingTOTP(ctx context.Context, username, secretEnc string) error {
	return r.execOne(ctx, "set pending totp", qUserPending, username, secretEnc)
}

func (r *userRepo) EnableTOTP(ctx context.Context, username, expectedPending string, counter int64) error {
	return r.execConditional(ctx, "enable totp", username, qUserEnable, username, expectedPending, counter)
}

func (r *userRepo) DisableTOTP(ctx context.Context, username string) error {
	return r.execOne(ctx, "disable totp", qUserDisable, username)
}

func (r *userRepo) MarkTOTPUsed(ctx context.Context, username string, counter int64) error {
	return r.execConditional(ctx, "mark totp used", username, qUserMarkUsed, username, counter)
}
