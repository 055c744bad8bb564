package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type tokenRepo struct{ pool PgxPool }

const (
	qTokenInsert = `INSERT INTO api_tokens (id, username, name, token_hash, permissions, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	qTokenByHash = `SELECT id, username, name, token_hash, permissions, created_at, last_used, expires_at
FROM api_tokens WHERE token_hash = $1`
	qTokenList = `SELECT id, username, name, token_hash, permissions, created_at, last_used, expires_at
FROM api_tokens WHERE username = $1 ORDER BY created_at`
	qTokenDelete = `DELETE FROM api_tokens WHERE id = $1 AND username = $2`
	qTokenTouch  = `UPDATE api_tokens SET last_used = $2 WHERE id = $1`
)

func scanToken(row rowScanner) (*repository.APIToken, error) {
	var t repository.APIToken
	if err := row.Scan(&t.ID, &t.Username, &t.Name, &t.TokenHash, &t.Permissions,
		&t.CreatedAt, &t.LastUsed, &t.ExpiresAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *tokenRepo) Create(ctx context.Context, t *repository.APIToken) error {
	if t.ID == "" || t.TokenHash == "" {
		return repository.ErrInvalidInput
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	perms := t.Permissions
	if perms == nil {
		perms = []string{}
	}
	_, err := r.pool.Exec(ctx, qTokenInsert, t.ID, t.Username, t.Name, t.TokenHash, perms, t.CreatedAt, t.ExpiresAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: insert token: %w", err)
	}
	return nil
}

func (r *tokenRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.APIToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, qTokenByHash, tokenHash))
	if err != nil {
		return nil, mapNoRows(err, repository.ErrNotFound)
	}
	return t, nil
}

func (r *tokenRepo) ListByUser(ctx context.Context, username string) ([]repository.APIToken, error) {
	rows, err := r.pool.Query(ctx, qTokenList, username)
	if err != nil {
		return nil, fmt.Errorf("pg: list tokens: %w", err)
	}
	defer rows.Close()

	out := make([]repository.APIToken, 0)
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *tokenRepo) Delete(ctx context.Context, id, username string) error {
	tag, err := r.pool.Exec(ctx, qTokenDelete, id, username)
	if err != nil {
		return fmt.Errorf("pg: delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *tokenRepo) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, qTokenTouch, id, at)
	if err != nil {
		return fmt.Errorf("pg: touch token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
