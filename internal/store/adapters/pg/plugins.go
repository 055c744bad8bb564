package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type pluginRepo struct{ pool PgxPool }

const pluginCols = `id, grp, plugin_secret_hash, owner_username, authorized,
rolling_key_hash, rolling_key_version, rolling_key_created_at, pending_rolling_key,
auth_request_token_hash, auth_request_expiry, created_at, last_seen,
authorized_at, revoked_at, version, updated_at`

const (
	qPluginInsert = `INSERT INTO plugin_instances (id, grp, plugin_secret_hash, owner_username, authorized,
rolling_key_hash, rolling_key_version, rolling_key_created_at, pending_rolling_key,
auth_request_token_hash, auth_request_expiry, created_at, last_seen, authorized_at, revoked_at, version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1, clock_timestamp())
RETURNING version, updated_at`

	qPluginGet      = `SELECT ` + pluginCols + ` FROM plugin_instances WHERE id = $1 AND grp = $2`
	qPluginFindByID = `SELECT ` + pluginCols + ` FROM plugin_instances WHERE id = $1 ORDER BY updated_at DESC LIMIT 1`
	qPluginList     = `SELECT ` + pluginCols + ` FROM plugin_instances WHERE grp = $1 ORDER BY created_at, id`

	qPluginUpdate = `UPDATE plugin_instances SET plugin_secret_hash = $4, owner_username = $5, authorized = $6,
rolling_key_hash = $7, rolling_key_version = $8, rolling_key_created_at = $9, pending_rolling_key = $10,
auth_request_token_hash = $11, auth_request_expiry = $12, last_seen = $13, authorized_at = $14, revoked_at = $15,
version = version + 1, updated_at = clock_timestamp()
WHERE id = $1 AND grp = $2 AND version = $3
RETURNING version, updated_at`

	qPluginExists = `SELECT EXISTS (SELECT 1 FROM plugin_instances WHERE id = $1 AND grp = $2)`
	qPluginDelete = `DELETE FROM plugin_instances WHERE id = $1 AND grp = $2`
)

func scanPlugin(row rowScanner) (*repository.PluginInstance, error) {
	var p repository.PluginInstance
	err := row.Scan(
		&p.ID, &p.Group, &p.PluginSecretHash, &p.OwnerUsername, &p.Authorized,
		&p.RollingKeyHash, &p.RollingKeyVersion, &p.RollingKeyCreatedAt, &p.PendingRollingKey,
		&p.AuthRequestTokenHash, &p.AuthRequestExpiry, &p.CreatedAt, &p.LastSeen,
		&p.AuthorizedAt, &p.RevokedAt, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pluginRepo) Create(ctx context.Context, p *repository.PluginInstance) error {
	if p.ID == "" || p.Group == "" {
		return repository.ErrInvalidInput
	}
	err := r.pool.QueryRow(ctx, qPluginInsert,
		p.ID, p.Group, p.PluginSecretHash, p.OwnerUsername, p.Authorized,
		p.RollingKeyHash, p.RollingKeyVersion, p.RollingKeyCreatedAt, p.PendingRollingKey,
		p.AuthRequestTokenHash, p.AuthRequestExpiry, p.CreatedAt, p.LastSeen,
		p.AuthorizedAt, p.RevokedAt,
	).Scan(&p.Version, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: insert plugin: %w", err)
	}
	return nil
}

func (r *pluginRepo) Get(ctx context.Context, id, group string) (*repository.PluginInstance, error) {
	p, err := scanPlugin(r.pool.QueryRow(ctx, qPluginGet, id, group))
	if err != nil {
		return nil, mapNoRows(err, repository.ErrNotFound)
	}
	return p, nil
}

func (r *pluginRepo) FindByID(ctx context.Context, id string) (*repository.PluginInstance, error) {
	p, err := scanPlugin(r.pool.QueryRow(ctx, qPluginFindByID, id))
	if err != nil {
		return nil, mapNoRows(err, repository.ErrNotFound)
	}
	return p, nil
}

func (r *pluginRepo) ListByGroup(ctx context.Context, group string) ([]repository.PluginInstance, error) {
	rows, err := r.pool.Query(ctx, qPluginList, group)
	if err != nil {
		return nil, fmt.Errorf("pg: list plugins: %w", err)
	}
	defer rows.Close()

	out := make([]repository.PluginInstance, 0)
	for rows.Next() {
		p, err := scanPlugin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *pluginRepo) Update(ctx context.Context, p *repository.PluginInstance) error {
	err := r.pool.QueryRow(ctx, qPluginUpdate,
		p.ID, p.Group, p.Version,
		p.PluginSecretHash, p.OwnerUsername, p.Authorized,
		p.RollingKeyHash, p.RollingKeyVersion, p.RollingKeyCreatedAt, p.PendingRollingKey,
		p.AuthRequestTokenHash, p.AuthRequestExpiry, p.LastSeen,
		p.AuthorizedAt, p.RevokedAt,
	).Scan(&p.Version, &p.UpdatedAt)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("pg: update plugin: %w", err)
	}

	// Sin filas: o no existe, o la versión cambió.
	var exists bool
	if err := r.pool.QueryRow(ctx, qPluginExists, p.ID, p.Group).Scan(&exists); err != nil {
		return fmt.Errorf("pg: check plugin: %w", err)
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrPreconditionFailed
}

func (r *pluginRepo) Delete(ctx context.Context, id, group string) error {
	tag, err := r.pool.Exec(ctx, qPluginDelete, id, group)
	if err != nil {
		return fmt.Errorf("pg: delete plugin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
