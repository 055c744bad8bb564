package pg

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/noke/internal/domain/repository"
)

type entryRepo struct{ pool PgxPool }

const qEntriesByUser = `SELECT id, username, name, login_username, password, url, notes, folder, created_at
FROM entries WHERE username = $1 ORDER BY name, id`

func (r *entryRepo) ListByUser(ctx context.Context, username string) ([]repository.Entry, error) {
	rows, err := r.pool.Query(ctx, qEntriesByUser, username)
	if err != nil {
		return nil, fmt.Errorf("pg: list entries: %w", err)
	}
	defer rows.Close()

	out := make([]repository.Entry, 0)
	for rows.Next() {
		var e repository.Entry
		if err := rows.Scan(&e.ID, &e.Username, &e.Name, &e.LoginUsername, &e.Password,
			&e.URL, &e.Notes, &e.Folder, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
