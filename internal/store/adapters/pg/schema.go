package pg

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	migrations "github.com/dropDatabas3/noke/migrations/postgres"
)

// ApplySchema aplica el schema embebido. Es idempotente: goose registra las
// versiones aplicadas en su propia tabla.
func ApplySchema(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	goose.SetBaseFS(migrations.PostgresFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, migrations.PostgresDir)
}
