// Package migrations embebe el schema SQL de bootstrap.
package migrations

import "embed"

// PostgresFS contiene el schema de Postgres en formato goose.
//
//go:embed *.sql
var PostgresFS embed.FS

// PostgresDir es el directorio dentro de PostgresFS.
const PostgresDir = "."
