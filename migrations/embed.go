// Package migrations carries the SQL schema scripts compiled into the
// binary, so a deployed daemon never depends on loose .sql files.
//
// Importing this package (usually blank) registers the embedded files with
// the database package's migration runner.
package migrations

import (
	"embed"

	"github.com/kestrelhq/kestrel-sync/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "." // scripts sit at the root of this FS
}
