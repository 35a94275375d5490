// Package migrations embeds SQL migration files into the binary.
//
// ringclient runs migrations without needing the SQL files present on the
// filesystem; they are compiled into the executable.
package migrations

import (
	"embed"

	"github.com/nerrad567/ringclient-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Files are at the root of the embedded FS.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
