// Package migrations holds the bridge's SQL schema. Importing it, usually
// for side effects, hands the files to the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-inels/internal/infrastructure/database"
)

//go:embed *.sql
var schema embed.FS

func init() {
	database.MigrationsFS = schema
}
