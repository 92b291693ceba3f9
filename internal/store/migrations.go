package store

import (
	"context"
	"database/sql"

	"github.com/hyperengineering/codex/migrations"
)

// RunMigrations applies all pending server schema migrations using goose.
func RunMigrations(db *sql.DB) error {
	return migrations.Apply(context.Background(), db, migrations.ServerDir)
}
