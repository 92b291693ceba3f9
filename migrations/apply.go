package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Migration set directories inside FS.
const (
	ServerDir = "server"
	LocalDir  = "local"
)

// Apply runs all pending migrations of the given set against db. Each set
// gets its own goose provider so both schemas can live in one process.
func Apply(ctx context.Context, db *sql.DB, dir string) error {
	sub, err := fs.Sub(FS, dir)
	if err != nil {
		return fmt.Errorf("open migration set %q: %w", dir, err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
