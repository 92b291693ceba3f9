// Package draft mirrors unsaved input and chapter navigation state to a
// local SQLite file so a restart can restore them. It is a cache: the
// remote store stays authoritative.
package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hyperengineering/codex/migrations"
)

// Keys used for the input mirror.
const (
	KeyNovel     = "input.novel"
	KeyAttribute = "input.attribute"
	KeyData      = "input.data"
	KeyFilter    = "input.filter"
	KeyKeywords  = "input.keywords"
)

// Input is the in-progress user input.
type Input struct {
	Novel     string
	Attribute string
	Data      string
	Filter    string
	Keywords  string
}

// Store is a SQLite-backed key/value mirror plus per-novel chapter cursors.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the draft database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create draft directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open draft database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if err := migrations.Apply(context.Background(), db, migrations.LocalDir); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put draft %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get draft %s: %w", key, err)
	}
	return value, true, nil
}

// SaveInput mirrors every input field in one transaction.
func (s *Store) SaveInput(ctx context.Context, in Input) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	for key, value := range in.fields() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, stamp); err != nil {
			return fmt.Errorf("save draft %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadInput restores the mirrored input. Missing keys load as "".
func (s *Store) LoadInput(ctx context.Context) (Input, error) {
	var in Input
	targets := map[string]*string{
		KeyNovel:     &in.Novel,
		KeyAttribute: &in.Attribute,
		KeyData:      &in.Data,
		KeyFilter:    &in.Filter,
		KeyKeywords:  &in.Keywords,
	}
	for key, dst := range targets {
		v, _, err := s.Get(ctx, key)
		if err != nil {
			return Input{}, err
		}
		*dst = v
	}
	return in, nil
}

// SetCursor persists the chapter cursor for novel.
func (s *Store) SetCursor(ctx context.Context, novel string, position int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chapter_cursors (novel_title, position, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(novel_title) DO UPDATE SET position = excluded.position, updated_at = excluded.updated_at
	`, novel, position, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("set cursor for %s: %w", novel, err)
	}
	return nil
}

// Cursor returns the persisted cursor for novel and whether one exists.
func (s *Store) Cursor(ctx context.Context, novel string) (int, bool, error) {
	var pos int
	err := s.db.QueryRowContext(ctx, `SELECT position FROM chapter_cursors WHERE novel_title = ?`, novel).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get cursor for %s: %w", novel, err)
	}
	return pos, true, nil
}

func (in Input) fields() map[string]string {
	return map[string]string{
		KeyNovel:     in.Novel,
		KeyAttribute: in.Attribute,
		KeyData:      in.Data,
		KeyFilter:    in.Filter,
		KeyKeywords:  in.Keywords,
	}
}
