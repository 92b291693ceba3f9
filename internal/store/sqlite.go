package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/codex/internal/attrpath"
	"github.com/hyperengineering/codex/internal/fingerprint"
	"github.com/hyperengineering/codex/internal/types"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore represents the SQLite-backed attribute/data database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps :memory: databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListAttributes returns every stored attribute path, oldest first.
func (s *SQLiteStore) ListAttributes(ctx context.Context) ([]types.AttributeEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, fp_max, fp_min, novel_title, created_at
		FROM attributes
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	entries := []types.AttributeEntry{}
	for rows.Next() {
		var e types.AttributeEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Text, &e.Fingerprint.Max, &e.Fingerprint.Min, &e.NovelTitle, &createdAt); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		e.CreatedAt = parseTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// QueryData returns the newest data records stored under the attribute
// fingerprint. A non-positive limit returns every match.
func (s *SQLiteStore) QueryData(ctx context.Context, attribute fingerprint.Fingerprint, limit int) ([]types.DataEntry, error) {
	if !attribute.Valid() {
		return nil, ErrInvalidFingerprint
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attribute_text, attribute_fp_max, attribute_fp_min, text, data_fp_max, data_fp_min,
		       novel_title, chapter_number, chapter_title, chapter_fp_max, chapter_fp_min, created_at
		FROM data_records
		WHERE attribute_fp_max = ? AND attribute_fp_min = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, attribute.Max, attribute.Min, limit)
	if err != nil {
		return nil, fmt.Errorf("query data: %w", err)
	}
	defer rows.Close()

	entries := []types.DataEntry{}
	for rows.Next() {
		e, err := scanDataEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// WriteData stores a data record, creating its attribute row on first use.
// An existing attribute row is never modified.
func (s *SQLiteStore) WriteData(ctx context.Context, req types.WriteRequest) (*types.WriteResponse, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return nil, ErrInvalidFingerprint
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	stamp := now.Format(time.RFC3339Nano)

	var attributeID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM attributes WHERE fp_max = ? AND fp_min = ? AND text = ?
	`, req.AttributeFingerprint.Max, req.AttributeFingerprint.Min, req.AttributeText).Scan(&attributeID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		attributeID = ulid.Make().String()
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attributes (id, text, fp_max, fp_min, novel_title, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, attributeID, req.AttributeText, req.AttributeFingerprint.Max, req.AttributeFingerprint.Min, req.NovelTitle, stamp); err != nil {
			return nil, fmt.Errorf("insert attribute: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup attribute: %w", err)
	}

	var chapterNumber, chapterTitle sql.NullString
	if req.Chapter != nil {
		chapterNumber = sql.NullString{String: req.Chapter.Number, Valid: true}
		chapterTitle = sql.NullString{String: req.Chapter.Title, Valid: true}
	}
	var chapterMax, chapterMin sql.NullFloat64
	if req.ChapterFingerprint != nil && req.ChapterFingerprint.Valid() {
		chapterMax = sql.NullFloat64{Float64: req.ChapterFingerprint.Max, Valid: true}
		chapterMin = sql.NullFloat64{Float64: req.ChapterFingerprint.Min, Valid: true}
	}

	id := ulid.Make().String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO data_records (id, attribute_id, attribute_fp_max, attribute_fp_min, attribute_text, text,
		                          data_fp_max, data_fp_min, novel_title, chapter_number, chapter_title,
		                          chapter_fp_max, chapter_fp_min, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, attributeID, req.AttributeFingerprint.Max, req.AttributeFingerprint.Min, req.AttributeText, req.Text,
		req.DataFingerprint.Max, req.DataFingerprint.Min, req.NovelTitle, chapterNumber, chapterTitle,
		chapterMax, chapterMin, stamp); err != nil {
		return nil, fmt.Errorf("insert data record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return &types.WriteResponse{ID: id, CreatedAt: now}, nil
}

// DeleteData removes data records matching both fingerprints and, when
// req.Text is set, the literal text. Returns ErrNotFound if nothing matched.
func (s *SQLiteStore) DeleteData(ctx context.Context, req types.DeleteDataRequest) (int64, error) {
	if !req.AttributeFingerprint.Valid() || !req.DataFingerprint.Valid() {
		return 0, ErrInvalidFingerprint
	}

	query := `
		DELETE FROM data_records
		WHERE attribute_fp_max = ? AND attribute_fp_min = ? AND data_fp_max = ? AND data_fp_min = ?`
	args := []any{req.AttributeFingerprint.Max, req.AttributeFingerprint.Min, req.DataFingerprint.Max, req.DataFingerprint.Min}
	if req.Text != "" {
		query += " AND text = ?"
		args = append(args, req.Text)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete data: %w", err)
	}
	return affected(result)
}

// DeleteAttribute removes the attribute rows with the fingerprint together
// with their data records. When req.Text is set only the attribute with that
// literal path goes, so a colliding path survives.
func (s *SQLiteStore) DeleteAttribute(ctx context.Context, req types.DeleteAttributeRequest) (int64, error) {
	attribute := req.AttributeFingerprint
	if !attribute.Valid() {
		return 0, ErrInvalidFingerprint
	}

	dataQuery := `DELETE FROM data_records WHERE attribute_fp_max = ? AND attribute_fp_min = ?`
	attrQuery := `DELETE FROM attributes WHERE fp_max = ? AND fp_min = ?`
	args := []any{attribute.Max, attribute.Min}
	if req.Text != "" {
		dataQuery += " AND attribute_text = ?"
		attrQuery += " AND text = ?"
		args = append(args, req.Text)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dataQuery, args...); err != nil {
		return 0, fmt.Errorf("delete attribute data: %w", err)
	}

	result, err := tx.ExecContext(ctx, attrQuery, args...)
	if err != nil {
		return 0, fmt.Errorf("delete attribute: %w", err)
	}
	n, err := affected(result)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return n, nil
}

// GetStats returns aggregate store statistics
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attributes").Scan(&stats.AttributeCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM data_records").Scan(&stats.DataCount); err != nil {
		return nil, err
	}
	return &stats, nil
}

func affected(result sql.Result) (int64, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

// scanDataEntry scans a row into a DataEntry, rebuilding the optional chapter fields.
func scanDataEntry(scanner interface{ Scan(...any) error }) (*types.DataEntry, error) {
	var e types.DataEntry
	var chapterNumber, chapterTitle sql.NullString
	var chapterMax, chapterMin sql.NullFloat64
	var createdAt string

	err := scanner.Scan(
		&e.ID,
		&e.AttributeText,
		&e.AttributeFingerprint.Max,
		&e.AttributeFingerprint.Min,
		&e.Text,
		&e.DataFingerprint.Max,
		&e.DataFingerprint.Min,
		&e.NovelTitle,
		&chapterNumber,
		&chapterTitle,
		&chapterMax,
		&chapterMin,
		&createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan data record: %w", err)
	}

	if chapterNumber.Valid {
		e.Chapter = &attrpath.ChapterRef{Number: chapterNumber.String, Title: chapterTitle.String}
	}
	if chapterMax.Valid && chapterMin.Valid {
		e.ChapterFingerprint = &fingerprint.Fingerprint{Max: chapterMax.Float64, Min: chapterMin.Float64}
	}
	e.CreatedAt = parseTime(createdAt)
	return &e, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
