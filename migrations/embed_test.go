package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedFS_ContainsMigrationFiles(t *testing.T) {
	tests := []struct {
		dir  string
		file string
	}{
		{"server", "001_initial_schema.sql"},
		{"local", "001_draft_schema.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			entries, err := FS.ReadDir(tt.dir)
			if err != nil {
				t.Fatalf("failed to read embedded dir %s: %v", tt.dir, err)
			}
			found := false
			for _, entry := range entries {
				if entry.Name() == tt.file {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("%s/%s not found in embedded FS", tt.dir, tt.file)
			}
		})
	}
}

func TestEmbeddedFS_MigrationsHaveGooseDirectives(t *testing.T) {
	for _, path := range []string{"server/001_initial_schema.sql", "local/001_draft_schema.sql"} {
		content, err := FS.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read %s: %v", path, err)
		}
		s := string(content)
		if !strings.Contains(s, "-- +goose Up") {
			t.Errorf("%s missing '-- +goose Up' directive", path)
		}
		if !strings.Contains(s, "-- +goose Down") {
			t.Errorf("%s missing '-- +goose Down' directive", path)
		}
	}

	server, _ := FS.ReadFile("server/001_initial_schema.sql")
	if !strings.Contains(string(server), "CREATE TABLE data_records") {
		t.Error("server migration missing data_records table creation")
	}
}
