package database

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func loadInitialSchema(t *testing.T) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_initial_schema.sql"))
	if err != nil {
		t.Fatalf("failed to read initial schema: %v", err)
	}
	return string(content)
}

// The repositories scan these columns into plain ints, so the schema must
// guarantee a non-NULL value from the moment a row is inserted. A lazily
// created report in particular is scanned straight from its INSERT RETURNING
// before any score was ever written.
func TestInitialSchemaIntColumnsNeverNull(t *testing.T) {
	schema := loadInitialSchema(t)

	columns := []string{
		"concentration_score",
		"round_count",
		"success_count",
		"wrong_count",
		"reaction_ms_sum",
		"total_plays_count",
		"retry_count",
	}

	for _, col := range columns {
		re := regexp.MustCompile(col + `\s+(INTEGER|BIGINT)\s+NOT NULL DEFAULT 0`)
		if !re.MatchString(schema) {
			t.Errorf("column %s must be NOT NULL DEFAULT 0", col)
		}
	}
}

func TestInitialSchemaUniqueConstraints(t *testing.T) {
	schema := loadInitialSchema(t)

	constraints := []string{
		"UNIQUE (user_id, child_id)",
		"UNIQUE (report_id, game_id)",
		"session_id UUID UNIQUE NOT NULL",
	}

	for _, c := range constraints {
		if !strings.Contains(schema, c) {
			t.Errorf("schema missing constraint %q", c)
		}
	}
}
