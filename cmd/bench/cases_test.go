package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSplitSQLDropsCommentsAndBlanks(t *testing.T) {
	sql := `-- header
CREATE TABLE IF NOT EXISTS a (id TEXT);

-- second
CREATE INDEX IF NOT EXISTS a_idx ON a (id);
`
	stmts := splitSQL(sql)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE IF NOT EXISTS a (id TEXT)" {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
}

func TestExtractTablesAcrossMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("0002_b.sql", "create table if not exists traveler_profiles (uid text);")
	write("0001_a.sql", "CREATE TABLE IF NOT EXISTS itineraries (id text);\nCREATE TABLE IF NOT EXISTS itinerary_items (id text);")

	tables, err := extractTables(filepath.Join(dir, "*.sql"))
	if err != nil {
		t.Fatalf("extractTables: %v", err)
	}
	want := []string{"itineraries", "itinerary_items", "traveler_profiles"}
	if len(tables) != len(want) {
		t.Fatalf("got %v, want %v", tables, want)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Errorf("table %d = %s, want %s", i, tables[i], want[i])
		}
	}
}

func TestMigrationFilesRequiresMatch(t *testing.T) {
	if _, err := migrationFiles(filepath.Join(t.TempDir(), "*.sql")); err == nil {
		t.Fatal("expected error for empty glob")
	}
}
