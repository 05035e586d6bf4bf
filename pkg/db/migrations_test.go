package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const migrationsTestPrefix = "db:migrations_test"

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	return dir
}

func TestLoadMigrationFiles_SortedForwardOnly(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0003_third.sql":      "THIRD",
		"0001_first.sql":      "FIRST",
		"0002_second.sql":     "SECOND",
		"0001_first.down.sql": "UNDO FIRST",
		"README.md":           "# Migrations",
		"config.json":         "{}",
	})

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	want := []string{"FIRST", "SECOND", "THIRD"}
	if len(result) != len(want) {
		t.Fatalf("%s - got %v, want %v", migrationsTestPrefix, result, want)
	}
	for i := range want {
		if result[i] != want[i] {
			t.Errorf("%s - result[%d] = %q, want %q", migrationsTestPrefix, i, result[i], want[i])
		}
	}
}

func TestLoadDownMigrationFiles_NewestFirst(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"0001_a.sql":      "A",
		"0001_a.down.sql": "UNDO A",
		"0002_b.sql":      "B",
		"0002_b.down.sql": "UNDO B",
	})

	result, err := LoadDownMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(result) != 2 || result[0] != "UNDO B" || result[1] != "UNDO A" {
		t.Errorf("%s - got %v, want [UNDO B, UNDO A]", migrationsTestPrefix, result)
	}
}

func TestLoadMigrationFiles_SkipsDirectories(t *testing.T) {
	dir := writeMigrations(t, map[string]string{"0001_create.sql": "CREATE TABLE x;"})
	if err := os.Mkdir(filepath.Join(dir, "subdir.sql"), 0o755); err != nil {
		t.Fatalf("%s - failed to create subdir: %v", migrationsTestPrefix, err)
	}

	result, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(result) != 1 {
		t.Errorf("%s - expected 1 migration (skipping dir), got %d", migrationsTestPrefix, len(result))
	}
}

func TestLoadMigrationFiles_EmptyAndMissingDir(t *testing.T) {
	result, err := LoadMigrationFiles(t.TempDir())
	if err != nil || len(result) != 0 {
		t.Errorf("%s - empty dir: got (%v, %v)", migrationsTestPrefix, result, err)
	}
	if _, err := LoadMigrationFiles(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Errorf("%s - expected error for non-existent directory", migrationsTestPrefix)
	}
}

func TestRepoMigrations(t *testing.T) {
	dir := filepath.Join("..", "..", "migrations")
	up, err := LoadMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(up) == 0 || !strings.Contains(up[0], "CREATE TABLE IF NOT EXISTS conversions") {
		t.Errorf("%s - first migration must create the conversions table", migrationsTestPrefix)
	}
	down, err := LoadDownMigrationFiles(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(down) != len(up) {
		t.Errorf("%s - every migration needs a rollback: %d up, %d down", migrationsTestPrefix, len(up), len(down))
	}
}
