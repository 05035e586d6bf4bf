package db

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const migrationsLogPrefix = "db:migrations"

const downSuffix = ".down.sql"

// LoadMigrationFiles reads the forward .sql files from dir, sorted by name, and returns
// their contents. Files ending in .down.sql are rollbacks and are skipped.
func LoadMigrationFiles(dir string) ([]string, error) {
	names, err := migrationNames(dir, false)
	if err != nil {
		return nil, err
	}
	out, err := readAll(dir, names)
	if err != nil {
		return nil, err
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migration files from %s", migrationsLogPrefix, len(out), dir))
	return out, nil
}

// LoadDownMigrationFiles reads the .down.sql files from dir, newest first.
func LoadDownMigrationFiles(dir string) ([]string, error) {
	names, err := migrationNames(dir, true)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return readAll(dir, names)
}

func migrationNames(dir string, down bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		if strings.HasSuffix(e.Name(), downSuffix) != down {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func readAll(dir string, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s: %w", migrationsLogPrefix, path, err)
		}
		out = append(out, string(data))
	}
	return out, nil
}
