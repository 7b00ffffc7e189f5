package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/Bvvvp009/farcasterpaywall/pkg/config"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// Dir returns the embedded migrations directory for a store driver.
func Dir(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case config.StoreDriverPostgres:
		return "migrations/postgres", nil
	case config.StoreDriverSQLite:
		return "migrations/sqlite", nil
	}
	return "", fmt.Errorf("no migrations for driver %q", driver)
}

func dialect(driver string) string {
	if strings.EqualFold(driver, config.StoreDriverSQLite) {
		return "sqlite3"
	}
	return "postgres"
}

// Run executes a standard goose command against the embedded migrations.
func Run(ctx context.Context, db *sql.DB, driver string, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	dir, err := Dir(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect(driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// MigrateToVersion migrates up/down to the requested version by comparing current DB version.
func MigrateToVersion(ctx context.Context, db *sql.DB, driver string, targetVersion string) error {
	if targetVersion == "" {
		return fmt.Errorf("targetVersion is required")
	}
	dir, err := Dir(driver)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect(driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	current, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
		return nil
	default:
		if err := goose.DownToContext(ctx, db, dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
		return nil
	}
}

// Validate checks embedded migration filenames and goose headers for every driver.
func Validate() error {
	for _, driver := range []string{config.StoreDriverPostgres, config.StoreDriverSQLite} {
		dir, _ := Dir(driver)
		entries, err := fs.ReadDir(migrationsFS, dir)
		if err != nil {
			return fmt.Errorf("read dir %q: %w", dir, err)
		}
		seen := map[string]string{}
		for _, e := range entries {
			name := e.Name()
			m := sqlFileRe.FindStringSubmatch(name)
			if m == nil {
				return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
			}
			if prev, ok := seen[m[1]]; ok {
				return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
			}
			seen[m[1]] = name

			b, err := fs.ReadFile(migrationsFS, dir+"/"+name)
			if err != nil {
				return fmt.Errorf("read file %q: %w", name, err)
			}
			txt := string(b)
			if !strings.Contains(txt, "-- +goose Up") || !strings.Contains(txt, "-- +goose Down") {
				return fmt.Errorf("migration %q missing goose Up/Down markers", name)
			}
		}
	}
	return nil
}
