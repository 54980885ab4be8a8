// Package database keeps Orbie's OAuth tokens in a local sqlite file. The
// schema ships embedded in the binary and is brought up to date on Open.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"github.com/orbie-bot/orbie/migrations"

	_ "modernc.org/sqlite" //revive:disable:blank-imports
)

const (
	driverName      = "sqlite"
	connMaxLifetime = 5 * time.Minute
)

// Open connects to the token database at dsn, creating the parent directory
// of a plain file path if needed, and migrates the schema. The pool holds a
// single connection so writes never contend.
func Open(dsn string) (*sqlx.DB, error) {
	file := filePath(dsn)
	if dir := filepath.Dir(file); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("database: create directory %s: %w", dir, err)
		}
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", file, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := Migrate(db.DB); err != nil {
		return nil, errors.Join(err, db.Close())
	}

	slog.Info("Token database ready", "file", file)
	return db, nil
}

// Close releases db. Errors are logged because there is nothing left to do
// with them at shutdown.
func Close(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Warn("Token database did not close cleanly", "error", err)
	}
}

// Migrate applies every embedded migration that db has not seen yet.
func Migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("database: migrate on nil connection")
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("database: read embedded migrations: %w", err)
	}
	target, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("database: prepare migration target: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, driverName, target)
	if err != nil {
		return fmt.Errorf("database: prepare migrator: %w", err)
	}

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		slog.Debug("Token schema already current")
	case err != nil:
		return fmt.Errorf("database: migrate: %w", err)
	default:
		version, _, _ := m.Version()
		slog.Info("Token schema migrated", "version", version)
	}
	return nil
}

// filePath reduces a sqlite DSN such as "file:/x/orbie.db?_pragma=..." to
// the file it names.
func filePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	p, _, _ = strings.Cut(p, "?")
	if decoded, err := url.PathUnescape(p); err == nil {
		return decoded
	}
	return p
}
