// Package sqlite provides a SQLite-backed character state store and world
// catalog for single-process deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
)

//go:embed schema.sql
var schemaSQL string

// Store persists wayfarer state in SQLite.
//
// Invariant: the pool holds exactly one connection, so every transaction is
// the sole writer and BEGIN IMMEDIATE never contends inside one process.
type Store struct {
	db *sql.DB
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Open opens (creating if needed) the database at path and applies the schema.
// The path ":memory:" yields a private in-memory database.
//
// Precondition: path must be non-empty.
// Postcondition: Returns a ready Store or a non-nil error.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if path != ":memory:" {
		path = filepath.Clean(path)
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn in an immediate transaction, committing iff fn returns nil.
//
// Postcondition: On any error, including a panic in fn, nothing is committed.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx action.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = sqlTx.Rollback()
		}
	}()

	if err = fn(ctx, &tx{q: sqlTx}); err != nil {
		return err
	}
	if err = sqlTx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// ActiveCooldowns returns the character's cooldowns expiring after now.
func (s *Store) ActiveCooldowns(ctx context.Context, characterID uuid.UUID, now time.Time) ([]character.Cooldown, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT action_id, available_at FROM action_cooldowns
		WHERE character_id = ? AND available_at > ?
		ORDER BY available_at`,
		characterID, toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("listing cooldowns: %w", err)
	}
	defer rows.Close()

	var out []character.Cooldown
	for rows.Next() {
		var cd character.Cooldown
		var at int64
		if err := rows.Scan(&cd.ActionID, &at); err != nil {
			return nil, fmt.Errorf("scanning cooldown: %w", err)
		}
		cd.AvailableAt = fromMillis(at)
		out = append(out, cd)
	}
	return out, rows.Err()
}

// SweepCooldowns deletes cooldowns with available_at <= now.
func (s *Store) SweepCooldowns(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM action_cooldowns WHERE available_at <= ?`, toMillis(now))
	if err != nil {
		return 0, mapError(fmt.Errorf("sweeping cooldowns: %w", err))
	}
	return res.RowsAffected()
}

// mapError translates SQLite lock contention into ErrConcurrencyConflict.
func mapError(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", action.ErrConcurrencyConflict, err)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
