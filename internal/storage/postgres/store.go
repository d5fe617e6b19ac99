package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
)

// healthTimeout bounds Store.Health.
const healthTimeout = 5 * time.Second

// SQLSTATE codes the store classifies.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store persists wayfarer state in PostgreSQL.
//
// Transactions run at REPEATABLE READ and lock the character row, so a
// concurrent writer either waits or fails with a serialization error that is
// reported as action.ErrConcurrencyConflict.
type Store struct {
	pool *Pool
}

// NewStore creates a Store over pool. The schema must already be migrated.
//
// Precondition: pool must be connected.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Health pings the database.
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Health(ctx, healthTimeout)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// InTx runs fn in a REPEATABLE READ transaction, committing iff fn returns nil.
//
// Postcondition: On any error, including a panic in fn, nothing is committed.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx action.Tx) error) (err error) {
	pgTx, err := s.pool.DB().BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return mapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = pgTx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, &tx{q: pgTx}); err != nil {
		return mapError(err)
	}
	if err = pgTx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// ActiveCooldowns returns the character's cooldowns expiring after now.
func (s *Store) ActiveCooldowns(ctx context.Context, characterID uuid.UUID, now time.Time) ([]character.Cooldown, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT action_id, available_at FROM action_cooldowns
		WHERE character_id = $1 AND available_at > $2
		ORDER BY available_at`,
		characterID, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing cooldowns: %w", err)
	}
	cds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (character.Cooldown, error) {
		var cd character.Cooldown
		err := row.Scan(&cd.ActionID, &cd.AvailableAt)
		cd.AvailableAt = cd.AvailableAt.UTC()
		return cd, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning cooldowns: %w", err)
	}
	return cds, nil
}

// SweepCooldowns deletes cooldowns with available_at <= now.
func (s *Store) SweepCooldowns(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.DB().Exec(ctx, `DELETE FROM action_cooldowns WHERE available_at <= $1`, now.UTC())
	if err != nil {
		return 0, mapError(fmt.Errorf("sweeping cooldowns: %w", err))
	}
	return tag.RowsAffected(), nil
}

// mapError translates serialization failures and deadlocks into
// action.ErrConcurrencyConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %w", action.ErrConcurrencyConflict, err)
		}
	}
	return err
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return false
}
