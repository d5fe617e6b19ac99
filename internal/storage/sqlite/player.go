package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

const playerColumns = `id, wallet_address, username, created_at, updated_at, last_login`

func scanPlayer(row rowScanner) (*player.Player, error) {
	var p player.Player
	var created, updated int64
	var lastLogin sql.NullInt64
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.Username, &created, &updated, &lastLogin); err != nil {
		return nil, err
	}
	p.CreatedAt = fromMillis(created)
	p.UpdatedAt = fromMillis(updated)
	if lastLogin.Valid {
		t := fromMillis(lastLogin.Int64)
		p.LastLogin = &t
	}
	return &p, nil
}

// ResolvePlayer returns the player owning wallet, creating it on first
// sight, and records now as its last login. A non-empty username is stored
// only when the player is created.
//
// Precondition: wallet must already be validated.
func (s *Store) ResolvePlayer(ctx context.Context, wallet, username string, now time.Time) (*player.Player, error) {
	now = now.UTC().Truncate(time.Millisecond)
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = sqlTx.Rollback() }()

	p, err := scanPlayer(sqlTx.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE wallet_address = ?`, wallet))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = &player.Player{
			ID:            uuid.New(),
			WalletAddress: wallet,
			Username:      username,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO players (id, wallet_address, username, created_at, updated_at, last_login)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.WalletAddress, p.Username, toMillis(now), toMillis(now), toMillis(now),
		)
		if err != nil {
			return nil, mapError(fmt.Errorf("inserting player: %w", err))
		}
	case err != nil:
		return nil, fmt.Errorf("loading player: %w", err)
	default:
		_, err = sqlTx.ExecContext(ctx,
			`UPDATE players SET last_login = ?, updated_at = ? WHERE id = ?`,
			toMillis(now), toMillis(now), p.ID)
		if err != nil {
			return nil, mapError(fmt.Errorf("updating last login: %w", err))
		}
		p.UpdatedAt = now
	}
	if err := sqlTx.Commit(); err != nil {
		return nil, mapError(fmt.Errorf("commit transaction: %w", err))
	}
	p.LastLogin = &now
	return p, nil
}

// GetPlayer returns the player with the given ID or action.ErrPlayerNotFound.
func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	p, err := scanPlayer(s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, action.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading player: %w", err)
	}
	return p, nil
}
