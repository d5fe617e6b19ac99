package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
)

const playerColumns = `id, wallet_address, username, created_at, updated_at, last_login`

func scanPlayer(row pgx.Row) (*player.Player, error) {
	var p player.Player
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.Username, &p.CreatedAt, &p.UpdatedAt, &p.LastLogin); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.LastLogin != nil {
		t := p.LastLogin.UTC()
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
	now = now.UTC().Truncate(time.Microsecond)
	p, err := scanPlayer(s.pool.DB().QueryRow(ctx, `
		INSERT INTO players (id, wallet_address, username, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $4, $4)
		ON CONFLICT (wallet_address) DO UPDATE SET last_login = $4, updated_at = $4
		RETURNING `+playerColumns,
		uuid.New(), wallet, username, now,
	))
	if err != nil {
		return nil, mapError(fmt.Errorf("resolving player: %w", err))
	}
	return p, nil
}

// GetPlayer returns the player with the given ID or action.ErrPlayerNotFound.
func (s *Store) GetPlayer(ctx context.Context, id uuid.UUID) (*player.Player, error) {
	p, err := scanPlayer(s.pool.DB().QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, action.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying player: %w", err)
	}
	return p, nil
}
