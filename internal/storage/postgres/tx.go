package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// tx implements action.Tx over one pgx transaction.
type tx struct {
	q querier
}

// LockCharacter loads the character and holds its row lock until the
// transaction ends.
func (t *tx) LockCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error) {
	return getCharacter(ctx, t.q, id, true)
}

// SaveCharacter writes c guarded by its version.
func (t *tx) SaveCharacter(ctx context.Context, c *character.Character) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE characters SET
			level = $1, experience = $2, health = $3, max_health = $4, mana = $5, max_mana = $6,
			strength = $7, dexterity = $8, intelligence = $9, constitution = $10, wisdom = $11, charisma = $12,
			currency = $13, action_points = $14, max_action_points = $15, location_id = $16,
			version = version + 1, updated_at = $17
		WHERE id = $18 AND version = $19`,
		c.Level, c.Experience, c.Health, c.MaxHealth, c.Mana, c.MaxMana,
		c.Attributes.Strength, c.Attributes.Dexterity, c.Attributes.Intelligence,
		c.Attributes.Constitution, c.Attributes.Wisdom, c.Attributes.Charisma,
		c.Currency, c.ActionPoints, c.MaxActionPoints, c.LocationID,
		c.UpdatedAt.UTC(), c.ID, c.Version,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating character: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return action.ErrConcurrencyConflict
	}
	c.Version++
	return nil
}

func (t *tx) Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error) {
	return listInventory(ctx, t.q, characterID)
}

func (t *tx) InsertInventoryLine(ctx context.Context, characterID uuid.UUID, line character.InventoryLine) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO character_inventory (character_id, item_id, slot, quantity, equipped)
		VALUES ($1, $2, $3, $4, $5)`,
		characterID, line.ItemID, line.Slot, line.Quantity, line.Equipped,
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting inventory line: %w", err))
	}
	return nil
}

func (t *tx) UpdateInventoryQuantity(ctx context.Context, characterID, itemID uuid.UUID, slot string, quantity int) error {
	_, err := t.q.Exec(ctx, `
		UPDATE character_inventory SET quantity = $4
		WHERE character_id = $1 AND item_id = $2 AND slot = $3`,
		characterID, itemID, slot, quantity,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating inventory line: %w", err))
	}
	return nil
}

func (t *tx) DeleteInventoryLine(ctx context.Context, characterID, itemID uuid.UUID, slot string) error {
	_, err := t.q.Exec(ctx, `
		DELETE FROM character_inventory
		WHERE character_id = $1 AND item_id = $2 AND slot = $3`,
		characterID, itemID, slot,
	)
	if err != nil {
		return mapError(fmt.Errorf("deleting inventory line: %w", err))
	}
	return nil
}

func (t *tx) Cooldown(ctx context.Context, characterID, actionID uuid.UUID) (*character.Cooldown, error) {
	cd := character.Cooldown{ActionID: actionID}
	err := t.q.QueryRow(ctx, `
		SELECT available_at FROM action_cooldowns
		WHERE character_id = $1 AND action_id = $2`,
		characterID, actionID,
	).Scan(&cd.AvailableAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cooldown: %w", err)
	}
	cd.AvailableAt = cd.AvailableAt.UTC()
	return &cd, nil
}

func (t *tx) InsertCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO action_cooldowns (character_id, action_id, available_at) VALUES ($1, $2, $3)`,
		characterID, cd.ActionID, cd.AvailableAt.UTC(),
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting cooldown: %w", err))
	}
	return nil
}

func (t *tx) UpdateCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error {
	_, err := t.q.Exec(ctx, `
		UPDATE action_cooldowns SET available_at = $3
		WHERE character_id = $1 AND action_id = $2`,
		characterID, cd.ActionID, cd.AvailableAt.UTC(),
	)
	if err != nil {
		return mapError(fmt.Errorf("updating cooldown: %w", err))
	}
	return nil
}

func (t *tx) Completion(ctx context.Context, characterID, actionID uuid.UUID) (*character.Completion, error) {
	c := character.Completion{ActionID: actionID}
	err := t.q.QueryRow(ctx, `
		SELECT times_completed, completed_at FROM completed_actions
		WHERE character_id = $1 AND action_id = $2`,
		characterID, actionID,
	).Scan(&c.TimesCompleted, &c.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading completion: %w", err)
	}
	c.CompletedAt = c.CompletedAt.UTC()
	return &c, nil
}

func (t *tx) InsertCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO completed_actions (character_id, action_id, times_completed, completed_at)
		VALUES ($1, $2, $3, $4)`,
		characterID, c.ActionID, c.TimesCompleted, c.CompletedAt.UTC(),
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting completion: %w", err))
	}
	return nil
}

func (t *tx) UpdateCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error {
	_, err := t.q.Exec(ctx, `
		UPDATE completed_actions SET times_completed = $3, completed_at = $4
		WHERE character_id = $1 AND action_id = $2`,
		characterID, c.ActionID, c.TimesCompleted, c.CompletedAt.UTC(),
	)
	if err != nil {
		return mapError(fmt.Errorf("updating completion: %w", err))
	}
	return nil
}
