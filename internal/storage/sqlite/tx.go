package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
)

// tx implements action.Tx over one SQLite transaction.
type tx struct {
	q queryer
}

// LockCharacter loads the character. The immediate transaction already holds
// the database write lock, so no row lock is needed.
func (t *tx) LockCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error) {
	return getCharacter(ctx, t.q, id)
}

// SaveCharacter writes c guarded by its version.
func (t *tx) SaveCharacter(ctx context.Context, c *character.Character) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE characters SET
			level = ?, experience = ?, health = ?, max_health = ?, mana = ?, max_mana = ?,
			strength = ?, dexterity = ?, intelligence = ?, constitution = ?, wisdom = ?, charisma = ?,
			currency = ?, action_points = ?, max_action_points = ?, location_id = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		c.Level, c.Experience, c.Health, c.MaxHealth, c.Mana, c.MaxMana,
		c.Attributes.Strength, c.Attributes.Dexterity, c.Attributes.Intelligence,
		c.Attributes.Constitution, c.Attributes.Wisdom, c.Attributes.Charisma,
		c.Currency, c.ActionPoints, c.MaxActionPoints, c.LocationID,
		toMillis(c.UpdatedAt), c.ID, c.Version,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating character: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating character: %w", err)
	}
	if n == 0 {
		return action.ErrConcurrencyConflict
	}
	c.Version++
	return nil
}

func (t *tx) Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error) {
	return listInventory(ctx, t.q, characterID)
}

func (t *tx) InsertInventoryLine(ctx context.Context, characterID uuid.UUID, line character.InventoryLine) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO character_inventory (character_id, item_id, slot, quantity, equipped)
		VALUES (?, ?, ?, ?, ?)`,
		characterID, line.ItemID, line.Slot, line.Quantity, line.Equipped,
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting inventory line: %w", err))
	}
	return nil
}

func (t *tx) UpdateInventoryQuantity(ctx context.Context, characterID, itemID uuid.UUID, slot string, quantity int) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE character_inventory SET quantity = ?
		WHERE character_id = ? AND item_id = ? AND slot = ?`,
		quantity, characterID, itemID, slot,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating inventory line: %w", err))
	}
	return nil
}

func (t *tx) DeleteInventoryLine(ctx context.Context, characterID, itemID uuid.UUID, slot string) error {
	_, err := t.q.ExecContext(ctx, `
		DELETE FROM character_inventory
		WHERE character_id = ? AND item_id = ? AND slot = ?`,
		characterID, itemID, slot,
	)
	if err != nil {
		return mapError(fmt.Errorf("deleting inventory line: %w", err))
	}
	return nil
}

func (t *tx) Cooldown(ctx context.Context, characterID, actionID uuid.UUID) (*character.Cooldown, error) {
	var at int64
	err := t.q.QueryRowContext(ctx, `
		SELECT available_at FROM action_cooldowns
		WHERE character_id = ? AND action_id = ?`,
		characterID, actionID,
	).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cooldown: %w", err)
	}
	return &character.Cooldown{ActionID: actionID, AvailableAt: fromMillis(at)}, nil
}

func (t *tx) InsertCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO action_cooldowns (character_id, action_id, available_at) VALUES (?, ?, ?)`,
		characterID, cd.ActionID, toMillis(cd.AvailableAt),
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting cooldown: %w", err))
	}
	return nil
}

func (t *tx) UpdateCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE action_cooldowns SET available_at = ?
		WHERE character_id = ? AND action_id = ?`,
		toMillis(cd.AvailableAt), characterID, cd.ActionID,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating cooldown: %w", err))
	}
	return nil
}

func (t *tx) Completion(ctx context.Context, characterID, actionID uuid.UUID) (*character.Completion, error) {
	c := character.Completion{ActionID: actionID}
	var at int64
	err := t.q.QueryRowContext(ctx, `
		SELECT times_completed, completed_at FROM completed_actions
		WHERE character_id = ? AND action_id = ?`,
		characterID, actionID,
	).Scan(&c.TimesCompleted, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading completion: %w", err)
	}
	c.CompletedAt = fromMillis(at)
	return &c, nil
}

func (t *tx) InsertCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO completed_actions (character_id, action_id, times_completed, completed_at)
		VALUES (?, ?, ?, ?)`,
		characterID, c.ActionID, c.TimesCompleted, toMillis(c.CompletedAt),
	)
	if err != nil {
		return mapError(fmt.Errorf("inserting completion: %w", err))
	}
	return nil
}

func (t *tx) UpdateCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error {
	_, err := t.q.ExecContext(ctx, `
		UPDATE completed_actions SET times_completed = ?, completed_at = ?
		WHERE character_id = ? AND action_id = ?`,
		c.TimesCompleted, toMillis(c.CompletedAt), characterID, c.ActionID,
	)
	if err != nil {
		return mapError(fmt.Errorf("updating completion: %w", err))
	}
	return nil
}
