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

const characterColumns = `
	id, player_id, name, class, level, experience, health, max_health, mana, max_mana,
	strength, dexterity, intelligence, constitution, wisdom, charisma,
	currency, action_points, max_action_points, location_id, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCharacter(row rowScanner) (*character.Character, error) {
	var c character.Character
	var created, updated int64
	err := row.Scan(
		&c.ID, &c.PlayerID, &c.Name, &c.Class, &c.Level, &c.Experience,
		&c.Health, &c.MaxHealth, &c.Mana, &c.MaxMana,
		&c.Attributes.Strength, &c.Attributes.Dexterity, &c.Attributes.Intelligence,
		&c.Attributes.Constitution, &c.Attributes.Wisdom, &c.Attributes.Charisma,
		&c.Currency, &c.ActionPoints, &c.MaxActionPoints, &c.LocationID, &c.Version,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(created)
	c.UpdatedAt = fromMillis(updated)
	return &c, nil
}

func getCharacter(ctx context.Context, q queryer, id uuid.UUID) (*character.Character, error) {
	c, err := scanCharacter(q.QueryRowContext(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, action.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading character: %w", err)
	}
	return c, nil
}

// CreateCharacter inserts c.
//
// Precondition: c.PlayerID and c.LocationID must reference existing rows.
// Postcondition: Returns character.ErrNameTaken when the name is already used
// by any character, compared case-insensitively.
func (s *Store) CreateCharacter(ctx context.Context, c *character.Character) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PlayerID, c.Name, c.Class, c.Level, c.Experience,
		c.Health, c.MaxHealth, c.Mana, c.MaxMana,
		c.Attributes.Strength, c.Attributes.Dexterity, c.Attributes.Intelligence,
		c.Attributes.Constitution, c.Attributes.Wisdom, c.Attributes.Charisma,
		c.Currency, c.ActionPoints, c.MaxActionPoints, c.LocationID, c.Version,
		toMillis(c.CreatedAt), toMillis(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return character.ErrNameTaken
		}
		return fmt.Errorf("inserting character: %w", err)
	}
	return nil
}

// NameTaken reports whether any character already uses name, ignoring case.
func (s *Store) NameTaken(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM characters WHERE LOWER(name) = LOWER(?)`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking character name: %w", err)
	}
	return n > 0, nil
}

// GetCharacter returns the character with the given ID or action.ErrCharacterNotFound.
func (s *Store) GetCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error) {
	return getCharacter(ctx, s.db, id)
}

// ListCharacters returns a player's characters, newest first.
func (s *Store) ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*character.Character, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+characterColumns+` FROM characters
		WHERE player_id = ? ORDER BY created_at DESC, name`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	var out []*character.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Inventory returns the character's inventory lines ordered by item and slot.
func (s *Store) Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error) {
	return listInventory(ctx, s.db, characterID)
}

func listInventory(ctx context.Context, q queryer, characterID uuid.UUID) ([]character.InventoryLine, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT item_id, slot, quantity, equipped FROM character_inventory
		WHERE character_id = ? ORDER BY item_id, slot`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	var out []character.InventoryLine
	for rows.Next() {
		var l character.InventoryLine
		if err := rows.Scan(&l.ItemID, &l.Slot, &l.Quantity, &l.Equipped); err != nil {
			return nil, fmt.Errorf("scanning inventory line: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
