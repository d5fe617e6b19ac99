package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
)

const characterColumns = `
	id, player_id, name, class, level, experience, health, max_health, mana, max_mana,
	strength, dexterity, intelligence, constitution, wisdom, charisma,
	currency, action_points, max_action_points, location_id, version, created_at, updated_at`

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var c character.Character
	var class string
	err := row.Scan(
		&c.ID, &c.PlayerID, &c.Name, &class, &c.Level, &c.Experience,
		&c.Health, &c.MaxHealth, &c.Mana, &c.MaxMana,
		&c.Attributes.Strength, &c.Attributes.Dexterity, &c.Attributes.Intelligence,
		&c.Attributes.Constitution, &c.Attributes.Wisdom, &c.Attributes.Charisma,
		&c.Currency, &c.ActionPoints, &c.MaxActionPoints, &c.LocationID, &c.Version,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Class = character.Class(class)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func getCharacter(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*character.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	c, err := scanCharacter(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, action.ErrCharacterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying character: %w", err)
	}
	return c, nil
}

// CreateCharacter inserts c.
//
// Precondition: c.PlayerID and c.LocationID must reference existing rows.
// Postcondition: Returns character.ErrNameTaken when the name is already used
// by any character, compared case-insensitively.
func (s *Store) CreateCharacter(ctx context.Context, c *character.Character) error {
	_, err := s.pool.DB().Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		c.ID, c.PlayerID, c.Name, string(c.Class), c.Level, c.Experience,
		c.Health, c.MaxHealth, c.Mana, c.MaxMana,
		c.Attributes.Strength, c.Attributes.Dexterity, c.Attributes.Intelligence,
		c.Attributes.Constitution, c.Attributes.Wisdom, c.Attributes.Charisma,
		c.Currency, c.ActionPoints, c.MaxActionPoints, c.LocationID, c.Version,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return character.ErrNameTaken
		}
		return fmt.Errorf("inserting character: %w", err)
	}
	return nil
}

// NameTaken reports whether any character already uses name, ignoring case.
func (s *Store) NameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := s.pool.DB().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM characters WHERE LOWER(name) = LOWER($1))`, name,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("checking character name: %w", err)
	}
	return taken, nil
}

// GetCharacter returns the character with the given ID or action.ErrCharacterNotFound.
func (s *Store) GetCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error) {
	return getCharacter(ctx, s.pool.DB(), id, false)
}

// ListCharacters returns a player's characters, newest first.
//
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (s *Store) ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*character.Character, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT `+characterColumns+` FROM characters
		WHERE player_id = $1 ORDER BY created_at DESC, name`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	chars := make([]*character.Character, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

// Inventory returns the character's inventory lines ordered by item and slot.
func (s *Store) Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error) {
	return listInventory(ctx, s.pool.DB(), characterID)
}

func listInventory(ctx context.Context, q querier, characterID uuid.UUID) ([]character.InventoryLine, error) {
	rows, err := q.Query(ctx, `
		SELECT item_id, slot, quantity, equipped FROM character_inventory
		WHERE character_id = $1 ORDER BY item_id, slot`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	lines, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (character.InventoryLine, error) {
		var l character.InventoryLine
		err := row.Scan(&l.ItemID, &l.Slot, &l.Quantity, &l.Equipped)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning inventory line: %w", err)
	}
	return lines, nil
}
