package action

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Catalog is the read-only world reference data the engine resolves
// actions against. *world.Catalog satisfies it.
type Catalog interface {
	Town(id uuid.UUID) (*world.Town, bool)
	Location(id uuid.UUID) (*world.Location, bool)
	Action(id uuid.UUID) (*world.Action, bool)
	Item(id uuid.UUID) (*world.Item, bool)
	ActionsByLocation(locationID uuid.UUID) []*world.Action
}

// Store is the character state store.
//
// Implementations return ErrCharacterNotFound for a missing character and
// ErrConcurrencyConflict when a write lost a race; any other error is treated
// as a storage failure.
type Store interface {
	// InTx runs fn inside one transaction, committing iff fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// ActiveCooldowns returns the character's cooldowns with AvailableAt > now.
	ActiveCooldowns(ctx context.Context, characterID uuid.UUID, now time.Time) ([]character.Cooldown, error)
	// SweepCooldowns deletes cooldowns with AvailableAt <= now and returns how many were removed.
	SweepCooldowns(ctx context.Context, now time.Time) (int64, error)
}

// Tx is the set of per-character reads and writes available inside a
// transaction. Writes are explicit inserts, updates, and deletes; the engine
// decides which one applies.
type Tx interface {
	// LockCharacter loads the character and holds its row until the
	// transaction ends.
	LockCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error)
	// SaveCharacter writes c if its stored version still equals c.Version,
	// then advances c.Version. A version mismatch yields ErrConcurrencyConflict.
	SaveCharacter(ctx context.Context, c *character.Character) error

	Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error)
	InsertInventoryLine(ctx context.Context, characterID uuid.UUID, line character.InventoryLine) error
	UpdateInventoryQuantity(ctx context.Context, characterID, itemID uuid.UUID, slot string, quantity int) error
	DeleteInventoryLine(ctx context.Context, characterID, itemID uuid.UUID, slot string) error

	// Cooldown returns nil, nil when no row exists.
	Cooldown(ctx context.Context, characterID, actionID uuid.UUID) (*character.Cooldown, error)
	InsertCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error
	UpdateCooldown(ctx context.Context, characterID uuid.UUID, cd character.Cooldown) error

	// Completion returns nil, nil when no row exists.
	Completion(ctx context.Context, characterID, actionID uuid.UUID) (*character.Completion, error)
	InsertCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error
	UpdateCompletion(ctx context.Context, characterID uuid.UUID, c character.Completion) error
}
