// Package character defines the character domain model, its dependent
// per-character records, and pure creation logic.
package character

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Starting values for newly created characters.
const (
	StartingHealth       = 100
	StartingMana         = 50
	StartingAttribute    = 10
	StartingCurrency     = 100
	StartingActionPoints = 10
	StartingLevel        = 1
)

// Name length bounds, counted in runes after trimming.
const (
	MinNameLength = 3
	MaxNameLength = 24
)

// Class is a character archetype. It has no mechanical effect on actions.
type Class string

// Character classes.
const (
	ClassAdventurer Class = "adventurer"
	ClassWarrior    Class = "warrior"
	ClassMage       Class = "mage"
	ClassRogue      Class = "rogue"
	ClassCleric     Class = "cleric"
)

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	switch c {
	case ClassAdventurer, ClassWarrior, ClassMage, ClassRogue, ClassCleric:
		return true
	}
	return false
}

// Attributes holds the six core attribute values.
type Attributes struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Intelligence int `json:"intelligence"`
	Constitution int `json:"constitution"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Character is a player character's persistent state.
//
// Version is the optimistic concurrency counter; storage bumps it on every
// successful save.
type Character struct {
	ID       uuid.UUID
	PlayerID uuid.UUID

	Name       string
	Class      Class
	Level      int
	Experience int64

	Health          int
	MaxHealth       int
	Mana            int
	MaxMana         int
	Attributes      Attributes
	Currency        int64
	ActionPoints    int
	MaxActionPoints int

	LocationID uuid.UUID
	Version    int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a character with the fixed starting values placed at start.
//
// Precondition: playerID and start must be non-nil UUIDs.
// Postcondition: Returns a Character satisfying Validate, or a non-nil error.
func New(playerID uuid.UUID, name string, class Class, start uuid.UUID, now time.Time) (*Character, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	if class == "" {
		class = ClassAdventurer
	}
	if !class.Valid() {
		return nil, fmt.Errorf("unknown class %q", class)
	}
	if playerID == uuid.Nil {
		return nil, errors.New("player ID must not be empty")
	}
	if start == uuid.Nil {
		return nil, errors.New("start location must not be empty")
	}
	now = now.UTC()
	return &Character{
		ID:         uuid.New(),
		PlayerID:   playerID,
		Name:       name,
		Class:      class,
		Level:      StartingLevel,
		Experience: 0,
		Health:     StartingHealth,
		MaxHealth:  StartingHealth,
		Mana:       StartingMana,
		MaxMana:    StartingMana,
		Attributes: Attributes{
			Strength:     StartingAttribute,
			Dexterity:    StartingAttribute,
			Intelligence: StartingAttribute,
			Constitution: StartingAttribute,
			Wisdom:       StartingAttribute,
			Charisma:     StartingAttribute,
		},
		Currency:        StartingCurrency,
		ActionPoints:    StartingActionPoints,
		MaxActionPoints: StartingActionPoints,
		LocationID:      start,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// NormalizeName trims name and checks its length and character set.
//
// Postcondition: Returns the trimmed name, or an error if it is out of bounds
// or contains anything but letters, digits, spaces, hyphens, or apostrophes.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	if n < MinNameLength || n > MaxNameLength {
		return "", fmt.Errorf("name must be %d-%d characters", MinNameLength, MaxNameLength)
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' && r != '-' && r != '\'' {
			return "", fmt.Errorf("name contains invalid character %q", r)
		}
	}
	return name, nil
}

// Validate checks the character's resource invariants.
func (c *Character) Validate() error {
	switch {
	case c.Level < 1:
		return fmt.Errorf("character %s: level %d < 1", c.ID, c.Level)
	case c.Health < 0 || c.Health > c.MaxHealth:
		return fmt.Errorf("character %s: health %d outside [0, %d]", c.ID, c.Health, c.MaxHealth)
	case c.Mana < 0 || c.Mana > c.MaxMana:
		return fmt.Errorf("character %s: mana %d outside [0, %d]", c.ID, c.Mana, c.MaxMana)
	case c.ActionPoints < 0 || c.ActionPoints > c.MaxActionPoints:
		return fmt.Errorf("character %s: action points %d outside [0, %d]", c.ID, c.ActionPoints, c.MaxActionPoints)
	case c.Currency < 0:
		return fmt.Errorf("character %s: currency %d < 0", c.ID, c.Currency)
	}
	return nil
}

// Unslotted is the slot of the inventory line that rewards are granted into.
const Unslotted = ""

// InventoryLine is one (item, slot) stack in a character's inventory.
//
// Invariant: Quantity >= 1; lines that reach zero are deleted.
type InventoryLine struct {
	ItemID   uuid.UUID
	Slot     string
	Quantity int
	Equipped bool
}

// Cooldown blocks an action for a character until AvailableAt.
type Cooldown struct {
	ActionID    uuid.UUID
	AvailableAt time.Time
}

// Active reports whether the cooldown still blocks the action at now.
func (c Cooldown) Active(now time.Time) bool {
	return c.AvailableAt.After(now)
}

// Completion counts how often a character has completed an action.
type Completion struct {
	ActionID       uuid.UUID
	TimesCompleted int
	CompletedAt    time.Time
}

// ErrNameTaken is returned when another character already uses a name,
// compared case-insensitively.
var ErrNameTaken = errors.New("character name already taken")
