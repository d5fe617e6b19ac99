// Package world provides the world catalog model: towns, locations, actions,
// items, and the typed reward specification attached to actions.
package world

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LocationType classifies a location within a town.
type LocationType string

// Location types.
const (
	LocationShop     LocationType = "shop"
	LocationTraining LocationType = "training"
	LocationService  LocationType = "service"
	LocationSocial   LocationType = "social"
	LocationQuest    LocationType = "quest"
	LocationCrafting LocationType = "crafting"
	LocationCombat   LocationType = "combat"
	LocationTravel   LocationType = "travel"
	LocationSpecial  LocationType = "special"
)

// Valid reports whether t is a known location type.
func (t LocationType) Valid() bool {
	switch t {
	case LocationShop, LocationTraining, LocationService, LocationSocial, LocationQuest,
		LocationCrafting, LocationCombat, LocationTravel, LocationSpecial:
		return true
	}
	return false
}

// ActionType describes how an action plays out for the client.
type ActionType string

// Action types.
const (
	ActionInstant    ActionType = "instant"
	ActionTimed      ActionType = "timed"
	ActionDialog     ActionType = "dialog"
	ActionNavigation ActionType = "navigation"
	ActionCombat     ActionType = "combat"
	ActionShop       ActionType = "shop"
)

// Valid reports whether t is a known action type.
func (t ActionType) Valid() bool {
	switch t {
	case ActionInstant, ActionTimed, ActionDialog, ActionNavigation, ActionCombat, ActionShop:
		return true
	}
	return false
}

// ActionCategory is a classification tag. The engine never branches on it.
type ActionCategory string

// Action categories.
const (
	CategoryCombat    ActionCategory = "combat"
	CategoryMagic     ActionCategory = "magic"
	CategoryMelee     ActionCategory = "melee"
	CategoryRanged    ActionCategory = "ranged"
	CategoryHeal      ActionCategory = "heal"
	CategoryRest      ActionCategory = "rest"
	CategoryShop      ActionCategory = "shop"
	CategoryCraft     ActionCategory = "craft"
	CategorySocial    ActionCategory = "social"
	CategoryMission   ActionCategory = "mission"
	CategoryTravel    ActionCategory = "travel"
	CategoryKnowledge ActionCategory = "knowledge"
)

// Valid reports whether c is a known category.
func (c ActionCategory) Valid() bool {
	switch c {
	case CategoryCombat, CategoryMagic, CategoryMelee, CategoryRanged, CategoryHeal, CategoryRest,
		CategoryShop, CategoryCraft, CategorySocial, CategoryMission, CategoryTravel, CategoryKnowledge:
		return true
	}
	return false
}

// UnlockKind names what an UnlockReward grants access to.
type UnlockKind string

// Unlock kinds.
const (
	UnlockLocation UnlockKind = "location"
	UnlockAction   UnlockKind = "action"
	UnlockQuest    UnlockKind = "quest"
	UnlockSkill    UnlockKind = "skill"
)

// Valid reports whether k is a known unlock kind.
func (k UnlockKind) Valid() bool {
	switch k {
	case UnlockLocation, UnlockAction, UnlockQuest, UnlockSkill:
		return true
	}
	return false
}

// Town is a region of the world that contains locations.
type Town struct {
	ID            uuid.UUID
	Name          string
	Description   string
	Region        string
	RequiredLevel int
	MapImage      string
	SafeZone      bool
}

// Validate checks the town's own fields.
func (t *Town) Validate() error {
	if t.ID == uuid.Nil {
		return errors.New("town ID must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("town %s: name must not be empty", t.ID)
	}
	if t.Region == "" {
		return fmt.Errorf("town %q: region must not be empty", t.Name)
	}
	if t.RequiredLevel < 0 {
		return fmt.Errorf("town %q: required_level must be >= 0", t.Name)
	}
	return nil
}

// Location is a place inside a town where actions are offered.
type Location struct {
	ID          uuid.UUID
	TownID      uuid.UUID
	Name        string
	Description string
	Icon        string
	Type        LocationType
	// MapX and MapY are presentation-only coordinates.
	MapX            float64
	MapY            float64
	RequiredLevel   int
	RequiredQuestID *uuid.UUID
	Active          bool
	SortOrder       int
}

// Validate checks the location's own fields.
func (l *Location) Validate() error {
	if l.ID == uuid.Nil {
		return errors.New("location ID must not be empty")
	}
	if l.Name == "" {
		return fmt.Errorf("location %s: name must not be empty", l.ID)
	}
	if l.TownID == uuid.Nil {
		return fmt.Errorf("location %q: town ID must not be empty", l.Name)
	}
	if !l.Type.Valid() {
		return fmt.Errorf("location %q: unknown type %q", l.Name, l.Type)
	}
	if l.RequiredLevel < 0 {
		return fmt.Errorf("location %q: required_level must be >= 0", l.Name)
	}
	return nil
}

// Requirements gate whether a character may invoke an action.
type Requirements struct {
	Level    int
	Currency int64
	// ItemID is nil when no item is required.
	ItemID           *uuid.UUID
	ItemQuantity     int
	ActionPointsCost int
}

// Timing holds an action's cooldown and nominal duration in seconds.
type Timing struct {
	CooldownSeconds int
	DurationSeconds int
}

// Action is something a character can do at a location.
type Action struct {
	ID           uuid.UUID
	LocationID   uuid.UUID
	Name         string
	Description  string
	Icon         string
	Type         ActionType
	Category     ActionCategory
	Requirements Requirements
	Timing       Timing
	Rewards      RewardSpec
	Repeatable   bool
	Active       bool
	SortOrder    int
}

// Validate checks the action's own fields and its reward specification.
//
// Postcondition: Returns nil only if every numeric invariant holds.
func (a *Action) Validate() error {
	if a.ID == uuid.Nil {
		return errors.New("action ID must not be empty")
	}
	if a.Name == "" {
		return fmt.Errorf("action %s: name must not be empty", a.ID)
	}
	if a.LocationID == uuid.Nil {
		return fmt.Errorf("action %q: location ID must not be empty", a.Name)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("action %q: unknown type %q", a.Name, a.Type)
	}
	if !a.Category.Valid() {
		return fmt.Errorf("action %q: unknown category %q", a.Name, a.Category)
	}
	r := a.Requirements
	switch {
	case r.Level < 0:
		return fmt.Errorf("action %q: required_level must be >= 0", a.Name)
	case r.Currency < 0:
		return fmt.Errorf("action %q: required_currency must be >= 0", a.Name)
	case r.ActionPointsCost < 0:
		return fmt.Errorf("action %q: action_points_cost must be >= 0", a.Name)
	case r.ItemID != nil && r.ItemQuantity < 1:
		return fmt.Errorf("action %q: required item quantity must be >= 1", a.Name)
	case a.Timing.CooldownSeconds < 0:
		return fmt.Errorf("action %q: cooldown_seconds must be >= 0", a.Name)
	case a.Timing.DurationSeconds < 0:
		return fmt.Errorf("action %q: duration_seconds must be >= 0", a.Name)
	}
	if err := a.Rewards.Validate(); err != nil {
		return fmt.Errorf("action %q: %w", a.Name, err)
	}
	return nil
}

// Item is catalog reference data for anything a character can hold.
type Item struct {
	ID          uuid.UUID
	Name        string
	Description string
	Type        string
	Rarity      string
	BasePrice   int64
}

// Validate checks the item's own fields.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return errors.New("item ID must not be empty")
	}
	if i.Name == "" {
		return fmt.Errorf("item %s: name must not be empty", i.ID)
	}
	if i.BasePrice < 0 {
		return fmt.Errorf("item %q: base_price must be >= 0", i.Name)
	}
	return nil
}

// RewardSpec is the closed set of effects an action may grant. Every field is
// independently optional; a nil or empty field has no effect.
type RewardSpec struct {
	Currency   *int64         `json:"currency,omitempty"`
	Experience *int64         `json:"experience,omitempty"`
	Items      []ItemReward   `json:"items,omitempty"`
	Stats      *StatChanges   `json:"stat_changes,omitempty"`
	Unlocks    []UnlockReward `json:"unlocks,omitempty"`
	TeleportTo *uuid.UUID     `json:"teleport_to,omitempty"`
}

// Validate checks amounts, quantities, chances, and unlock kinds.
func (r *RewardSpec) Validate() error {
	if r.Currency != nil && *r.Currency < 0 {
		return errors.New("reward currency must be >= 0")
	}
	if r.Experience != nil && *r.Experience < 0 {
		return errors.New("reward experience must be >= 0")
	}
	for i, it := range r.Items {
		if it.ItemID == uuid.Nil {
			return fmt.Errorf("reward item[%d]: item ID must not be empty", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("reward item[%d]: quantity must be >= 1", i)
		}
		if it.Chance < 0 || it.Chance > 1 {
			return fmt.Errorf("reward item[%d]: chance %v outside [0, 1]", i, it.Chance)
		}
	}
	for i, u := range r.Unlocks {
		if !u.Kind.Valid() {
			return fmt.Errorf("reward unlock[%d]: unknown kind %q", i, u.Kind)
		}
		if u.TargetID == uuid.Nil {
			return fmt.Errorf("reward unlock[%d]: target ID must not be empty", i)
		}
	}
	return nil
}

// ItemReward grants Quantity of an item with probability Chance.
type ItemReward struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
	Chance   float64   `json:"chance"`
}

// UnmarshalJSON decodes an ItemReward, defaulting Chance to 1.0 when absent.
func (r *ItemReward) UnmarshalJSON(data []byte) error {
	type plain ItemReward
	v := plain{Chance: 1}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = ItemReward(v)
	return nil
}

// StatChanges holds optional per-stat deltas.
type StatChanges struct {
	Health       *int `json:"health,omitempty" yaml:"health"`
	Mana         *int `json:"mana,omitempty" yaml:"mana"`
	Strength     *int `json:"strength,omitempty" yaml:"strength"`
	Dexterity    *int `json:"dexterity,omitempty" yaml:"dexterity"`
	Intelligence *int `json:"intelligence,omitempty" yaml:"intelligence"`
	Constitution *int `json:"constitution,omitempty" yaml:"constitution"`
	Wisdom       *int `json:"wisdom,omitempty" yaml:"wisdom"`
	Charisma     *int `json:"charisma,omitempty" yaml:"charisma"`
}

// UnlockReward reports access granted to a location, action, quest, or skill.
// Applying it is the job of whoever consumes the outcome.
type UnlockReward struct {
	Kind     UnlockKind `json:"kind"`
	TargetID uuid.UUID  `json:"target_id"`
}

// EncodeRewards serializes a RewardSpec for a JSON storage column.
func EncodeRewards(r RewardSpec) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding rewards: %w", err)
	}
	return data, nil
}

// DecodeRewards parses a RewardSpec from a JSON storage column. Empty or
// null input yields the zero RewardSpec.
func DecodeRewards(data []byte) (RewardSpec, error) {
	var r RewardSpec
	if len(data) == 0 || string(data) == "null" {
		return r, nil
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return RewardSpec{}, fmt.Errorf("decoding rewards: %w", err)
	}
	return r, nil
}
