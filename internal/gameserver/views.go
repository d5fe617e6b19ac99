package gameserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// ExecuteActionRequest asks to execute an action for a character.
type ExecuteActionRequest struct {
	CharacterID uuid.UUID `json:"character_id"`
	ActionID    uuid.UUID `json:"action_id"`
}

// AvailableActionsRequest lists the actions a character can start. An empty
// LocationID means the character's current location.
type AvailableActionsRequest struct {
	CharacterID uuid.UUID  `json:"character_id"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
}

// ResolvePlayerRequest identifies a player by wallet address.
type ResolvePlayerRequest struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username,omitempty"`
}

// CreateCharacterRequest creates a character for an existing player.
type CreateCharacterRequest struct {
	PlayerID uuid.UUID `json:"player_id"`
	Name     string    `json:"name"`
	Class    string    `json:"class,omitempty"`
}

// GetCharacterRequest fetches one character.
type GetCharacterRequest struct {
	CharacterID uuid.UUID `json:"character_id"`
}

// ActionView is the client-facing shape of a catalog action.
type ActionView struct {
	ID               uuid.UUID        `json:"id"`
	LocationID       uuid.UUID        `json:"location_id"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Icon             string           `json:"icon,omitempty"`
	Type             string           `json:"type"`
	Category         string           `json:"category"`
	RequiredLevel    int              `json:"required_level"`
	RequiredCurrency int64            `json:"required_currency"`
	RequiredItemID   *uuid.UUID       `json:"required_item_id,omitempty"`
	RequiredItemQty  int              `json:"required_item_quantity,omitempty"`
	ActionPointsCost int              `json:"action_points_cost"`
	CooldownSeconds  int              `json:"cooldown_seconds"`
	DurationSeconds  int              `json:"duration_seconds"`
	Rewards          world.RewardSpec `json:"rewards"`
	Repeatable       bool             `json:"repeatable"`
}

// AvailableActionsView is the GetAvailableActions response.
type AvailableActionsView struct {
	LocationID uuid.UUID    `json:"location_id"`
	Actions    []ActionView `json:"actions"`
}

// InventoryView is one inventory stack.
type InventoryView struct {
	ItemID   uuid.UUID `json:"item_id"`
	Slot     string    `json:"slot,omitempty"`
	Quantity int       `json:"quantity"`
	Equipped bool      `json:"equipped,omitempty"`
}

// CharacterView is the client-facing shape of a character.
type CharacterView struct {
	ID              uuid.UUID            `json:"id"`
	PlayerID        uuid.UUID            `json:"player_id"`
	Name            string               `json:"name"`
	Class           string               `json:"class"`
	Level           int                  `json:"level"`
	Experience      int64                `json:"experience"`
	Health          int                  `json:"health"`
	MaxHealth       int                  `json:"max_health"`
	Mana            int                  `json:"mana"`
	MaxMana         int                  `json:"max_mana"`
	Attributes      character.Attributes `json:"attributes"`
	Currency        int64                `json:"currency"`
	ActionPoints    int                  `json:"action_points"`
	MaxActionPoints int                  `json:"max_action_points"`
	LocationID      uuid.UUID            `json:"location_id"`
	TownID          uuid.UUID            `json:"town_id"`
	Version         int64                `json:"version"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Inventory       []InventoryView      `json:"inventory,omitempty"`
}

// PlayerView is the ResolvePlayer response.
type PlayerView struct {
	ID            uuid.UUID       `json:"id"`
	WalletAddress string          `json:"wallet_address"`
	Username      string          `json:"username,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	LastLogin     *time.Time      `json:"last_login,omitempty"`
	Characters    []CharacterView `json:"characters"`
}

func newActionView(a *world.Action) ActionView {
	return ActionView{
		ID:               a.ID,
		LocationID:       a.LocationID,
		Name:             a.Name,
		Description:      a.Description,
		Icon:             a.Icon,
		Type:             string(a.Type),
		Category:         string(a.Category),
		RequiredLevel:    a.Requirements.Level,
		RequiredCurrency: a.Requirements.Currency,
		RequiredItemID:   a.Requirements.ItemID,
		RequiredItemQty:  a.Requirements.ItemQuantity,
		ActionPointsCost: a.Requirements.ActionPointsCost,
		CooldownSeconds:  a.Timing.CooldownSeconds,
		DurationSeconds:  a.Timing.DurationSeconds,
		Rewards:          a.Rewards,
		Repeatable:       a.Repeatable,
	}
}

func newCharacterView(c *character.Character, townID uuid.UUID, inv []character.InventoryLine) CharacterView {
	v := CharacterView{
		ID:              c.ID,
		PlayerID:        c.PlayerID,
		Name:            c.Name,
		Class:           string(c.Class),
		Level:           c.Level,
		Experience:      c.Experience,
		Health:          c.Health,
		MaxHealth:       c.MaxHealth,
		Mana:            c.Mana,
		MaxMana:         c.MaxMana,
		Attributes:      c.Attributes,
		Currency:        c.Currency,
		ActionPoints:    c.ActionPoints,
		MaxActionPoints: c.MaxActionPoints,
		LocationID:      c.LocationID,
		TownID:          townID,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	for _, l := range inv {
		v.Inventory = append(v.Inventory, InventoryView{ItemID: l.ItemID, Slot: l.Slot, Quantity: l.Quantity, Equipped: l.Equipped})
	}
	return v
}

func newPlayerView(p *player.Player, chars []CharacterView) PlayerView {
	if chars == nil {
		chars = []CharacterView{}
	}
	return PlayerView{
		ID:            p.ID,
		WalletAddress: p.WalletAddress,
		Username:      p.Username,
		CreatedAt:     p.CreatedAt,
		LastLogin:     p.LastLogin,
		Characters:    chars,
	}
}

// EncodeStruct converts v to a Struct through its JSON form.
func EncodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	return s, nil
}

// DecodeStruct fills v from the JSON form of s.
func DecodeStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %T: %w", v, err)
	}
	return nil
}
