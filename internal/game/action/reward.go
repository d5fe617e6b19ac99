package action

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// ItemGrant is an item that survived its drop roll.
type ItemGrant struct {
	ItemID   uuid.UUID `json:"item_id"`
	Quantity int       `json:"quantity"`
}

// Outcome is a resolved reward: flat amounts plus the items that dropped.
type Outcome struct {
	Currency   int64                `json:"currency"`
	Experience int64                `json:"experience"`
	Items      []ItemGrant          `json:"items,omitempty"`
	Stats      *world.StatChanges   `json:"stat_changes,omitempty"`
	Unlocks    []world.UnlockReward `json:"unlocks,omitempty"`
	TeleportTo *uuid.UUID           `json:"teleport_to,omitempty"`
}

// Resolve turns a reward specification into a concrete outcome.
// Each ItemReward draws exactly one sample from src, in specification order,
// and is included iff the sample is below its chance.
//
// Precondition: src must be non-nil.
// Postcondition: Consumes exactly len(spec.Items) samples from src.
func Resolve(spec world.RewardSpec, src dice.Source) Outcome {
	var out Outcome
	if spec.Currency != nil {
		out.Currency = *spec.Currency
	}
	if spec.Experience != nil {
		out.Experience = *spec.Experience
	}
	for _, ir := range spec.Items {
		if dice.Roll(src, ir.Chance) {
			out.Items = append(out.Items, ItemGrant{ItemID: ir.ItemID, Quantity: ir.Quantity})
		}
	}
	if spec.Stats != nil {
		stats := *spec.Stats
		out.Stats = &stats
	}
	if len(spec.Unlocks) > 0 {
		out.Unlocks = append([]world.UnlockReward(nil), spec.Unlocks...)
	}
	if spec.TeleportTo != nil {
		target := *spec.TeleportTo
		out.TeleportTo = &target
	}
	return out
}
