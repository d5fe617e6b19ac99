// Package action implements action resolution: the eligibility evaluator,
// the reward resolver, the engine that applies both atomically, and the
// cooldown sweeper.
package action

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// Reason names why an action may not run.
type Reason string

// Ineligibility reasons, in evaluation order.
const (
	ReasonLocationInactive         Reason = "LocationInactive"
	ReasonInsufficientLevel        Reason = "InsufficientLevel"
	ReasonInsufficientCurrency     Reason = "InsufficientCurrency"
	ReasonInsufficientActionPoints Reason = "InsufficientActionPoints"
	ReasonMissingRequiredItem      Reason = "MissingRequiredItem"
	ReasonOnCooldown               Reason = "OnCooldown"
	ReasonAlreadyCompleted         Reason = "AlreadyCompleted"
)

// Snapshot is the already-loaded per-character state Evaluate reads.
type Snapshot struct {
	Character *character.Character
	Inventory []character.InventoryLine
	// Cooldown is the row for the evaluated action, or nil when none exists.
	Cooldown *character.Cooldown
	// Completion is the row for the evaluated action, or nil when none exists.
	Completion *character.Completion
}

// Eligibility is the evaluator's verdict. A zero Reason means eligible.
type Eligibility struct {
	Reason Reason
}

// Eligible reports whether the action may run.
func (e Eligibility) Eligible() bool {
	return e.Reason == ""
}

// Evaluate decides whether the snapshot's character may invoke a at loc.
// Checks run in a fixed order and the first failure wins.
//
// Precondition: s.Character, a, and loc must be non-nil; loc must own a.
// Postcondition: Performs no I/O and no mutation.
func Evaluate(s Snapshot, a *world.Action, loc *world.Location, now time.Time) Eligibility {
	c := s.Character
	req := a.Requirements
	switch {
	case !a.Active || !loc.Active:
		return Eligibility{Reason: ReasonLocationInactive}
	case c.Level < req.Level:
		return Eligibility{Reason: ReasonInsufficientLevel}
	case c.Currency < req.Currency:
		return Eligibility{Reason: ReasonInsufficientCurrency}
	case c.ActionPoints < req.ActionPointsCost:
		return Eligibility{Reason: ReasonInsufficientActionPoints}
	case req.ItemID != nil && HeldQuantity(s.Inventory, *req.ItemID) < req.ItemQuantity:
		return Eligibility{Reason: ReasonMissingRequiredItem}
	case s.Cooldown != nil && s.Cooldown.Active(now):
		return Eligibility{Reason: ReasonOnCooldown}
	case !a.Repeatable && s.Completion != nil && s.Completion.TimesCompleted > 0:
		return Eligibility{Reason: ReasonAlreadyCompleted}
	}
	return Eligibility{}
}

// HeldQuantity sums the unequipped quantity of itemID across all slots.
func HeldQuantity(inv []character.InventoryLine, itemID uuid.UUID) int {
	total := 0
	for _, line := range inv {
		if line.ItemID == itemID && !line.Equipped {
			total += line.Quantity
		}
	}
	return total
}
