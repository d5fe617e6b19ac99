package action

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

type lineKey struct {
	itemID uuid.UUID
	slot   string
}

// inventoryPlan tracks a working copy of a character's inventory so the
// engine can write only the lines that changed.
type inventoryPlan struct {
	original map[lineKey]character.InventoryLine
	current  map[lineKey]character.InventoryLine
}

func newInventoryPlan(lines []character.InventoryLine) *inventoryPlan {
	p := &inventoryPlan{
		original: make(map[lineKey]character.InventoryLine, len(lines)),
		current:  make(map[lineKey]character.InventoryLine, len(lines)),
	}
	for _, l := range lines {
		k := lineKey{l.ItemID, l.Slot}
		p.original[k] = l
		p.current[k] = l
	}
	return p
}

// consume removes qty of itemID from unequipped lines, the unslotted line
// first and then slotted lines in slot order.
//
// Precondition: the unequipped total is at least qty.
func (p *inventoryPlan) consume(itemID uuid.UUID, qty int) {
	var keys []lineKey
	for k, l := range p.current {
		if k.itemID == itemID && !l.Equipped {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b lineKey) int { return cmp.Compare(a.slot, b.slot) })
	for _, k := range keys {
		if qty == 0 {
			return
		}
		l := p.current[k]
		take := min(l.Quantity, qty)
		l.Quantity -= take
		qty -= take
		if l.Quantity <= 0 {
			delete(p.current, k)
		} else {
			p.current[k] = l
		}
	}
}

// grant adds qty of itemID to the unslotted line, creating it when absent.
func (p *inventoryPlan) grant(itemID uuid.UUID, qty int) {
	k := lineKey{itemID, character.Unslotted}
	l, ok := p.current[k]
	if !ok {
		l = character.InventoryLine{ItemID: itemID, Slot: character.Unslotted}
	}
	l.Quantity += qty
	p.current[k] = l
}

// flush writes the difference between the original and current lines.
func (p *inventoryPlan) flush(ctx context.Context, tx Tx, characterID uuid.UUID) error {
	keys := make([]lineKey, 0, len(p.original)+len(p.current))
	seen := make(map[lineKey]bool)
	for _, m := range []map[lineKey]character.InventoryLine{p.original, p.current} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	slices.SortFunc(keys, func(a, b lineKey) int {
		return cmp.Or(cmp.Compare(a.itemID.String(), b.itemID.String()), cmp.Compare(a.slot, b.slot))
	})

	for _, k := range keys {
		before, had := p.original[k]
		after, has := p.current[k]
		var err error
		switch {
		case had && !has:
			err = tx.DeleteInventoryLine(ctx, characterID, k.itemID, k.slot)
		case !had && has:
			err = tx.InsertInventoryLine(ctx, characterID, after)
		case had && has && before.Quantity != after.Quantity:
			err = tx.UpdateInventoryQuantity(ctx, characterID, k.itemID, k.slot, after.Quantity)
		}
		if err != nil {
			return fmt.Errorf("writing inventory line %s/%q: %w", k.itemID, k.slot, err)
		}
	}
	return nil
}

// applyStats adds the deltas in s to c. Health and mana are clamped to
// [0, max]; attributes never drop below zero.
func applyStats(c *character.Character, s *world.StatChanges) {
	if s == nil {
		return
	}
	if s.Health != nil {
		c.Health = clamp(c.Health+*s.Health, 0, c.MaxHealth)
	}
	if s.Mana != nil {
		c.Mana = clamp(c.Mana+*s.Mana, 0, c.MaxMana)
	}
	addFloor(&c.Attributes.Strength, s.Strength)
	addFloor(&c.Attributes.Dexterity, s.Dexterity)
	addFloor(&c.Attributes.Intelligence, s.Intelligence)
	addFloor(&c.Attributes.Constitution, s.Constitution)
	addFloor(&c.Attributes.Wisdom, s.Wisdom)
	addFloor(&c.Attributes.Charisma, s.Charisma)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func addFloor(v *int, delta *int) {
	if delta != nil {
		*v = max(0, *v+*delta)
	}
}
