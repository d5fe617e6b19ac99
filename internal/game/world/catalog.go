package world

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// StartingRegion is the region new characters are placed in when it exists.
const StartingRegion = "starting_zone"

// ErrNoStartLocation is returned when no town offers an active location.
var ErrNoStartLocation = errors.New("world: no active start location")

// Content is the raw reference data a Catalog is built from.
type Content struct {
	Towns     []*Town
	Locations []*Location
	Actions   []*Action
	Items     []*Item
}

// Merge appends other's entries to c.
func (c *Content) Merge(other Content) {
	c.Towns = append(c.Towns, other.Towns...)
	c.Locations = append(c.Locations, other.Locations...)
	c.Actions = append(c.Actions, other.Actions...)
	c.Items = append(c.Items, other.Items...)
}

// Catalog indexes world reference data for O(1) lookup by ID.
// It is immutable after NewCatalog returns and is safe for concurrent reads.
type Catalog struct {
	content   Content
	towns     map[uuid.UUID]*Town
	locations map[uuid.UUID]*Location
	actions   map[uuid.UUID]*Action
	items     map[uuid.UUID]*Item

	townOrder       []*Town
	locationsByTown map[uuid.UUID][]*Location
	actionsByLoc    map[uuid.UUID][]*Action
}

// NewCatalog validates content and builds the indexes.
//
// Precondition: content entries must be non-nil.
// Postcondition: Returns a Catalog whose every cross reference resolves, or a
// non-nil error naming the first invalid entry.
func NewCatalog(content Content) (*Catalog, error) {
	c := &Catalog{
		content:         content,
		towns:           make(map[uuid.UUID]*Town, len(content.Towns)),
		locations:       make(map[uuid.UUID]*Location, len(content.Locations)),
		actions:         make(map[uuid.UUID]*Action, len(content.Actions)),
		items:           make(map[uuid.UUID]*Item, len(content.Items)),
		locationsByTown: make(map[uuid.UUID][]*Location),
		actionsByLoc:    make(map[uuid.UUID][]*Action),
	}

	for _, t := range content.Towns {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.towns[t.ID]; dup {
			return nil, fmt.Errorf("duplicate town ID %s", t.ID)
		}
		c.towns[t.ID] = t
		c.townOrder = append(c.townOrder, t)
	}
	for _, it := range content.Items {
		if err := it.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.items[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item ID %s", it.ID)
		}
		c.items[it.ID] = it
	}
	for _, l := range content.Locations {
		if err := l.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.locations[l.ID]; dup {
			return nil, fmt.Errorf("duplicate location ID %s", l.ID)
		}
		if _, ok := c.towns[l.TownID]; !ok {
			return nil, fmt.Errorf("location %q references unknown town %s", l.Name, l.TownID)
		}
		c.locations[l.ID] = l
		if l.Active {
			c.locationsByTown[l.TownID] = append(c.locationsByTown[l.TownID], l)
		}
	}
	for _, a := range content.Actions {
		if err := a.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.actions[a.ID]; dup {
			return nil, fmt.Errorf("duplicate action ID %s", a.ID)
		}
		if err := c.validateActionRefs(a); err != nil {
			return nil, err
		}
		c.actions[a.ID] = a
		if a.Active {
			c.actionsByLoc[a.LocationID] = append(c.actionsByLoc[a.LocationID], a)
		}
	}

	slices.SortStableFunc(c.townOrder, func(a, b *Town) int {
		return cmp.Or(cmp.Compare(a.RequiredLevel, b.RequiredLevel), cmp.Compare(a.Name, b.Name))
	})
	for _, locs := range c.locationsByTown {
		slices.SortStableFunc(locs, func(a, b *Location) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name))
		})
	}
	for _, acts := range c.actionsByLoc {
		slices.SortStableFunc(acts, func(a, b *Action) int {
			return cmp.Or(cmp.Compare(a.SortOrder, b.SortOrder), cmp.Compare(a.Name, b.Name))
		})
	}
	return c, nil
}

func (c *Catalog) validateActionRefs(a *Action) error {
	if _, ok := c.locations[a.LocationID]; !ok {
		return fmt.Errorf("action %q references unknown location %s", a.Name, a.LocationID)
	}
	if id := a.Requirements.ItemID; id != nil {
		if _, ok := c.items[*id]; !ok {
			return fmt.Errorf("action %q requires unknown item %s", a.Name, *id)
		}
	}
	for _, ir := range a.Rewards.Items {
		if _, ok := c.items[ir.ItemID]; !ok {
			return fmt.Errorf("action %q rewards unknown item %s", a.Name, ir.ItemID)
		}
	}
	if id := a.Rewards.TeleportTo; id != nil {
		if _, ok := c.locations[*id]; !ok {
			return fmt.Errorf("action %q teleports to unknown location %s", a.Name, *id)
		}
	}
	return nil
}

// Content returns the reference data the catalog was built from.
func (c *Catalog) Content() Content {
	return c.content
}

// Town returns the town with the given ID.
//
// Postcondition: Returns (town, true) if found, or (nil, false) otherwise.
func (c *Catalog) Town(id uuid.UUID) (*Town, bool) {
	t, ok := c.towns[id]
	return t, ok
}

// Location returns the location with the given ID, active or not.
func (c *Catalog) Location(id uuid.UUID) (*Location, bool) {
	l, ok := c.locations[id]
	return l, ok
}

// Action returns the action with the given ID, active or not.
func (c *Catalog) Action(id uuid.UUID) (*Action, bool) {
	a, ok := c.actions[id]
	return a, ok
}

// Item returns the item with the given ID.
func (c *Catalog) Item(id uuid.UUID) (*Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Towns returns all towns ordered by required level, then name.
func (c *Catalog) Towns() []*Town {
	return slices.Clone(c.townOrder)
}

// TownsByRegion returns the towns in region, in Towns order.
func (c *Catalog) TownsByRegion(region string) []*Town {
	var out []*Town
	for _, t := range c.townOrder {
		if t.Region == region {
			out = append(out, t)
		}
	}
	return out
}

// LocationsByTown returns the active locations of a town ordered by sort
// order, then name.
func (c *Catalog) LocationsByTown(townID uuid.UUID) []*Location {
	return slices.Clone(c.locationsByTown[townID])
}

// ActionsByLocation returns the active actions at a location ordered by sort
// order, then name.
func (c *Catalog) ActionsByLocation(locationID uuid.UUID) []*Action {
	return slices.Clone(c.actionsByLoc[locationID])
}

// StartLocation returns where new characters begin: the first active location
// of the lowest-level town in StartingRegion, or of the lowest-level town
// overall when that region has none.
//
// Postcondition: Returns a location or ErrNoStartLocation.
func (c *Catalog) StartLocation() (*Location, error) {
	if l := c.firstLocation(c.TownsByRegion(StartingRegion)); l != nil {
		return l, nil
	}
	if l := c.firstLocation(c.townOrder); l != nil {
		return l, nil
	}
	return nil, ErrNoStartLocation
}

func (c *Catalog) firstLocation(towns []*Town) *Location {
	for _, t := range towns {
		if locs := c.locationsByTown[t.ID]; len(locs) > 0 {
			return locs[0]
		}
	}
	return nil
}
