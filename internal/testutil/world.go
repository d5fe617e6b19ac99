package testutil

import (
	"context"
	"crypto/rand"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

// Fixture is a small, fully cross-referenced world used across tests.
type Fixture struct {
	Content world.Content
	Catalog *world.Catalog

	Ravenmoor, Dunmere           *world.Town
	Tavern, Square, Shrine, Dock *world.Location
	Herb, Ore                    *world.Item

	// Rest costs 25 currency, grants 10, and has a 60s cooldown and 30s duration.
	Rest *world.Action
	// Heal restores 50 health.
	Heal *world.Action
	// Quest is non-repeatable and grants 100 experience.
	Quest *world.Action
	// Trial requires level 5.
	Trial *world.Action
	// Brew consumes two herbs and 2 action points; drops ore at chance 0.5.
	Brew *world.Action
	// Sail teleports to the Dunmere dock.
	Sail *world.Action
	// Closed is inactive.
	Closed *world.Action
	// Pray is active but its location, Shrine, is not.
	Pray *world.Action
}

func ptr[T any](v T) *T { return &v }

// NewFixture builds the fixture world.
//
// Postcondition: Catalog is valid and indexes every entity in Content.
func NewFixture() *Fixture {
	f := &Fixture{}
	f.Ravenmoor = &world.Town{ID: uuid.New(), Name: "Ravenmoor", Region: world.StartingRegion, RequiredLevel: 1, SafeZone: true}
	f.Dunmere = &world.Town{ID: uuid.New(), Name: "Dunmere", Region: "coast", RequiredLevel: 5}

	loc := func(town *world.Town, name string, typ world.LocationType, sort int, active bool) *world.Location {
		return &world.Location{ID: uuid.New(), TownID: town.ID, Name: name, Type: typ, SortOrder: sort, Active: active}
	}
	f.Tavern = loc(f.Ravenmoor, "Tavern", world.LocationSocial, 1, true)
	f.Square = loc(f.Ravenmoor, "Square", world.LocationTravel, 2, true)
	f.Shrine = loc(f.Ravenmoor, "Shrine", world.LocationSpecial, 3, false)
	f.Dock = loc(f.Dunmere, "Dock", world.LocationTravel, 1, true)

	f.Herb = &world.Item{ID: uuid.New(), Name: "Healing Herb", Type: "consumable", Rarity: "common", BasePrice: 5}
	f.Ore = &world.Item{ID: uuid.New(), Name: "Iron Ore", Type: "material", Rarity: "common", BasePrice: 12}

	act := func(l *world.Location, name string, sort int) *world.Action {
		return &world.Action{
			ID: uuid.New(), LocationID: l.ID, Name: name,
			Type: world.ActionInstant, Category: world.CategorySocial,
			Repeatable: true, Active: true, SortOrder: sort,
		}
	}
	f.Rest = act(f.Tavern, "Rest", 1)
	f.Rest.Type = world.ActionTimed
	f.Rest.Category = world.CategoryRest
	f.Rest.Requirements.Currency = 25
	f.Rest.Timing = world.Timing{CooldownSeconds: 60, DurationSeconds: 30}
	f.Rest.Rewards.Currency = ptr(int64(10))

	f.Heal = act(f.Tavern, "Heal", 2)
	f.Heal.Category = world.CategoryHeal
	f.Heal.Rewards.Stats = &world.StatChanges{Health: ptr(50)}

	f.Quest = act(f.Tavern, "Quest", 3)
	f.Quest.Category = world.CategoryMission
	f.Quest.Repeatable = false
	f.Quest.Rewards.Experience = ptr(int64(100))
	f.Quest.Rewards.Unlocks = []world.UnlockReward{{Kind: world.UnlockQuest, TargetID: uuid.New()}}

	f.Trial = act(f.Tavern, "Trial", 4)
	f.Trial.Requirements.Level = 5

	f.Brew = act(f.Tavern, "Brew", 5)
	f.Brew.Category = world.CategoryCraft
	f.Brew.Requirements.ItemID = &f.Herb.ID
	f.Brew.Requirements.ItemQuantity = 2
	f.Brew.Requirements.ActionPointsCost = 2
	f.Brew.Rewards.Items = []world.ItemReward{{ItemID: f.Ore.ID, Quantity: 3, Chance: 0.5}}

	f.Sail = act(f.Square, "Sail", 1)
	f.Sail.Type = world.ActionNavigation
	f.Sail.Category = world.CategoryTravel
	f.Sail.Rewards.TeleportTo = &f.Dock.ID

	f.Closed = act(f.Tavern, "Closed", 6)
	f.Closed.Active = false

	f.Pray = act(f.Shrine, "Pray", 1)

	f.Content = world.Content{
		Towns:     []*world.Town{f.Ravenmoor, f.Dunmere},
		Locations: []*world.Location{f.Tavern, f.Square, f.Shrine, f.Dock},
		Items:     []*world.Item{f.Herb, f.Ore},
		Actions:   []*world.Action{f.Rest, f.Heal, f.Quest, f.Trial, f.Brew, f.Sail, f.Closed, f.Pray},
	}
	cat, err := world.NewCatalog(f.Content)
	if err != nil {
		panic("testutil: invalid fixture: " + err.Error())
	}
	f.Catalog = cat
	return f
}

// RandomWallet returns a valid, unique SS58 address.
func RandomWallet(t testing.TB) string {
	t.Helper()
	var a player.Address
	a.Prefix = 42
	if _, err := rand.Read(a.PublicKey[:]); err != nil {
		t.Fatalf("generating wallet key: %v", err)
	}
	return a.String()
}

// NewSQLiteStore opens an in-memory store with content imported.
//
// Postcondition: The store is closed when the test ends.
func NewSQLiteStore(t testing.TB, content world.Content) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.ImportContent(context.Background(), content); err != nil {
		t.Fatalf("importing fixture content: %v", err)
	}
	return store
}

// CharacterCreator is implemented by both storage backends.
type CharacterCreator interface {
	ResolvePlayer(ctx context.Context, wallet, username string, now time.Time) (*player.Player, error)
	CreateCharacter(ctx context.Context, c *character.Character) error
}

// NewCharacter creates a fresh player and a character at loc, applying
// mutate (if non-nil) before the insert.
func NewCharacter(t testing.TB, store CharacterCreator, loc *world.Location, mutate func(*character.Character)) *character.Character {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	p, err := store.ResolvePlayer(ctx, RandomWallet(t), "", now)
	if err != nil {
		t.Fatalf("resolving player: %v", err)
	}
	name := "Hero " + uuid.NewString()[:8]
	c, err := character.New(p.ID, name, character.ClassAdventurer, loc.ID, now)
	if err != nil {
		t.Fatalf("building character: %v", err)
	}
	if mutate != nil {
		mutate(c)
	}
	if err := store.CreateCharacter(ctx, c); err != nil {
		t.Fatalf("creating character: %v", err)
	}
	return c
}
