// Package storagetest holds the behavioral contract every storage.Backend
// must satisfy, run against each implementation from its own tests.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage"
	"github.com/cory-johannsen/wayfarer/internal/testutil"
)

// OpenFunc returns an empty backend with content imported. It must register
// its own cleanup.
type OpenFunc func(t *testing.T, content world.Content) storage.Backend

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

// Run executes the contract suite.
func Run(t *testing.T, open OpenFunc) {
	t.Run("ContentRoundTrip", func(t *testing.T) { testContentRoundTrip(t, open) })
	t.Run("ImportUpserts", func(t *testing.T) { testImportUpserts(t, open) })
	t.Run("ResolvePlayer", func(t *testing.T) { testResolvePlayer(t, open) })
	t.Run("CharacterNames", func(t *testing.T) { testCharacterNames(t, open) })
	t.Run("ListCharacters", func(t *testing.T) { testListCharacters(t, open) })
	t.Run("CharacterNotFound", func(t *testing.T) { testCharacterNotFound(t, open) })
	t.Run("SaveCharacterVersion", func(t *testing.T) { testSaveCharacterVersion(t, open) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, open) })
	t.Run("InventoryLines", func(t *testing.T) { testInventoryLines(t, open) })
	t.Run("Cooldowns", func(t *testing.T) { testCooldowns(t, open) })
	t.Run("Completions", func(t *testing.T) { testCompletions(t, open) })
	t.Run("EngineScenario", func(t *testing.T) { testEngineScenario(t, open) })
	t.Run("CompetingEngines", func(t *testing.T) { testCompetingEngines(t, open) })
}

func newCharacter(t *testing.T, b storage.Backend, playerID uuid.UUID, name string, loc *world.Location, at time.Time) *character.Character {
	t.Helper()
	c, err := character.New(playerID, name, character.ClassWarrior, loc.ID, at)
	require.NoError(t, err)
	require.NoError(t, b.CreateCharacter(context.Background(), c))
	return c
}

func testContentRoundTrip(t *testing.T, open OpenFunc) {
	f := testutil.NewFixture()
	b := open(t, f.Content)

	got, err := b.LoadContent(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, f.Content.Towns, got.Towns)
	assert.ElementsMatch(t, f.Content.Locations, got.Locations)
	assert.ElementsMatch(t, f.Content.Items, got.Items)
	assert.ElementsMatch(t, f.Content.Actions, got.Actions)
}

func testImportUpserts(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)

	renamed := *f.Rest
	renamed.Name = "Long Rest"
	renamed.Timing.CooldownSeconds = 120
	require.NoError(t, b.ImportContent(ctx, world.Content{Actions: []*world.Action{&renamed}}))

	got, err := b.LoadContent(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Actions, len(f.Content.Actions))
	for _, a := range got.Actions {
		if a.ID == f.Rest.ID {
			assert.Equal(t, &renamed, a)
		}
	}
}

func testResolvePlayer(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	b := open(t, testutil.NewFixture().Content)
	wallet := testutil.RandomWallet(t)

	first, err := b.ResolvePlayer(ctx, wallet, "wanderer", t0)
	require.NoError(t, err)
	assert.Equal(t, wallet, first.WalletAddress)
	assert.Equal(t, "wanderer", first.Username)
	assert.Equal(t, t0, first.CreatedAt)
	require.NotNil(t, first.LastLogin)
	assert.Equal(t, t0, *first.LastLogin)

	later := t0.Add(time.Hour)
	second, err := b.ResolvePlayer(ctx, wallet, "renamed", later)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "the wallet resolves to the same player")
	assert.Equal(t, "wanderer", second.Username, "username is set only on creation")
	assert.Equal(t, t0, second.CreatedAt)
	require.NotNil(t, second.LastLogin)
	assert.Equal(t, later, *second.LastLogin)

	got, err := b.GetPlayer(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	_, err = b.GetPlayer(ctx, uuid.New())
	assert.ErrorIs(t, err, action.ErrPlayerNotFound)
}

func testCharacterNames(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)

	newCharacter(t, b, p.ID, "Aria", f.Tavern, t0)

	dup, err := character.New(p.ID, "ARIA", character.ClassMage, f.Tavern.ID, t0)
	require.NoError(t, err)
	assert.ErrorIs(t, b.CreateCharacter(ctx, dup), character.ErrNameTaken)

	taken, err := b.NameTaken(ctx, "aria")
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = b.NameTaken(ctx, "Brand")
	require.NoError(t, err)
	assert.False(t, taken)
}

func testListCharacters(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	other, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)

	oldest := newCharacter(t, b, p.ID, "Oldest", f.Tavern, t0)
	middle := newCharacter(t, b, p.ID, "Middle", f.Tavern, t0.Add(time.Minute))
	newest := newCharacter(t, b, p.ID, "Newest", f.Dock, t0.Add(2*time.Minute))
	newCharacter(t, b, other.ID, "Stranger", f.Tavern, t0.Add(3*time.Minute))

	got, err := b.ListCharacters(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []*character.Character{newest, middle, oldest}, got)

	none, err := b.ListCharacters(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testCharacterNotFound(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	b := open(t, testutil.NewFixture().Content)

	_, err := b.GetCharacter(ctx, uuid.New())
	assert.ErrorIs(t, err, action.ErrCharacterNotFound)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		_, err := tx.LockCharacter(ctx, uuid.New())
		return err
	})
	assert.ErrorIs(t, err, action.ErrCharacterNotFound)
}

func testSaveCharacterVersion(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	c := newCharacter(t, b, p.ID, "Versioned", f.Tavern, t0)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		locked, err := tx.LockCharacter(ctx, c.ID)
		if err != nil {
			return err
		}
		locked.Currency = 42
		locked.Attributes.Wisdom = 3
		locked.LocationID = f.Dock.ID
		locked.UpdatedAt = t0.Add(time.Minute)
		return tx.SaveCharacter(ctx, locked)
	})
	require.NoError(t, err)

	got, err := b.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, int64(42), got.Currency)
	assert.Equal(t, 3, got.Attributes.Wisdom)
	assert.Equal(t, f.Dock.ID, got.LocationID)
	assert.Equal(t, t0.Add(time.Minute), got.UpdatedAt)
	assert.Equal(t, t0, got.CreatedAt)

	stale := *c
	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		return tx.SaveCharacter(ctx, &stale)
	})
	assert.ErrorIs(t, err, action.ErrConcurrencyConflict)
}

func testRollbackOnError(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	c := newCharacter(t, b, p.ID, "Rollback", f.Tavern, t0)

	boom := errors.New("boom")
	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		locked, err := tx.LockCharacter(ctx, c.ID)
		if err != nil {
			return err
		}
		locked.Currency = 0
		if err := tx.SaveCharacter(ctx, locked); err != nil {
			return err
		}
		if err := tx.InsertCooldown(ctx, c.ID, character.Cooldown{ActionID: f.Rest.ID, AvailableAt: t0}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := b.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	n, err := b.SweepCooldowns(ctx, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testInventoryLines(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	c := newCharacter(t, b, p.ID, "Packrat", f.Tavern, t0)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		for _, l := range []character.InventoryLine{
			{ItemID: f.Herb.ID, Quantity: 4},
			{ItemID: f.Herb.ID, Slot: "belt", Quantity: 1, Equipped: true},
			{ItemID: f.Ore.ID, Quantity: 9},
		} {
			if err := tx.InsertInventoryLine(ctx, c.ID, l); err != nil {
				return err
			}
		}
		if err := tx.UpdateInventoryQuantity(ctx, c.ID, f.Herb.ID, character.Unslotted, 2); err != nil {
			return err
		}
		return tx.DeleteInventoryLine(ctx, c.ID, f.Ore.ID, character.Unslotted)
	})
	require.NoError(t, err)

	inv, err := b.Inventory(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []character.InventoryLine{
		{ItemID: f.Herb.ID, Quantity: 2},
		{ItemID: f.Herb.ID, Slot: "belt", Quantity: 1, Equipped: true},
	}, inv)
}

func testCooldowns(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	c := newCharacter(t, b, p.ID, "Tired", f.Tavern, t0)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		cd, err := tx.Cooldown(ctx, c.ID, f.Rest.ID)
		if err != nil {
			return err
		}
		assert.Nil(t, cd, "absent cooldowns load as nil")
		if err := tx.InsertCooldown(ctx, c.ID, character.Cooldown{ActionID: f.Rest.ID, AvailableAt: t0.Add(time.Minute)}); err != nil {
			return err
		}
		if err := tx.InsertCooldown(ctx, c.ID, character.Cooldown{ActionID: f.Heal.ID, AvailableAt: t0.Add(time.Second)}); err != nil {
			return err
		}
		return tx.UpdateCooldown(ctx, c.ID, character.Cooldown{ActionID: f.Rest.ID, AvailableAt: t0.Add(2 * time.Minute)})
	})
	require.NoError(t, err)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		cd, err := tx.Cooldown(ctx, c.ID, f.Rest.ID)
		require.NoError(t, err)
		require.NotNil(t, cd)
		assert.Equal(t, t0.Add(2*time.Minute), cd.AvailableAt)
		return nil
	})
	require.NoError(t, err)

	active, err := b.ActiveCooldowns(ctx, c.ID, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []character.Cooldown{{ActionID: f.Rest.ID, AvailableAt: t0.Add(2 * time.Minute)}}, active)

	n, err := b.SweepCooldowns(ctx, t0.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = b.SweepCooldowns(ctx, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "available_at equal to now is expired")
}

func testCompletions(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	p, err := b.ResolvePlayer(ctx, testutil.RandomWallet(t), "", t0)
	require.NoError(t, err)
	c := newCharacter(t, b, p.ID, "Finisher", f.Tavern, t0)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		done, err := tx.Completion(ctx, c.ID, f.Quest.ID)
		if err != nil {
			return err
		}
		assert.Nil(t, done)
		if err := tx.InsertCompletion(ctx, c.ID, character.Completion{ActionID: f.Quest.ID, TimesCompleted: 1, CompletedAt: t0}); err != nil {
			return err
		}
		return tx.UpdateCompletion(ctx, c.ID, character.Completion{ActionID: f.Quest.ID, TimesCompleted: 2, CompletedAt: t0.Add(time.Hour)})
	})
	require.NoError(t, err)

	err = b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		done, err := tx.Completion(ctx, c.ID, f.Quest.ID)
		require.NoError(t, err)
		assert.Equal(t, &character.Completion{ActionID: f.Quest.ID, TimesCompleted: 2, CompletedAt: t0.Add(time.Hour)}, done)
		return nil
	})
	require.NoError(t, err)
}

func testEngineScenario(t *testing.T, open OpenFunc) {
	ctx := context.Background()
	f := testutil.NewFixture()
	b := open(t, f.Content)
	c := testutil.NewCharacter(t, b, f.Tavern, nil)
	h := testutil.NewCharacter(t, b, f.Tavern, nil)
	eng := action.NewEngine(b, f.Catalog, dice.MustSequence(0.25), zaptest.NewLogger(t))

	res, err := eng.Execute(ctx, c.ID, f.Rest.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(85), res.Character.Currency)
	assert.Equal(t, int64(1), res.Character.Version)

	_, err = eng.Execute(ctx, c.ID, f.Rest.ID, t0.Add(30*time.Second))
	assert.ErrorIs(t, err, action.ErrIneligible)

	res, err = eng.Execute(ctx, c.ID, f.Rest.ID, t0.Add(61*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(70), res.Character.Currency)

	require.NoError(t, b.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		return tx.InsertInventoryLine(ctx, h.ID, character.InventoryLine{ItemID: f.Herb.ID, Quantity: 2})
	}))
	_, err = eng.Execute(ctx, h.ID, f.Brew.ID, t0)
	require.NoError(t, err)
	inv, err := b.Inventory(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, []character.InventoryLine{{ItemID: f.Ore.ID, Quantity: 3}}, inv)

	got, err := b.GetCharacter(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.Currency)
	assert.Equal(t, int64(2), got.Version)
}

func testCompetingEngines(t *testing.T, open OpenFunc) {
	f := testutil.NewFixture()
	b := open(t, f.Content)
	c := testutil.NewCharacter(t, b, f.Tavern, nil)
	engines := []*action.Engine{
		action.NewEngine(b, f.Catalog, dice.MustSequence(0), zaptest.NewLogger(t)),
		action.NewEngine(b, f.Catalog, dice.MustSequence(0), zaptest.NewLogger(t)),
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engines[i%len(engines)].Execute(context.Background(), c.ID, f.Quest.ID, t0)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var inel *action.IneligibleError
		if assert.ErrorAs(t, err, &inel) {
			assert.Equal(t, action.ReasonAlreadyCompleted, inel.Reason)
		}
	}
	assert.Equal(t, 1, successes)

	got, err := b.GetCharacter(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Experience)
	assert.Equal(t, int64(1), got.Version)
}
