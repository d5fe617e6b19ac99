package action_test

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
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
	"github.com/cory-johannsen/wayfarer/internal/testutil"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	f      *testutil.Fixture
	store  *sqlite.Store
	engine *action.Engine
}

func newHarness(t *testing.T, src dice.Source, opts ...action.Option) *harness {
	t.Helper()
	f := testutil.NewFixture()
	store := testutil.NewSQLiteStore(t, f.Content)
	if src == nil {
		src = dice.MustSequence(0.0)
	}
	return &harness{
		f:      f,
		store:  store,
		engine: action.NewEngine(store, f.Catalog, src, zaptest.NewLogger(t), opts...),
	}
}

func (h *harness) character(t *testing.T, loc *world.Location, mutate func(*character.Character)) *character.Character {
	t.Helper()
	return testutil.NewCharacter(t, h.store, loc, mutate)
}

func (h *harness) reload(t *testing.T, id uuid.UUID) *character.Character {
	t.Helper()
	c, err := h.store.GetCharacter(context.Background(), id)
	require.NoError(t, err)
	return c
}

func (h *harness) giveItem(t *testing.T, characterID uuid.UUID, line character.InventoryLine) {
	t.Helper()
	err := h.store.InTx(context.Background(), func(ctx context.Context, tx action.Tx) error {
		return tx.InsertInventoryLine(ctx, characterID, line)
	})
	require.NoError(t, err)
}

func requireIneligible(t *testing.T, err error, want action.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrIneligible)
	var inel *action.IneligibleError
	require.ErrorAs(t, err, &inel)
	assert.Equal(t, want, inel.Reason)
}

func TestExecute_CooldownScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)

	res, err := h.engine.Execute(ctx, c.ID, h.f.Rest.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(85), res.Character.Currency)
	require.NotNil(t, res.CooldownUntil)
	assert.Equal(t, t0.Add(60*time.Second), *res.CooldownUntil)
	assert.Equal(t, t0.Add(30*time.Second), res.CompletesAt, "completes_at = now + duration")
	assert.Equal(t, int64(10), res.Outcome.Currency)

	cds, err := h.store.ActiveCooldowns(ctx, c.ID, t0)
	require.NoError(t, err)
	require.Len(t, cds, 1)
	assert.Equal(t, h.f.Rest.ID, cds[0].ActionID)
	assert.Equal(t, t0.Add(60*time.Second), cds[0].AvailableAt)

	_, err = h.engine.Execute(ctx, c.ID, h.f.Rest.ID, t0.Add(30*time.Second))
	requireIneligible(t, err, action.ReasonOnCooldown)
	assert.Equal(t, int64(85), h.reload(t, c.ID).Currency)

	res, err = h.engine.Execute(ctx, c.ID, h.f.Rest.ID, t0.Add(61*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(70), res.Character.Currency)
	assert.Equal(t, int64(70), h.reload(t, c.ID).Currency)
	assert.Equal(t, t0.Add(121*time.Second), *res.CooldownUntil, "cooldown resets from the latest execution")
}

func TestExecute_CooldownResetIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, func(c *character.Character) { c.Currency = 1000 })

	now := t0
	for i := 0; i < 5; i++ {
		_, err := h.engine.Execute(ctx, c.ID, h.f.Rest.ID, now)
		require.NoError(t, err, "execution %d after cooldown", i)
		_, err = h.engine.Execute(ctx, c.ID, h.f.Rest.ID, now)
		requireIneligible(t, err, action.ReasonOnCooldown)
		now = now.Add(60 * time.Second)
	}
}

func TestExecute_InsufficientLevelScenario(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, func(c *character.Character) { c.Currency = 10 })

	_, err := h.engine.Execute(ctx, c.ID, h.f.Trial.ID, t0)
	requireIneligible(t, err, action.ReasonInsufficientLevel)

	after := h.reload(t, c.ID)
	assert.Equal(t, int64(10), after.Currency)
	assert.Equal(t, c.Version, after.Version, "no write happened")
}

func TestExecute_ConservationOnIneligible(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, func(c *character.Character) {
		c.Currency = 10
		c.ActionPoints = 1
	})
	before := h.reload(t, c.ID)

	for _, a := range []*world.Action{h.f.Rest, h.f.Brew, h.f.Trial} {
		_, err := h.engine.Execute(ctx, c.ID, a.ID, t0)
		require.ErrorIs(t, err, action.ErrIneligible, a.Name)
	}

	assert.Equal(t, before, h.reload(t, c.ID))
	inv, err := h.store.Inventory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, inv)
	cds, err := h.store.ActiveCooldowns(ctx, c.ID, t0)
	require.NoError(t, err)
	assert.Empty(t, cds)
}

func TestExecute_HealingClampsToMax(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Tavern, func(c *character.Character) { c.Health = 80 })

	res, err := h.engine.Execute(context.Background(), c.ID, h.f.Heal.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Character.Health)
	assert.Equal(t, 100, h.reload(t, c.ID).Health)
}

func TestExecute_TeleportAcrossTowns(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Square, nil)

	res, err := h.engine.Execute(context.Background(), c.ID, h.f.Sail.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, h.f.Dock.ID, res.Character.LocationID)
	assert.Equal(t, h.f.Dunmere.ID, res.Character.TownID, "town follows the target location")
	require.NotNil(t, res.Outcome.TeleportTo)
	assert.Equal(t, h.f.Dock.ID, h.reload(t, c.ID).LocationID)
}

func TestExecute_TeleportRegardlessOfPriorLocation(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Dock, nil)

	res, err := h.engine.Execute(context.Background(), c.ID, h.f.Sail.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, h.f.Dock.ID, res.Character.LocationID)
}

func TestExecute_ConsumesAndGrantsItems(t *testing.T) {
	h := newHarness(t, dice.MustSequence(0.1))
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)
	h.giveItem(t, c.ID, character.InventoryLine{ItemID: h.f.Herb.ID, Quantity: 3})

	res, err := h.engine.Execute(ctx, c.ID, h.f.Brew.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, []action.ItemGrant{{ItemID: h.f.Ore.ID, Quantity: 3}}, res.Outcome.Items)
	assert.Equal(t, 8, res.Character.ActionPoints)

	inv, err := h.store.Inventory(ctx, c.ID)
	require.NoError(t, err)
	held := map[uuid.UUID]int{}
	for _, l := range inv {
		held[l.ItemID] += l.Quantity
	}
	assert.Equal(t, 1, held[h.f.Herb.ID])
	assert.Equal(t, 3, held[h.f.Ore.ID])

	_, err = h.engine.Execute(ctx, c.ID, h.f.Brew.ID, t0)
	requireIneligible(t, err, action.ReasonMissingRequiredItem)
}

func TestExecute_EmptiedLineIsDeletedAndGrantMerges(t *testing.T) {
	h := newHarness(t, dice.MustSequence(0.2))
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)
	h.giveItem(t, c.ID, character.InventoryLine{ItemID: h.f.Herb.ID, Quantity: 2})
	h.giveItem(t, c.ID, character.InventoryLine{ItemID: h.f.Herb.ID, Quantity: 2, Slot: "belt"})
	h.giveItem(t, c.ID, character.InventoryLine{ItemID: h.f.Ore.ID, Quantity: 4})

	_, err := h.engine.Execute(ctx, c.ID, h.f.Brew.ID, t0)
	require.NoError(t, err)

	inv, err := h.store.Inventory(ctx, c.ID)
	require.NoError(t, err)
	lines := map[string]int{}
	for _, l := range inv {
		item, _ := h.f.Catalog.Item(l.ItemID)
		lines[item.Name+"/"+l.Slot] = l.Quantity
	}
	assert.Equal(t, map[string]int{
		"Healing Herb/belt": 2,
		"Iron Ore/":         7,
	}, lines, "unslotted herbs consumed first; ore merged into the existing line")
}

func TestExecute_DropMissGrantsNothing(t *testing.T) {
	h := newHarness(t, dice.MustSequence(0.9))
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)
	h.giveItem(t, c.ID, character.InventoryLine{ItemID: h.f.Herb.ID, Quantity: 2})

	res, err := h.engine.Execute(ctx, c.ID, h.f.Brew.ID, t0)
	require.NoError(t, err)
	assert.Empty(t, res.Outcome.Items)

	inv, err := h.store.Inventory(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, inv, "the consumed stack was deleted, not left at zero")
}

func TestExecute_NonRepeatable(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)

	res, err := h.engine.Execute(ctx, c.ID, h.f.Quest.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Character.Experience)
	assert.Len(t, res.Outcome.Unlocks, 1)
	assert.Nil(t, res.CooldownUntil)

	_, err = h.engine.Execute(ctx, c.ID, h.f.Quest.ID, t0.Add(time.Hour))
	requireIneligible(t, err, action.ReasonAlreadyCompleted)
	assert.Equal(t, int64(100), h.reload(t, c.ID).Experience)
}

func TestExecute_NotFound(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)

	_, err := h.engine.Execute(ctx, uuid.New(), h.f.Rest.ID, t0)
	assert.ErrorIs(t, err, action.ErrCharacterNotFound)
	assert.ErrorIs(t, err, action.ErrNotFound)

	_, err = h.engine.Execute(ctx, c.ID, uuid.New(), t0)
	assert.ErrorIs(t, err, action.ErrActionNotFound)

	_, err = h.engine.Execute(ctx, c.ID, h.f.Closed.ID, t0)
	assert.ErrorIs(t, err, action.ErrActionNotFound, "inactive actions are not found")
	assert.NotErrorIs(t, err, action.ErrStorage)
}

func TestExecute_InactiveLocation(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Tavern, nil)

	_, err := h.engine.Execute(context.Background(), c.ID, h.f.Pray.ID, t0)
	requireIneligible(t, err, action.ReasonLocationInactive)
}

func TestExecute_ConcurrentNonRepeatableSucceedsOnce(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Tavern, nil)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.Execute(context.Background(), c.ID, h.f.Quest.ID, t0)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		requireIneligible(t, err, action.ReasonAlreadyCompleted)
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, int64(100), h.reload(t, c.ID).Experience)
}

func TestExecute_ConcurrentCooldownSucceedsOnce(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Tavern, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.engine.Execute(context.Background(), c.ID, h.f.Rest.ID, t0)
		}(i)
	}
	wg.Wait()

	var ok, onCooldown int
	for _, err := range errs {
		var inel *action.IneligibleError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &inel) && inel.Reason == action.ReasonOnCooldown:
			onCooldown++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, onCooldown)
	assert.Equal(t, int64(85), h.reload(t, c.ID).Currency)
}

func TestExecute_DifferentCharactersIndependent(t *testing.T) {
	h := newHarness(t, nil)
	a := h.character(t, h.f.Tavern, nil)
	b := h.character(t, h.f.Tavern, nil)

	var wg sync.WaitGroup
	var errA, errB error
	wg.Add(2)
	go func() { defer wg.Done(); _, errA = h.engine.Execute(context.Background(), a.ID, h.f.Rest.ID, t0) }()
	go func() { defer wg.Done(); _, errB = h.engine.Execute(context.Background(), b.ID, h.f.Rest.ID, t0) }()
	wg.Wait()

	assert.NoError(t, errA)
	assert.NoError(t, errB)
}

func TestExecute_CanceledContext(t *testing.T) {
	h := newHarness(t, nil)
	c := h.character(t, h.f.Tavern, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Execute(ctx, c.ID, h.f.Rest.ID, t0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(100), h.reload(t, c.ID).Currency)
}

func TestExecuteAction_UsesEngineClock(t *testing.T) {
	h := newHarness(t, nil, action.WithClock(func() time.Time { return t0 }))
	c := h.character(t, h.f.Tavern, nil)

	res, err := h.engine.ExecuteAction(context.Background(), c.ID, h.f.Rest.ID)
	require.NoError(t, err)
	assert.Equal(t, t0, res.ExecutedAt)
}

// conflictStore makes SaveCharacter lose the version race a fixed number of times.
type conflictStore struct {
	action.Store
	mu        sync.Mutex
	conflicts int
	attempts  int
}

type conflictTx struct {
	action.Tx
	s *conflictStore
}

func (s *conflictStore) InTx(ctx context.Context, fn func(ctx context.Context, tx action.Tx) error) error {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
	return s.Store.InTx(ctx, func(ctx context.Context, tx action.Tx) error {
		return fn(ctx, &conflictTx{Tx: tx, s: s})
	})
}

func (t *conflictTx) SaveCharacter(ctx context.Context, c *character.Character) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.conflicts > 0 {
		t.s.conflicts--
		return action.ErrConcurrencyConflict
	}
	return t.Tx.SaveCharacter(ctx, c)
}

func TestExecute_RetriesConflicts(t *testing.T) {
	f := testutil.NewFixture()
	inner := testutil.NewSQLiteStore(t, f.Content)
	c := testutil.NewCharacter(t, inner, f.Tavern, nil)
	store := &conflictStore{Store: inner, conflicts: 2}
	eng := action.NewEngine(store, f.Catalog, dice.MustSequence(0), zaptest.NewLogger(t), action.WithMaxAttempts(3))

	res, err := eng.Execute(context.Background(), c.ID, f.Rest.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, int64(85), res.Character.Currency, "effects applied once despite retries")

	got, err := inner.GetCharacter(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(85), got.Currency)
}

func TestExecute_SurfacesPersistentConflict(t *testing.T) {
	f := testutil.NewFixture()
	inner := testutil.NewSQLiteStore(t, f.Content)
	c := testutil.NewCharacter(t, inner, f.Tavern, nil)
	store := &conflictStore{Store: inner, conflicts: 10}
	eng := action.NewEngine(store, f.Catalog, dice.MustSequence(0), zaptest.NewLogger(t), action.WithMaxAttempts(2))

	_, err := eng.Execute(context.Background(), c.ID, f.Rest.ID, t0)
	assert.ErrorIs(t, err, action.ErrConcurrencyConflict)
	assert.Equal(t, 2, store.attempts)

	got, err := inner.GetCharacter(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Currency, "rolled back")
	cds, err := inner.ActiveCooldowns(context.Background(), c.ID, t0)
	require.NoError(t, err)
	assert.Empty(t, cds)
}

// brokenStore fails every operation.
type brokenStore struct{}

var errDisk = errors.New("disk unavailable")

func (brokenStore) InTx(context.Context, func(context.Context, action.Tx) error) error { return errDisk }
func (brokenStore) ActiveCooldowns(context.Context, uuid.UUID, time.Time) ([]character.Cooldown, error) {
	return nil, errDisk
}
func (brokenStore) SweepCooldowns(context.Context, time.Time) (int64, error) { return 0, errDisk }

func TestExecute_StorageFailure(t *testing.T) {
	f := testutil.NewFixture()
	eng := action.NewEngine(brokenStore{}, f.Catalog, dice.MustSequence(0), zaptest.NewLogger(t))

	_, err := eng.Execute(context.Background(), uuid.New(), f.Rest.ID, t0)
	assert.ErrorIs(t, err, action.ErrStorage)
	assert.ErrorIs(t, err, errDisk)
	assert.NotErrorIs(t, err, action.ErrIneligible)

	_, err = eng.GetAvailableActions(context.Background(), f.Tavern.ID, uuid.New(), 1, t0)
	assert.ErrorIs(t, err, action.ErrStorage)
}

func TestGetAvailableActions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	c := h.character(t, h.f.Tavern, nil)

	names := func(actions []*world.Action) []string {
		var out []string
		for _, a := range actions {
			out = append(out, a.Name)
		}
		return out
	}

	got, err := h.engine.GetAvailableActions(ctx, h.f.Tavern.ID, c.ID, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rest", "Heal", "Quest", "Brew"}, names(got))

	got, err = h.engine.GetAvailableActions(ctx, h.f.Tavern.ID, c.ID, 5, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rest", "Heal", "Quest", "Trial", "Brew"}, names(got))

	_, err = h.engine.Execute(ctx, c.ID, h.f.Rest.ID, t0)
	require.NoError(t, err)

	got, err = h.engine.GetAvailableActions(ctx, h.f.Tavern.ID, c.ID, 1, t0.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"Heal", "Quest", "Brew"}, names(got))

	got, err = h.engine.GetAvailableActions(ctx, h.f.Tavern.ID, c.ID, 1, t0.Add(60*time.Second))
	require.NoError(t, err)
	assert.Contains(t, names(got), "Rest", "expired cooldowns no longer hide the action")

	_, err = h.engine.GetAvailableActions(ctx, uuid.New(), c.ID, 1, t0)
	assert.ErrorIs(t, err, action.ErrLocationNotFound)
}
