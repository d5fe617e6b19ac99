package action

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

const tracerName = "github.com/cory-johannsen/wayfarer/internal/game/action"

// DefaultMaxAttempts bounds how many times Execute retries after a
// concurrency conflict.
const DefaultMaxAttempts = 3

// Summary is a character's post-execution state.
type Summary struct {
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
}

// ExecutionResult is returned for every committed execution.
type ExecutionResult struct {
	CharacterID uuid.UUID `json:"character_id"`
	ActionID    uuid.UUID `json:"action_id"`
	Outcome     Outcome   `json:"outcome"`
	Character   Summary   `json:"character"`
	ExecutedAt  time.Time `json:"executed_at"`
	// CompletesAt is ExecutedAt plus the action's duration. The engine does not wait.
	CompletesAt time.Time `json:"completes_at"`
	// CooldownUntil is nil when the action has no cooldown.
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used by ExecuteAction.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMaxAttempts sets how many times a conflicting execution is attempted.
// Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxAttempts = n
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// Engine applies actions to characters atomically.
//
// Invariant: at most one execution per character runs at a time in this
// process, and every execution commits all of its effects or none.
type Engine struct {
	store       Store
	catalog     Catalog
	src         dice.Source
	logger      *zap.Logger
	tracer      trace.Tracer
	now         func() time.Time
	maxAttempts int
	locks       *keyedMutex
}

// NewEngine creates an Engine.
//
// Precondition: store, catalog, src, and logger must be non-nil.
func NewEngine(store Store, catalog Catalog, src dice.Source, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		catalog:     catalog,
		src:         src,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteAction runs Execute at the engine clock's current time.
func (e *Engine) ExecuteAction(ctx context.Context, characterID, actionID uuid.UUID) (*ExecutionResult, error) {
	return e.Execute(ctx, characterID, actionID, e.now())
}

// Execute loads the character and action, evaluates eligibility, and on
// success applies costs, rewards, the cooldown, and the completion record in
// one transaction. Conflicts are retried from a fresh read.
//
// Postcondition: Returns a result iff the transaction committed. Errors wrap
// ErrNotFound, ErrIneligible (as *IneligibleError), ErrConcurrencyConflict,
// ErrStorage, or a context error.
func (e *Engine) Execute(ctx context.Context, characterID, actionID uuid.UUID, now time.Time) (*ExecutionResult, error) {
	ctx, span := e.tracer.Start(ctx, "action.Execute", trace.WithAttributes(
		attribute.String("character.id", characterID.String()),
		attribute.String("action.id", actionID.String()),
	))
	defer span.End()

	res, err := e.execute(ctx, characterID, actionID, now.UTC())
	if err != nil {
		var inel *IneligibleError
		if errors.As(err, &inel) {
			span.SetAttributes(attribute.String("action.ineligible_reason", string(inel.Reason)))
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return res, nil
}

func (e *Engine) execute(ctx context.Context, characterID, actionID uuid.UUID, now time.Time) (*ExecutionResult, error) {
	unlock, err := e.locks.lock(ctx, characterID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 1; ; attempt++ {
		e.logger.Debug("executing action",
			zap.Stringer("character_id", characterID),
			zap.Stringer("action_id", actionID),
			zap.Int("attempt", attempt),
		)
		res, err := e.attempt(ctx, characterID, actionID, now)
		if err == nil {
			e.logger.Info("action committed",
				zap.Stringer("character_id", characterID),
				zap.Stringer("action_id", actionID),
				zap.Int64("currency", res.Character.Currency),
				zap.Int("items_granted", len(res.Outcome.Items)),
			)
			return res, nil
		}
		var inel *IneligibleError
		if errors.As(err, &inel) {
			e.logger.Debug("action ineligible",
				zap.Stringer("character_id", characterID),
				zap.Stringer("action_id", actionID),
				zap.String("reason", string(inel.Reason)),
			)
			return nil, err
		}
		err = storageError(err)
		if errors.Is(err, ErrConcurrencyConflict) && attempt < e.maxAttempts && ctx.Err() == nil {
			e.logger.Warn("action conflicted, retrying",
				zap.Stringer("character_id", characterID),
				zap.Stringer("action_id", actionID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		return nil, err
	}
}

// attempt performs one transactional execution.
func (e *Engine) attempt(ctx context.Context, characterID, actionID uuid.UUID, now time.Time) (*ExecutionResult, error) {
	var res *ExecutionResult
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.LockCharacter(ctx, characterID)
		if err != nil {
			return fmt.Errorf("loading character %s: %w", characterID, err)
		}
		act, loc, err := e.resolveAction(actionID)
		if err != nil {
			return err
		}

		inv, err := tx.Inventory(ctx, characterID)
		if err != nil {
			return fmt.Errorf("loading inventory: %w", err)
		}
		cd, err := tx.Cooldown(ctx, characterID, actionID)
		if err != nil {
			return fmt.Errorf("loading cooldown: %w", err)
		}
		done, err := tx.Completion(ctx, characterID, actionID)
		if err != nil {
			return fmt.Errorf("loading completion: %w", err)
		}

		verdict := Evaluate(Snapshot{Character: c, Inventory: inv, Cooldown: cd, Completion: done}, act, loc, now)
		if !verdict.Eligible() {
			return &IneligibleError{Reason: verdict.Reason}
		}

		outcome := Resolve(act.Rewards, e.src)
		for _, g := range outcome.Items {
			if _, ok := e.catalog.Item(g.ItemID); !ok {
				return fmt.Errorf("granting item %s: %w", g.ItemID, ErrItemNotFound)
			}
		}
		var target *world.Location
		if outcome.TeleportTo != nil {
			var ok bool
			if target, ok = e.catalog.Location(*outcome.TeleportTo); !ok {
				return fmt.Errorf("teleporting to %s: %w", *outcome.TeleportTo, ErrLocationNotFound)
			}
		}

		req := act.Requirements
		c.Currency -= req.Currency
		c.ActionPoints -= req.ActionPointsCost

		plan := newInventoryPlan(inv)
		if req.ItemID != nil {
			plan.consume(*req.ItemID, req.ItemQuantity)
		}

		c.Currency += outcome.Currency
		c.Experience += outcome.Experience
		for _, g := range outcome.Items {
			plan.grant(g.ItemID, g.Quantity)
		}
		applyStats(c, outcome.Stats)
		if target != nil {
			c.LocationID = target.ID
		}
		c.UpdatedAt = now

		if err := tx.SaveCharacter(ctx, c); err != nil {
			return fmt.Errorf("saving character: %w", err)
		}
		if err := plan.flush(ctx, tx, characterID); err != nil {
			return err
		}

		var cooldownUntil *time.Time
		if secs := act.Timing.CooldownSeconds; secs > 0 {
			next := character.Cooldown{ActionID: actionID, AvailableAt: now.Add(time.Duration(secs) * time.Second)}
			if cd != nil {
				err = tx.UpdateCooldown(ctx, characterID, next)
			} else {
				err = tx.InsertCooldown(ctx, characterID, next)
			}
			if err != nil {
				return fmt.Errorf("writing cooldown: %w", err)
			}
			cooldownUntil = &next.AvailableAt
		}

		if done != nil {
			err = tx.UpdateCompletion(ctx, characterID, character.Completion{
				ActionID: actionID, TimesCompleted: done.TimesCompleted + 1, CompletedAt: now,
			})
		} else {
			err = tx.InsertCompletion(ctx, characterID, character.Completion{
				ActionID: actionID, TimesCompleted: 1, CompletedAt: now,
			})
		}
		if err != nil {
			return fmt.Errorf("writing completion: %w", err)
		}

		summary, err := e.summarize(c)
		if err != nil {
			return err
		}
		res = &ExecutionResult{
			CharacterID:   characterID,
			ActionID:      actionID,
			Outcome:       outcome,
			Character:     summary,
			ExecutedAt:    now,
			CompletesAt:   now.Add(time.Duration(act.Timing.DurationSeconds) * time.Second),
			CooldownUntil: cooldownUntil,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// resolveAction loads an active action and its location from the catalog.
func (e *Engine) resolveAction(actionID uuid.UUID) (*world.Action, *world.Location, error) {
	act, ok := e.catalog.Action(actionID)
	if !ok || !act.Active {
		return nil, nil, fmt.Errorf("action %s: %w", actionID, ErrActionNotFound)
	}
	loc, ok := e.catalog.Location(act.LocationID)
	if !ok {
		return nil, nil, fmt.Errorf("location %s: %w", act.LocationID, ErrLocationNotFound)
	}
	return act, loc, nil
}

func (e *Engine) summarize(c *character.Character) (Summary, error) {
	loc, ok := e.catalog.Location(c.LocationID)
	if !ok {
		return Summary{}, fmt.Errorf("character location %s: %w", c.LocationID, ErrLocationNotFound)
	}
	return Summary{
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
		TownID:          loc.TownID,
		Version:         c.Version,
	}, nil
}

// GetAvailableActions returns the active actions at a location whose required
// level is at most level and that are not on cooldown for the character,
// ordered by sort order, then name.
//
// Postcondition: Performs no writes.
func (e *Engine) GetAvailableActions(ctx context.Context, locationID, characterID uuid.UUID, level int, now time.Time) ([]*world.Action, error) {
	ctx, span := e.tracer.Start(ctx, "action.GetAvailableActions", trace.WithAttributes(
		attribute.String("location.id", locationID.String()),
		attribute.String("character.id", characterID.String()),
	))
	defer span.End()

	if _, ok := e.catalog.Location(locationID); !ok {
		return nil, fmt.Errorf("location %s: %w", locationID, ErrLocationNotFound)
	}
	cooldowns, err := e.store.ActiveCooldowns(ctx, characterID, now.UTC())
	if err != nil {
		err = storageError(fmt.Errorf("loading cooldowns: %w", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	blocked := make(map[uuid.UUID]bool, len(cooldowns))
	for _, cd := range cooldowns {
		if cd.Active(now) {
			blocked[cd.ActionID] = true
		}
	}

	var out []*world.Action
	for _, a := range e.catalog.ActionsByLocation(locationID) {
		if a.Active && a.Requirements.Level <= level && !blocked[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}
