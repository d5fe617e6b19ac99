package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// ImportContent upserts every town, location, item, and action in content as
// one batch inside a single transaction. Existing rows with the same ID are
// overwritten.
//
// Postcondition: Either every row is written or none is.
func (s *Store) ImportContent(ctx context.Context, content world.Content) error {
	batch := &pgx.Batch{}
	for _, t := range content.Towns {
		batch.Queue(`
			INSERT INTO towns (id, name, description, region, required_level, map_image, is_safe_zone)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, description = EXCLUDED.description, region = EXCLUDED.region,
				required_level = EXCLUDED.required_level, map_image = EXCLUDED.map_image,
				is_safe_zone = EXCLUDED.is_safe_zone`,
			t.ID, t.Name, t.Description, t.Region, t.RequiredLevel, t.MapImage, t.SafeZone,
		)
	}
	for _, l := range content.Locations {
		batch.Queue(`
			INSERT INTO locations (id, town_id, name, description, icon, location_type,
				map_position_x, map_position_y, required_level, required_quest_id, is_active, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				town_id = EXCLUDED.town_id, name = EXCLUDED.name, description = EXCLUDED.description,
				icon = EXCLUDED.icon, location_type = EXCLUDED.location_type,
				map_position_x = EXCLUDED.map_position_x, map_position_y = EXCLUDED.map_position_y,
				required_level = EXCLUDED.required_level, required_quest_id = EXCLUDED.required_quest_id,
				is_active = EXCLUDED.is_active, sort_order = EXCLUDED.sort_order`,
			l.ID, l.TownID, l.Name, l.Description, l.Icon, string(l.Type),
			l.MapX, l.MapY, l.RequiredLevel, l.RequiredQuestID, l.Active, l.SortOrder,
		)
	}
	for _, it := range content.Items {
		batch.Queue(`
			INSERT INTO items (id, name, description, item_type, rarity, base_price)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, description = EXCLUDED.description, item_type = EXCLUDED.item_type,
				rarity = EXCLUDED.rarity, base_price = EXCLUDED.base_price`,
			it.ID, it.Name, it.Description, it.Type, it.Rarity, it.BasePrice,
		)
	}
	for _, a := range content.Actions {
		rewards, err := world.EncodeRewards(a.Rewards)
		if err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
		batch.Queue(`
			INSERT INTO actions (id, location_id, name, description, icon, action_type, category,
				required_level, required_currency, required_item_id, required_item_quantity, action_points_cost,
				cooldown_seconds, duration_seconds, rewards, is_repeatable, is_active, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15::jsonb, $16, $17, $18)
			ON CONFLICT (id) DO UPDATE SET
				location_id = EXCLUDED.location_id, name = EXCLUDED.name, description = EXCLUDED.description,
				icon = EXCLUDED.icon, action_type = EXCLUDED.action_type, category = EXCLUDED.category,
				required_level = EXCLUDED.required_level, required_currency = EXCLUDED.required_currency,
				required_item_id = EXCLUDED.required_item_id, required_item_quantity = EXCLUDED.required_item_quantity,
				action_points_cost = EXCLUDED.action_points_cost, cooldown_seconds = EXCLUDED.cooldown_seconds,
				duration_seconds = EXCLUDED.duration_seconds, rewards = EXCLUDED.rewards,
				is_repeatable = EXCLUDED.is_repeatable, is_active = EXCLUDED.is_active, sort_order = EXCLUDED.sort_order`,
			a.ID, a.LocationID, a.Name, a.Description, a.Icon, string(a.Type), string(a.Category),
			a.Requirements.Level, a.Requirements.Currency, a.Requirements.ItemID,
			a.Requirements.ItemQuantity, a.Requirements.ActionPointsCost,
			a.Timing.CooldownSeconds, a.Timing.DurationSeconds, string(rewards),
			a.Repeatable, a.Active, a.SortOrder,
		)
	}

	return pgx.BeginFunc(ctx, s.pool.DB(), func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("importing content: %w", err)
		}
		return nil
	})
}

// LoadContent reads the whole world catalog.
func (s *Store) LoadContent(ctx context.Context) (world.Content, error) {
	var c world.Content
	var err error
	if c.Towns, err = s.loadTowns(ctx); err != nil {
		return world.Content{}, err
	}
	if c.Locations, err = s.loadLocations(ctx); err != nil {
		return world.Content{}, err
	}
	if c.Items, err = s.loadItems(ctx); err != nil {
		return world.Content{}, err
	}
	if c.Actions, err = s.loadActions(ctx); err != nil {
		return world.Content{}, err
	}
	return c, nil
}

func (s *Store) loadTowns(ctx context.Context) ([]*world.Town, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT id, name, description, region, required_level, map_image, is_safe_zone
		FROM towns ORDER BY required_level, name`)
	if err != nil {
		return nil, fmt.Errorf("listing towns: %w", err)
	}
	towns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*world.Town, error) {
		var t world.Town
		err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Region, &t.RequiredLevel, &t.MapImage, &t.SafeZone)
		return &t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning town: %w", err)
	}
	return towns, nil
}

func (s *Store) loadLocations(ctx context.Context) ([]*world.Location, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT id, town_id, name, description, icon, location_type, map_position_x, map_position_y,
			required_level, required_quest_id, is_active, sort_order
		FROM locations ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	locations, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*world.Location, error) {
		var l world.Location
		var typ string
		err := row.Scan(&l.ID, &l.TownID, &l.Name, &l.Description, &l.Icon, &typ,
			&l.MapX, &l.MapY, &l.RequiredLevel, &l.RequiredQuestID, &l.Active, &l.SortOrder)
		l.Type = world.LocationType(typ)
		return &l, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning location: %w", err)
	}
	return locations, nil
}

func (s *Store) loadItems(ctx context.Context) ([]*world.Item, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT id, name, description, item_type, rarity, base_price FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*world.Item, error) {
		var it world.Item
		err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Type, &it.Rarity, &it.BasePrice)
		return &it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning item: %w", err)
	}
	return items, nil
}

func (s *Store) loadActions(ctx context.Context) ([]*world.Action, error) {
	rows, err := s.pool.DB().Query(ctx, `
		SELECT id, location_id, name, description, icon, action_type, category,
			required_level, required_currency, required_item_id, required_item_quantity, action_points_cost,
			cooldown_seconds, duration_seconds, rewards::text, is_repeatable, is_active, sort_order
		FROM actions ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*world.Action, error) {
		var a world.Action
		var typ, category, rewards string
		err := row.Scan(&a.ID, &a.LocationID, &a.Name, &a.Description, &a.Icon, &typ, &category,
			&a.Requirements.Level, &a.Requirements.Currency, &a.Requirements.ItemID, &a.Requirements.ItemQuantity,
			&a.Requirements.ActionPointsCost, &a.Timing.CooldownSeconds, &a.Timing.DurationSeconds,
			&rewards, &a.Repeatable, &a.Active, &a.SortOrder)
		if err != nil {
			return nil, err
		}
		a.Type = world.ActionType(typ)
		a.Category = world.ActionCategory(category)
		if a.Rewards, err = world.DecodeRewards([]byte(rewards)); err != nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, err)
		}
		return &a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning action: %w", err)
	}
	return actions, nil
}
