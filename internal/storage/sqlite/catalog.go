package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cory-johannsen/wayfarer/internal/game/world"
)

// ImportContent upserts every town, location, item, and action in content in
// one transaction. Existing rows with the same ID are overwritten.
func (s *Store) ImportContent(ctx context.Context, content world.Content) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = sqlTx.Rollback() }()

	for _, t := range content.Towns {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO towns (id, name, description, region, required_level, map_image, is_safe_zone)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, description = excluded.description, region = excluded.region,
				required_level = excluded.required_level, map_image = excluded.map_image,
				is_safe_zone = excluded.is_safe_zone`,
			t.ID, t.Name, t.Description, t.Region, t.RequiredLevel, t.MapImage, t.SafeZone,
		)
		if err != nil {
			return fmt.Errorf("upserting town %q: %w", t.Name, err)
		}
	}
	for _, l := range content.Locations {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO locations (id, town_id, name, description, icon, location_type,
				map_position_x, map_position_y, required_level, required_quest_id, is_active, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				town_id = excluded.town_id, name = excluded.name, description = excluded.description,
				icon = excluded.icon, location_type = excluded.location_type,
				map_position_x = excluded.map_position_x, map_position_y = excluded.map_position_y,
				required_level = excluded.required_level, required_quest_id = excluded.required_quest_id,
				is_active = excluded.is_active, sort_order = excluded.sort_order`,
			l.ID, l.TownID, l.Name, l.Description, l.Icon, string(l.Type),
			l.MapX, l.MapY, l.RequiredLevel, nullUUID(l.RequiredQuestID), l.Active, l.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("upserting location %q: %w", l.Name, err)
		}
	}
	for _, it := range content.Items {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO items (id, name, description, item_type, rarity, base_price)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				name = excluded.name, description = excluded.description, item_type = excluded.item_type,
				rarity = excluded.rarity, base_price = excluded.base_price`,
			it.ID, it.Name, it.Description, it.Type, it.Rarity, it.BasePrice,
		)
		if err != nil {
			return fmt.Errorf("upserting item %q: %w", it.Name, err)
		}
	}
	for _, a := range content.Actions {
		rewards, err := world.EncodeRewards(a.Rewards)
		if err != nil {
			return fmt.Errorf("action %q: %w", a.Name, err)
		}
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO actions (id, location_id, name, description, icon, action_type, category,
				required_level, required_currency, required_item_id, required_item_quantity, action_points_cost,
				cooldown_seconds, duration_seconds, rewards, is_repeatable, is_active, sort_order)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				location_id = excluded.location_id, name = excluded.name, description = excluded.description,
				icon = excluded.icon, action_type = excluded.action_type, category = excluded.category,
				required_level = excluded.required_level, required_currency = excluded.required_currency,
				required_item_id = excluded.required_item_id, required_item_quantity = excluded.required_item_quantity,
				action_points_cost = excluded.action_points_cost, cooldown_seconds = excluded.cooldown_seconds,
				duration_seconds = excluded.duration_seconds, rewards = excluded.rewards,
				is_repeatable = excluded.is_repeatable, is_active = excluded.is_active, sort_order = excluded.sort_order`,
			a.ID, a.LocationID, a.Name, a.Description, a.Icon, string(a.Type), string(a.Category),
			a.Requirements.Level, a.Requirements.Currency, nullUUID(a.Requirements.ItemID),
			a.Requirements.ItemQuantity, a.Requirements.ActionPointsCost,
			a.Timing.CooldownSeconds, a.Timing.DurationSeconds, string(rewards),
			a.Repeatable, a.Active, a.SortOrder,
		)
		if err != nil {
			return fmt.Errorf("upserting action %q: %w", a.Name, err)
		}
	}
	if err := sqlTx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, region, required_level, map_image, is_safe_zone
		FROM towns ORDER BY required_level, name`)
	if err != nil {
		return nil, fmt.Errorf("listing towns: %w", err)
	}
	defer rows.Close()
	var out []*world.Town
	for rows.Next() {
		var t world.Town
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Region, &t.RequiredLevel, &t.MapImage, &t.SafeZone); err != nil {
			return nil, fmt.Errorf("scanning town: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Store) loadLocations(ctx context.Context) ([]*world.Location, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, town_id, name, description, icon, location_type, map_position_x, map_position_y,
			required_level, required_quest_id, is_active, sort_order
		FROM locations ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()
	var out []*world.Location
	for rows.Next() {
		var l world.Location
		var quest uuid.NullUUID
		if err := rows.Scan(&l.ID, &l.TownID, &l.Name, &l.Description, &l.Icon, &l.Type,
			&l.MapX, &l.MapY, &l.RequiredLevel, &quest, &l.Active, &l.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		l.RequiredQuestID = fromNullUUID(quest)
		out = append(out, &l)
	}
	return out, rows.Err()
}

func (s *Store) loadItems(ctx context.Context) ([]*world.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, item_type, rarity, base_price FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()
	var out []*world.Item
	for rows.Next() {
		var it world.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Type, &it.Rarity, &it.BasePrice); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (s *Store) loadActions(ctx context.Context) ([]*world.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, location_id, name, description, icon, action_type, category,
			required_level, required_currency, required_item_id, required_item_quantity, action_points_cost,
			cooldown_seconds, duration_seconds, rewards, is_repeatable, is_active, sort_order
		FROM actions ORDER BY sort_order, name`)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()
	var out []*world.Action
	for rows.Next() {
		var a world.Action
		var item uuid.NullUUID
		var rewards string
		if err := rows.Scan(&a.ID, &a.LocationID, &a.Name, &a.Description, &a.Icon, &a.Type, &a.Category,
			&a.Requirements.Level, &a.Requirements.Currency, &item, &a.Requirements.ItemQuantity,
			&a.Requirements.ActionPointsCost, &a.Timing.CooldownSeconds, &a.Timing.DurationSeconds,
			&rewards, &a.Repeatable, &a.Active, &a.SortOrder); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		a.Requirements.ItemID = fromNullUUID(item)
		if a.Rewards, err = world.DecodeRewards([]byte(rewards)); err != nil {
			return nil, fmt.Errorf("action %q: %w", a.Name, err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func fromNullUUID(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

