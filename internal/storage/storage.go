// Package storage selects and opens the configured character state store.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/character"
	"github.com/cory-johannsen/wayfarer/internal/game/player"
	"github.com/cory-johannsen/wayfarer/internal/game/world"
	"github.com/cory-johannsen/wayfarer/internal/storage/postgres"
	"github.com/cory-johannsen/wayfarer/internal/storage/sqlite"
)

// Backend is everything the services need from a store. Both the sqlite and
// postgres stores implement it.
type Backend interface {
	action.Store

	Health(ctx context.Context) error
	Close() error

	ImportContent(ctx context.Context, content world.Content) error
	LoadContent(ctx context.Context) (world.Content, error)

	ResolvePlayer(ctx context.Context, wallet, username string, now time.Time) (*player.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (*player.Player, error)

	CreateCharacter(ctx context.Context, c *character.Character) error
	NameTaken(ctx context.Context, name string) (bool, error)
	GetCharacter(ctx context.Context, id uuid.UUID) (*character.Character, error)
	ListCharacters(ctx context.Context, playerID uuid.UUID) ([]*character.Character, error)
	Inventory(ctx context.Context, characterID uuid.UUID) ([]character.InventoryLine, error)
}

var (
	_ Backend = (*sqlite.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open connects to the backend named by cfg.Storage.Driver.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns a ready Backend or a non-nil error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (Backend, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		logger.Info("storage opened", zap.String("driver", config.DriverSQLite), zap.String("path", cfg.Storage.SQLitePath))
		return store, nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		logger.Info("storage opened",
			zap.String("driver", config.DriverPostgres),
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)
		return postgres.NewStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// LoadCatalog reads the world content from b and indexes it.
func LoadCatalog(ctx context.Context, b Backend) (*world.Catalog, error) {
	content, err := b.LoadContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading content: %w", err)
	}
	cat, err := world.NewCatalog(content)
	if err != nil {
		return nil, fmt.Errorf("indexing content: %w", err)
	}
	return cat, nil
}
