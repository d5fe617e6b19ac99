package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/observability"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// localEnv is an open store plus the logger and config used to open it.
type localEnv struct {
	cfg    config.Config
	logger *zap.Logger
	store  storage.Backend
}

func (e *localEnv) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing storage", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// openLocal loads the configuration and opens its store directly.
func openLocal(ctx context.Context, flags *globalFlags) (*localEnv, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, zap.String("component", "wayfarerctl"))
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &localEnv{cfg: cfg, logger: logger, store: store}, nil
}

// dial connects to the game server named by --addr, or by the config when
// --addr is empty.
func dial(flags *globalFlags) (*gameserver.ActionServiceClient, func(), error) {
	addr := flags.addr
	if addr == "" {
		cfg, err := config.Load(flags.configPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		addr = cfg.GameServer.Addr()
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	return gameserver.NewActionServiceClient(conn), func() { _ = conn.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
