// Package main provides the game server binary that serves the action
// resolution engine over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/game/action"
	"github.com/cory-johannsen/wayfarer/internal/game/dice"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
	"github.com/cory-johannsen/wayfarer/internal/observability"
	"github.com/cory-johannsen/wayfarer/internal/server"
	"github.com/cory-johannsen/wayfarer/internal/storage"
)

// healthInterval is how often the store is probed for the health service.
const healthInterval = 15 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, zap.String("component", "gameserver"))
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("setting up tracing", zap.Error(err))
	}

	logger.Info("starting game server",
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	dbStart := time.Now()
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	if err := store.Health(ctx); err != nil {
		logger.Fatal("storage health check", zap.Error(err))
	}
	logger.Info("storage ready", zap.Duration("elapsed", time.Since(dbStart)))

	catStart := time.Now()
	catalog, err := storage.LoadCatalog(ctx, store)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("towns", len(catalog.Towns())),
		zap.Int("actions", len(catalog.Content().Actions)),
		zap.Duration("elapsed", time.Since(catStart)),
	)
	if _, err := catalog.StartLocation(); err != nil {
		logger.Warn("no start location; character creation will fail until content is imported", zap.Error(err))
	}

	src, err := newSource(cfg.Engine)
	if err != nil {
		logger.Fatal("creating random source", zap.Error(err))
	}
	engine := action.NewEngine(store, catalog, dice.NewLoggedSource(src, logger), logger,
		action.WithMaxAttempts(cfg.Engine.MaxAttempts),
	)
	sweeper := action.NewSweeper(store, logger, cfg.Sweeper.Interval, cfg.Sweeper.Timeout)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	gameserver.RegisterActionServiceServer(grpcServer, gameserver.NewActionServer(engine, store, catalog, logger))

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	probe := newHealthProbe(store, healthSrv, logger)

	lifecycle := server.NewLifecycle(logger, cfg.Server.ShutdownTimeout)

	lifecycle.Add("storage", &server.FuncService{
		StartFn: probe.run,
		StopFn: func(ctx context.Context) {
			probe.stop()
			if err := store.Close(); err != nil {
				logger.Warn("closing storage", zap.Error(err))
			}
			if err := shutdownTracing(ctx); err != nil {
				logger.Warn("flushing traces", zap.Error(err))
			}
		},
	})
	lifecycle.Add("sweeper", sweeper)
	lifecycle.Add("grpc", &server.FuncService{
		StartFn: func() error {
			lis, err := net.Listen("tcp", cfg.GameServer.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.GameServer.Addr(), err)
			}
			logger.Info("gRPC server listening",
				zap.String("addr", lis.Addr().String()),
			)
			return grpcServer.Serve(lis)
		},
		StopFn: func(ctx context.Context) {
			healthSrv.Shutdown()
			stopped := make(chan struct{})
			go func() {
				grpcServer.GracefulStop()
				close(stopped)
			}()
			select {
			case <-stopped:
			case <-ctx.Done():
				grpcServer.Stop()
			}
		},
	})

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", cfg.GameServer.Addr()),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

// newSource builds the reward random source named by cfg.RNG.
func newSource(cfg config.EngineConfig) (dice.Source, error) {
	switch cfg.RNG {
	case "crypto":
		return dice.NewCryptoSource(), nil
	case "math":
		seed := cfg.Seed
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return dice.NewMathSource(seed), nil
	default:
		return nil, fmt.Errorf("unknown rng %q", cfg.RNG)
	}
}
