package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/wayfarer/internal/gameserver"
)

// pinger is the part of a store the probe needs.
type pinger interface {
	Health(ctx context.Context) error
}

// healthProbe mirrors store reachability into the gRPC health service for
// both the overall server and ActionService.
type healthProbe struct {
	store  pinger
	srv    *health.Server
	logger *zap.Logger

	once sync.Once
	quit chan struct{}
}

func newHealthProbe(store pinger, srv *health.Server, logger *zap.Logger) *healthProbe {
	return &healthProbe{store: store, srv: srv, logger: logger, quit: make(chan struct{})}
}

// run probes until stop is called.
func (p *healthProbe) run() error {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	p.check()
	for {
		select {
		case <-p.quit:
			return nil
		case <-ticker.C:
			p.check()
		}
	}
}

func (p *healthProbe) stop() {
	p.once.Do(func() { close(p.quit) })
}

func (p *healthProbe) check() {
	ctx, cancel := context.WithTimeout(context.Background(), healthInterval/2)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := p.store.Health(ctx); err != nil {
		p.logger.Warn("storage unhealthy", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.srv.SetServingStatus("", status)
	p.srv.SetServingStatus(gameserver.ServiceName, status)
}
