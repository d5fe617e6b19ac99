package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/wayfarer/internal/config"
	"github.com/cory-johannsen/wayfarer/internal/gameserver"
)

func TestNewSource(t *testing.T) {
	src, err := newSource(config.EngineConfig{RNG: "crypto"})
	require.NoError(t, err)
	v := src.Float64()
	assert.True(t, v >= 0 && v < 1)

	a, err := newSource(config.EngineConfig{RNG: "math", Seed: 7})
	require.NoError(t, err)
	b, err := newSource(config.EngineConfig{RNG: "math", Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, a.Float64(), b.Float64(), "equal seeds replay")

	_, err = newSource(config.EngineConfig{RNG: "dice"})
	assert.Error(t, err)
}

type fakePinger struct{ err error }

func (f *fakePinger) Health(context.Context) error { return f.err }

func servingStatus(t *testing.T, srv *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthProbe(t *testing.T) {
	store := &fakePinger{}
	srv := health.NewServer()
	probe := newHealthProbe(store, srv, zaptest.NewLogger(t))

	probe.check()
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, srv, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, servingStatus(t, srv, gameserver.ServiceName))

	store.err = errors.New("connection refused")
	probe.check()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, servingStatus(t, srv, gameserver.ServiceName))
}

func TestHealthProbe_StopEndsRun(t *testing.T) {
	probe := newHealthProbe(&fakePinger{}, health.NewServer(), zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- probe.run() }()
	probe.stop()
	probe.stop()
	require.NoError(t, <-done)
}
