package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/wayfarer/internal/config"
)

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupTracing_Enabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := SetupTracing(ctx, config.TracingConfig{
		Enabled:     true,
		Endpoint:    "http://127.0.0.1:4318",
		ServiceName: "wayfarer-test",
	})
	require.NoError(t, err)
	// No spans were recorded, so shutdown has nothing to export.
	assert.NoError(t, shutdown(ctx))
}
