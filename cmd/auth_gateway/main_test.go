package main

import (
	"auth_gateway/internal/config"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		env   string
		debug bool
	}{
		{env: envLocal, debug: true},
		{env: envDev, debug: true},
		{env: envProd, debug: false},
		{env: "staging", debug: false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			log := setupLogger(tt.env)
			require.NotNil(t, log)
			assert.Equal(t, tt.debug, log.Enabled(ctx, slog.LevelDebug))
			assert.True(t, log.Enabled(ctx, slog.LevelInfo))
		})
	}
}

func TestOpenStores_Memory(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.DriverMemory}

	users, resources, closeStores, err := openStores(context.Background(), cfg, setupLogger(envProd))
	require.NoError(t, err)
	defer closeStores()

	ctx := context.Background()
	require.NoError(t, users.SeedUser(ctx, "admin@example.com", "admin"))

	emails, err := users.ListEmails(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin@example.com"}, emails)

	count, err := resources.CountResources(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
