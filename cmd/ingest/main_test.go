package main

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NATSUnavailableReturnsError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("NATS_URL", "nats://127.0.0.1:1")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup nats")
}

func TestRun_InvalidDatabaseURLReturnsError(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_URL", "postgres://%zz")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to setup database")
}
