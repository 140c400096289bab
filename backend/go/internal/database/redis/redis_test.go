package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"AgentHub/backend/go/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(context.Background(), &config.RedisConfig{})
	assert.Error(t, err)
}

func TestNewClientFailsWhenNothingListens(t *testing.T) {
	// Reserve a port, then release it so the dial is refused.
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err = NewClient(ctx, &config.RedisConfig{Address: addr})
	assert.ErrorContains(t, err, "无法连接到 Redis")
}

func TestHealthCheckNilClient(t *testing.T) {
	assert.Error(t, HealthCheck(context.Background(), nil))
}
