package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambridge/internal/config"
	"streambridge/internal/logger"
)

func TestInitHTTPServerAppliesTimeouts(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.ReadTimeoutSeconds = 10
	cfg.Server.WriteTimeoutSeconds = 15
	cfg.Broker.Kafka.Brokers = []string{"localhost:9092"}

	a := NewApp(cfg, logger.NopLogger())
	require.NoError(t, a.initHTTPServer())

	assert.Equal(t, ":8080", a.server.Addr)
	assert.Equal(t, 10*time.Second, a.server.ReadTimeout)
	assert.Equal(t, 15*time.Second, a.server.WriteTimeout)
}
