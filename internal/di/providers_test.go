package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "ETFWatch/internal/repository"
	"ETFWatch/internal/service/ntfy"
	"ETFWatch/pkg/cache"
	"ETFWatch/pkg/config"
	applogger "ETFWatch/pkg/logger"
	"ETFWatch/pkg/metrics"
)

func TestProvideGatewayDryRunNeedsNoTopic(t *testing.T) {
	cfg := config.Default()

	gw, err := ProvideGateway(cfg, metrics.New(), applogger.Nop(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.IsType(t, &internalrepo.DryRunGateway{}, gw)
}

func TestProvideGatewayRequiresTopicToSend(t *testing.T) {
	cfg := config.Default()

	_, err := ProvideGateway(cfg, metrics.New(), applogger.Nop(), RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ntfy.topic")

	cfg.Ntfy.Topic = "etf-alerts"
	gw, err := ProvideGateway(cfg, metrics.New(), applogger.Nop(), RunOptions{})
	require.NoError(t, err)
	assert.IsType(t, &ntfy.Gateway{}, gw)
}

func TestProvideCacheBackends(t *testing.T) {
	cfg := config.Default()

	cfg.Cache.Backend = config.CacheNone
	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, cache.Noop{}, c)

	cfg.Cache.Backend = config.CacheMemory
	c, err = ProvideCache(cfg)
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
	assert.NoError(t, c.Close())
}
