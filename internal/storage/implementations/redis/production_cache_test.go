package redis

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/modelregistry/pkg/models"
)

func TestNewProductionCache(t *testing.T) {
	cache, err := NewProductionCache(&ProductionCacheConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)
	require.NotNil(t, cache)

	// Defaults are applied on construction
	assert.Equal(t, 5*time.Minute, cache.config.TTL)
	assert.Equal(t, "modelregistry:production", cache.config.KeyPrefix)
	assert.Equal(t, 10, cache.config.PoolSize)
}

func TestNewProductionCacheInvalidConfig(t *testing.T) {
	_, err := NewProductionCache(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")

	_, err = NewProductionCache(&ProductionCacheConfig{}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address is required")
}

func TestProductionCacheFailsOpenWhenDisconnected(t *testing.T) {
	cache, err := NewProductionCache(&ProductionCacheConfig{Addr: "localhost:6379"}, logrus.New())
	require.NoError(t, err)

	// Reads on an unconnected cache report a miss, never an error
	version, hit, err := cache.GetProduction(context.Background(), "risk_classifier")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, version)

	// Writes do error so callers can log the degradation
	err = cache.SetProduction(context.Background(), &models.ModelVersion{ModelName: "risk_classifier"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestProductionCacheKey(t *testing.T) {
	cache, err := NewProductionCache(&ProductionCacheConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "registry:prod",
	}, logrus.New())
	require.NoError(t, err)

	assert.Equal(t, "registry:prod:risk_classifier", cache.key("risk_classifier"))
}

// Integration test - requires a running Redis instance.
func TestProductionCacheIntegration(t *testing.T) {
	t.Skip("Integration test - requires running Redis instance")

	cache, err := NewProductionCache(&ProductionCacheConfig{
		Addr: "localhost:6379",
		DB:   1,
		TTL:  time.Minute,
	}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cache.Connect(ctx))
	defer cache.Close()

	version := &models.ModelVersion{
		VersionID: "v20250101000000_cafe0001",
		ModelName: "risk_classifier",
		Status:    models.StatusProduction,
		Metrics:   map[string]float64{"roc_auc": 0.91},
	}

	// Cold cache misses
	_, hit, err := cache.GetProduction(ctx, "risk_classifier")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.SetProduction(ctx, version))

	got, hit, err := cache.GetProduction(ctx, "risk_classifier")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, version.VersionID, got.VersionID)
	assert.Equal(t, version.Metrics, got.Metrics)

	require.NoError(t, cache.Invalidate(ctx, "risk_classifier"))

	_, hit, err = cache.GetProduction(ctx, "risk_classifier")
	require.NoError(t, err)
	assert.False(t, hit)
}
