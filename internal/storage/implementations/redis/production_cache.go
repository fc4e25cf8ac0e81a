package redis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/models"
)

// ProductionCacheConfig holds configuration for the Redis production cache
type ProductionCacheConfig struct {
	Addr         string        `json:"addr" yaml:"addr"`
	Password     string        `json:"password" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	MaxRetries   int           `json:"max_retries" yaml:"max_retries"`
	TTL          time.Duration `json:"ttl" yaml:"ttl"`
	KeyPrefix    string        `json:"key_prefix" yaml:"key_prefix"`
}

// ProductionCache fronts MetadataStore.GetProduction with a Redis key per
// model. It fails open: any Redis error on the read path reports a miss so
// the caller falls through to the metadata store. Cached entries carry a TTL
// as a backstop; the registry invalidates explicitly on every transition.
type ProductionCache struct {
	config  *ProductionCacheConfig
	client  *redis.Client
	logger  *logrus.Logger
	mu      sync.RWMutex
	metrics *cacheMetrics
	closed  bool
}

type cacheMetrics struct {
	hitCount   int64
	missCount  int64
	errorCount int64
	mu         sync.Mutex
}

// NewProductionCache creates a new Redis production cache instance
func NewProductionCache(config *ProductionCacheConfig, logger *logrus.Logger) (*ProductionCache, error) {
	if config == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "ProductionCacheConfig cannot be nil")
	}

	if config.Addr == "" {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "Redis address is required")
	}

	if config.TTL == 0 {
		config.TTL = 5 * time.Minute
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "modelregistry:production"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &ProductionCache{
		config:  config,
		logger:  logger,
		metrics: &cacheMetrics{},
	}, nil
}

// Connect establishes the Redis connection
func (pc *ProductionCache) Connect(ctx context.Context) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.client != nil {
		return nil // Already connected
	}

	client := redis.NewClient(&redis.Options{
		Addr:         pc.config.Addr,
		Password:     pc.config.Password,
		DB:           pc.config.DB,
		DialTimeout:  pc.config.DialTimeout,
		ReadTimeout:  pc.config.ReadTimeout,
		WriteTimeout: pc.config.WriteTimeout,
		PoolSize:     pc.config.PoolSize,
		MinIdleConns: pc.config.MinIdleConns,
		MaxRetries:   pc.config.MaxRetries,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			"Failed to connect to Redis")
	}

	pc.client = client

	pc.logger.WithFields(logrus.Fields{
		"addr": pc.config.Addr,
		"db":   pc.config.DB,
		"ttl":  pc.config.TTL,
	}).Info("Connected to Redis production cache")

	return nil
}

// Close closes the Redis connection
func (pc *ProductionCache) Close() error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.closed {
		return nil
	}

	if pc.client != nil {
		err := pc.client.Close()
		pc.client = nil
		pc.closed = true

		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, "CLOSE_FAILED",
				"Failed to close Redis connection")
		}
	}

	pc.logger.Info("Redis production cache closed")
	return nil
}

// GetProduction returns the cached production version for the model. The
// second return reports a hit; misses and Redis failures both come back
// (nil, false, nil) so callers always have the metadata store to fall on.
func (pc *ProductionCache) GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, bool, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.closed || pc.client == nil {
		return nil, false, nil
	}

	data, err := pc.client.Get(ctx, pc.key(modelName)).Bytes()
	if err == redis.Nil {
		pc.incrementMiss()
		return nil, false, nil
	}
	if err != nil {
		pc.incrementError()
		pc.logger.WithError(err).WithField("model_name", modelName).
			Warn("Production cache read failed, falling through")
		return nil, false, nil
	}

	var version models.ModelVersion
	if err := json.Unmarshal(data, &version); err != nil {
		pc.incrementError()
		pc.logger.WithError(err).WithField("model_name", modelName).
			Warn("Production cache entry corrupt, falling through")
		return nil, false, nil
	}

	pc.incrementHit()
	return &version, true, nil
}

// SetProduction caches the production version for its model
func (pc *ProductionCache) SetProduction(ctx context.Context, version *models.ModelVersion) error {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.closed || pc.client == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Production cache is not connected")
	}

	data, err := json.Marshal(version)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to encode version for cache")
	}

	if err := pc.client.Set(ctx, pc.key(version.ModelName), data, pc.config.TTL).Err(); err != nil {
		pc.incrementError()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to write cache entry")
	}

	return nil
}

// Invalidate drops the cached entry for the model
func (pc *ProductionCache) Invalidate(ctx context.Context, modelName string) error {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.closed || pc.client == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Production cache is not connected")
	}

	if err := pc.client.Del(ctx, pc.key(modelName)).Err(); err != nil {
		pc.incrementError()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to invalidate cache entry")
	}

	pc.logger.WithField("model_name", modelName).Debug("Production cache entry invalidated")
	return nil
}

func (pc *ProductionCache) key(modelName string) string {
	return pc.config.KeyPrefix + ":" + modelName
}

func (pc *ProductionCache) incrementHit() {
	pc.metrics.mu.Lock()
	pc.metrics.hitCount++
	pc.metrics.mu.Unlock()
}

func (pc *ProductionCache) incrementMiss() {
	pc.metrics.mu.Lock()
	pc.metrics.missCount++
	pc.metrics.mu.Unlock()
}

func (pc *ProductionCache) incrementError() {
	pc.metrics.mu.Lock()
	pc.metrics.errorCount++
	pc.metrics.mu.Unlock()
}
