package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/internal/config"
	"github.com/vitalsight/modelregistry/internal/serializer"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/file"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/memory"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/postgres"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/redis"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/s3"
	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/interfaces"
)

// NewSerializer builds the model serializer named in configuration.
func NewSerializer(name string) (interfaces.ModelSerializer, error) {
	switch name {
	case "gob":
		return serializer.NewGobSerializer(), nil
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "raw":
		return serializer.NewRawSerializer(), nil
	default:
		return nil, errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown serializer: %s", name))
	}
}

// OpenArtifactStore builds the configured artifact backend and connects it.
func OpenArtifactStore(ctx context.Context, cfg *config.Config,
	ser interfaces.ModelSerializer, logger *logrus.Logger) (interfaces.ArtifactStore, error) {

	var store interfaces.ArtifactStore
	var err error

	switch cfg.Artifacts.Backend {
	case config.ArtifactBackendFile:
		store, err = file.NewArtifactStore(&file.ArtifactStoreConfig{
			BasePath:   cfg.Artifacts.File.BasePath,
			CreateDirs: cfg.Artifacts.File.CreateDirs,
			SyncWrites: cfg.Artifacts.File.SyncWrites,
		}, ser, logger)
	case config.ArtifactBackendS3:
		store, err = s3.NewArtifactStore(&s3.ArtifactStoreConfig{
			Region:          cfg.Artifacts.S3.Region,
			Bucket:          cfg.Artifacts.S3.Bucket,
			AccessKeyID:     cfg.Artifacts.S3.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.S3.SecretAccessKey,
			SessionToken:    cfg.Artifacts.S3.SessionToken,
			Endpoint:        cfg.Artifacts.S3.Endpoint,
			ForcePathStyle:  cfg.Artifacts.S3.ForcePathStyle,
			DisableSSL:      cfg.Artifacts.S3.DisableSSL,
			Prefix:          cfg.Artifacts.S3.Prefix,
			Timeout:         cfg.Artifacts.S3.Timeout,
			MaxRetries:      cfg.Artifacts.S3.MaxRetries,
			StorageClass:    cfg.Artifacts.S3.StorageClass,
		}, ser, logger)
	default:
		return nil, errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown artifact backend: %s", cfg.Artifacts.Backend))
	}
	if err != nil {
		return nil, err
	}

	if err := store.Connect(ctx); err != nil {
		return nil, err
	}

	logger.WithField("backend", cfg.Artifacts.Backend).Info("Artifact store ready")
	return store, nil
}

// OpenMetadataStore builds the configured metadata backend and connects it.
func OpenMetadataStore(ctx context.Context, cfg *config.Config,
	logger *logrus.Logger) (interfaces.MetadataStore, error) {

	var store interfaces.MetadataStore
	var err error

	switch cfg.Metadata.Backend {
	case config.MetadataBackendMemory:
		store = memory.NewMetadataStore(logger)
	case config.MetadataBackendPostgres:
		store, err = postgres.NewMetadataStore(&postgres.MetadataStoreConfig{
			Host:            cfg.Metadata.Postgres.Host,
			Port:            cfg.Metadata.Postgres.Port,
			Database:        cfg.Metadata.Postgres.Database,
			Username:        cfg.Metadata.Postgres.Username,
			Password:        cfg.Metadata.Postgres.Password,
			SSLMode:         cfg.Metadata.Postgres.SSLMode,
			ConnectTimeout:  cfg.Metadata.Postgres.ConnectTimeout,
			QueryTimeout:    cfg.Metadata.Postgres.QueryTimeout,
			MaxConnections:  cfg.Metadata.Postgres.MaxConnections,
			MaxIdleConns:    cfg.Metadata.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Metadata.Postgres.ConnMaxLifetime,
		}, logger)
	default:
		return nil, errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown metadata backend: %s", cfg.Metadata.Backend))
	}
	if err != nil {
		return nil, err
	}

	if err := store.Connect(ctx); err != nil {
		return nil, err
	}

	logger.WithField("backend", cfg.Metadata.Backend).Info("Metadata store ready")
	return store, nil
}

// OpenProductionCache builds and connects the Redis production cache, or
// returns (nil, nil) when caching is disabled. A nil cache is a valid
// registry dependency; the read path simply always hits the metadata store.
func OpenProductionCache(ctx context.Context, cfg *config.Config,
	logger *logrus.Logger) (interfaces.ProductionCache, error) {

	if !cfg.Cache.Enabled {
		return nil, nil
	}

	cache, err := redis.NewProductionCache(&redis.ProductionCacheConfig{
		Addr:         cfg.Cache.Addr,
		Password:     cfg.Cache.Password,
		DB:           cfg.Cache.DB,
		TTL:          cfg.Cache.TTL,
		KeyPrefix:    cfg.Cache.KeyPrefix,
		PoolSize:     cfg.Cache.PoolSize,
		DialTimeout:  cfg.Cache.DialTimeout,
		ReadTimeout:  cfg.Cache.ReadTimeout,
		WriteTimeout: cfg.Cache.WriteTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := cache.Connect(ctx); err != nil {
		return nil, err
	}

	logger.WithField("addr", cfg.Cache.Addr).Info("Production cache ready")
	return cache, nil
}
