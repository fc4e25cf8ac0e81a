package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/internal/config"
	"github.com/vitalsight/modelregistry/internal/observability/metrics"
	"github.com/vitalsight/modelregistry/internal/registry"
	"github.com/vitalsight/modelregistry/internal/storage"
)

var (
	cfgFile *string
	verbose *bool
)

// SetGlobalOptions wires the root command's persistent flags into the
// command constructors.
func SetGlobalOptions(configFile *string, verboseFlag *bool) {
	cfgFile = configFile
	verbose = verboseFlag
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose != nil && *verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger
}

// openRegistry builds a fully wired registry from configuration. The
// returned cleanup closes every opened store.
func openRegistry(ctx context.Context) (*registry.Registry, func(), error) {
	file := ""
	if cfgFile != nil {
		file = *cfgFile
	}

	cfg, err := config.Load(file)
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg)

	ser, err := storage.NewSerializer(cfg.Registry.Serializer)
	if err != nil {
		return nil, nil, err
	}

	artifacts, err := storage.OpenArtifactStore(ctx, cfg, ser, logger)
	if err != nil {
		return nil, nil, err
	}

	metadata, err := storage.OpenMetadataStore(ctx, cfg, logger)
	if err != nil {
		artifacts.Close()
		return nil, nil, err
	}

	cache, err := storage.OpenProductionCache(ctx, cfg, logger)
	if err != nil {
		artifacts.Close()
		metadata.Close()
		return nil, nil, err
	}

	var registryMetrics *metrics.RegistryMetrics
	if cfg.Metrics.Enabled {
		registryMetrics = metrics.NewRegistryMetrics(logger)
		registryMetrics.StartServer(cfg.Metrics.Addr, cfg.Metrics.Path)
	}

	reg, err := registry.New(artifacts, metadata, cache, registryMetrics, &registry.Config{
		DefaultMetric: cfg.Registry.DefaultMetric,
		DefaultUser:   cfg.Registry.DefaultUser,
	}, logger)
	if err != nil {
		artifacts.Close()
		metadata.Close()
		if cache != nil {
			cache.Close()
		}
		return nil, nil, err
	}

	cleanup := func() {
		artifacts.Close()
		metadata.Close()
		if cache != nil {
			cache.Close()
		}
		if registryMetrics != nil {
			registryMetrics.Stop(context.Background())
		}
	}

	return reg, cleanup, nil
}

// parseMetrics turns repeated key=value flags into a metrics mapping.
func parseMetrics(pairs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid metric %q, expected name=value", pair)
		}
		value, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid metric value in %q: %w", pair, err)
		}
		result[parts[0]] = value
	}
	return result, nil
}
