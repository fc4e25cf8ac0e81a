package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vitalsight/modelregistry/pkg/errors"
)

// Backend names accepted in configuration.
const (
	ArtifactBackendFile = "file"
	ArtifactBackendS3   = "s3"

	MetadataBackendPostgres = "postgres"
	MetadataBackendMemory   = "memory"
)

// Config is the top-level registry configuration, loaded from a YAML file
// with MODELREG_ environment overrides.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RegistryConfig carries registry-level behavior knobs.
type RegistryConfig struct {
	DefaultMetric string `mapstructure:"default_metric"`
	Serializer    string `mapstructure:"serializer"`
	DefaultUser   string `mapstructure:"default_user"`
}

// ArtifactsConfig selects and configures the artifact backend.
type ArtifactsConfig struct {
	Backend string              `mapstructure:"backend"`
	File    FileArtifactsConfig `mapstructure:"file"`
	S3      S3ArtifactsConfig   `mapstructure:"s3"`
}

type FileArtifactsConfig struct {
	BasePath   string `mapstructure:"base_path"`
	CreateDirs bool   `mapstructure:"create_dirs"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

type S3ArtifactsConfig struct {
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	SessionToken    string        `mapstructure:"session_token"`
	Endpoint        string        `mapstructure:"endpoint"`
	ForcePathStyle  bool          `mapstructure:"force_path_style"`
	DisableSSL      bool          `mapstructure:"disable_ssl"`
	Prefix          string        `mapstructure:"prefix"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	StorageClass    string        `mapstructure:"storage_class"`
}

// MetadataConfig selects and configures the metadata backend.
type MetadataConfig struct {
	Backend  string                 `mapstructure:"backend"`
	Postgres PostgresMetadataConfig `mapstructure:"postgres"`
}

type PostgresMetadataConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig configures the optional Redis production cache.
type CacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	TTL          time.Duration `mapstructure:"ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from the given file (optional) plus MODELREG_
// environment variables and applies defaults.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/modelregistry")
		v.SetConfigName("modelregistry")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("MODELREG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("registry.default_metric", "roc_auc")
	v.SetDefault("registry.serializer", "gob")
	v.SetDefault("registry.default_user", "system")

	v.SetDefault("artifacts.backend", ArtifactBackendFile)
	v.SetDefault("artifacts.file.base_path", "./model_registry/artifacts")
	v.SetDefault("artifacts.file.create_dirs", true)
	v.SetDefault("artifacts.s3.region", "us-east-1")
	v.SetDefault("artifacts.s3.prefix", "artifacts")
	v.SetDefault("artifacts.s3.timeout", 30*time.Second)
	v.SetDefault("artifacts.s3.max_retries", 3)
	v.SetDefault("artifacts.s3.storage_class", "STANDARD")

	v.SetDefault("metadata.backend", MetadataBackendMemory)
	v.SetDefault("metadata.postgres.port", 5432)
	v.SetDefault("metadata.postgres.ssl_mode", "disable")
	v.SetDefault("metadata.postgres.connect_timeout", 10*time.Second)
	v.SetDefault("metadata.postgres.query_timeout", 30*time.Second)
	v.SetDefault("metadata.postgres.max_connections", 10)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.key_prefix", "modelregistry:production")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks backend selections and their required fields.
func (c *Config) Validate() error {
	switch c.Artifacts.Backend {
	case ArtifactBackendFile:
		if c.Artifacts.File.BasePath == "" {
			return errors.NewValidationError(errors.CodeMissingConfig,
				"artifacts.file.base_path is required for the file backend")
		}
	case ArtifactBackendS3:
		if c.Artifacts.S3.Bucket == "" {
			return errors.NewValidationError(errors.CodeMissingConfig,
				"artifacts.s3.bucket is required for the s3 backend")
		}
	default:
		return errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown artifact backend: %s", c.Artifacts.Backend))
	}

	switch c.Metadata.Backend {
	case MetadataBackendMemory:
	case MetadataBackendPostgres:
		if c.Metadata.Postgres.Host == "" {
			return errors.NewValidationError(errors.CodeMissingConfig,
				"metadata.postgres.host is required for the postgres backend")
		}
		if c.Metadata.Postgres.Database == "" {
			return errors.NewValidationError(errors.CodeMissingConfig,
				"metadata.postgres.database is required for the postgres backend")
		}
	default:
		return errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown metadata backend: %s", c.Metadata.Backend))
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.NewValidationError(errors.CodeMissingConfig,
			"cache.addr is required when the cache is enabled")
	}

	switch c.Registry.Serializer {
	case "gob", "json", "raw":
	default:
		return errors.NewValidationError(errors.CodeInvalidConfig,
			fmt.Sprintf("unknown serializer: %s", c.Registry.Serializer))
	}

	return nil
}
