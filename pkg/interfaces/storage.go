package interfaces

import (
	"context"
	"time"

	"github.com/vitalsight/modelregistry/pkg/models"
)

// ArtifactStore persists the opaque model blob and its side files
// (hyperparameters, feature list) under a path keyed by model name and
// version id. It has no knowledge of version status.
type ArtifactStore interface {
	// Connect initializes the backing store
	Connect(ctx context.Context) error

	// Close releases resources
	Close() error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// Save serializes the model object and side files and returns the
	// artifact path handle. A failed save must leave no metadata behind;
	// the caller owns that guarantee.
	Save(ctx context.Context, modelName, versionID string, model interface{},
		hyperparameters map[string]interface{}, featureNames []string) (string, error)

	// Load retrieves and deserializes the artifact at the given path
	Load(ctx context.Context, artifactPath string) (*Artifact, error)

	// Delete removes the artifact; used only to compensate failed
	// registrations. Callers log, not propagate, its failures.
	Delete(ctx context.Context, artifactPath string) error
}

// Artifact is the payload an ArtifactStore round-trips.
type Artifact struct {
	Model           interface{}
	Hyperparameters map[string]interface{}
	FeatureNames    []string
}

// MetadataStore is the transactional table of ModelVersion records plus the
// append-only deployment log. SetStatusAtomic is the sole status mutation
// primitive; it is how the single-production invariant is enforced.
type MetadataStore interface {
	// Connect initializes the backing store
	Connect(ctx context.Context) error

	// Close releases resources
	Close() error

	// Ping verifies the store is reachable
	Ping(ctx context.Context) error

	// InsertVersion inserts a new version record. Returns a
	// DuplicateVersion error if the version id already exists.
	InsertVersion(ctx context.Context, record *models.ModelVersion) error

	// GetVersion returns the record or a VersionNotFound error.
	GetVersion(ctx context.Context, modelName, versionID string) (*models.ModelVersion, error)

	// ListVersions returns records most-recent-first by created_at.
	// limit <= 0 returns all versions.
	ListVersions(ctx context.Context, modelName string, limit int) ([]*models.ModelVersion, error)

	// GetProduction returns the current production version, or (nil, nil)
	// when the model has none.
	GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, error)

	// SetStatusAtomic compare-and-sets the status field. It returns
	// (false, nil) when the stored status does not match expected - a
	// normal outcome under contention, not an error. Transitions outside
	// the status table are rejected with a validation error.
	SetStatusAtomic(ctx context.Context, modelName, versionID string,
		expected, next models.Status) (bool, error)

	// SetDeployedAt stamps the deployed_at field.
	SetDeployedAt(ctx context.Context, modelName, versionID string, t time.Time) error

	// AppendDeploymentRecord appends one audit entry. Entries are never
	// mutated or deleted.
	AppendDeploymentRecord(ctx context.Context, record *models.DeploymentRecord) error

	// GetDeploymentHistory returns audit entries most-recent-first.
	// limit <= 0 returns all entries.
	GetDeploymentHistory(ctx context.Context, modelName string, limit int) ([]*models.DeploymentRecord, error)

	// ComputeStatistics aggregates counts and mean metrics across all models.
	ComputeStatistics(ctx context.Context) (*models.RegistryStatistics, error)
}

// ProductionCache fronts MetadataStore.GetProduction for read-heavy serving
// paths. It is an optimization only: implementations must fail open and the
// registry must never treat cached state as authoritative.
type ProductionCache interface {
	GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, bool, error)
	SetProduction(ctx context.Context, version *models.ModelVersion) error
	Invalidate(ctx context.Context, modelName string) error
	Close() error
}
