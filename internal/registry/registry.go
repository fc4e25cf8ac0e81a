package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/internal/observability/metrics"
	"github.com/vitalsight/modelregistry/internal/version"
	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/interfaces"
	"github.com/vitalsight/modelregistry/pkg/models"
)

// Config carries registry-level behavior settings
type Config struct {
	// DefaultMetric is the metric CompareVersions sorts by when the caller
	// names none.
	DefaultMetric string

	// DefaultUser is stamped on audit entries when the caller supplies no
	// user id.
	DefaultUser string
}

// Registry is the facade over version identity, artifact storage, and
// metadata. It exclusively owns creation and mutation of ModelVersion and
// DeploymentRecord entities; all cross-process coordination is delegated to
// the metadata store's compare-and-set, so Registry holds no locks of its
// own and any number of instances may run against the same backing stores.
type Registry struct {
	artifacts interfaces.ArtifactStore
	metadata  interfaces.MetadataStore
	cache     interfaces.ProductionCache
	metrics   *metrics.RegistryMetrics
	logger    *logrus.Logger
	config    *Config
	now       func() time.Time
}

// LoadedModel is the result of LoadModel: the deserialized model object plus
// the version metadata and artifact side files it was stored with.
type LoadedModel struct {
	Model           interface{}
	Version         *models.ModelVersion
	Hyperparameters map[string]interface{}
	FeatureNames    []string
}

// New creates a registry over the given stores. cache and registryMetrics
// are optional; pass nil to disable them.
func New(artifacts interfaces.ArtifactStore, metadata interfaces.MetadataStore,
	cache interfaces.ProductionCache, registryMetrics *metrics.RegistryMetrics,
	config *Config, logger *logrus.Logger) (*Registry, error) {

	if artifacts == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "ArtifactStore cannot be nil")
	}
	if metadata == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "MetadataStore cannot be nil")
	}

	if config == nil {
		config = &Config{}
	}
	if config.DefaultMetric == "" {
		config.DefaultMetric = "roc_auc"
	}
	if config.DefaultUser == "" {
		config.DefaultUser = "system"
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &Registry{
		artifacts: artifacts,
		metadata:  metadata,
		cache:     cache,
		metrics:   registryMetrics,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}, nil
}

// Register stores a new model version: generate an id, persist the artifact,
// insert the metadata row with status registered. If the metadata insert
// fails after the artifact was written, the artifact is deleted best-effort
// so the operation is all-or-nothing from the caller's perspective.
func (r *Registry) Register(ctx context.Context, req *models.RegisterRequest) (string, error) {
	start := r.now()
	var err error
	defer func() { r.metrics.ObserveOperation("register", start, err) }()

	if err = req.Validate(); err != nil {
		return "", err
	}

	versionID := version.New()

	artifactPath, err := r.artifacts.Save(ctx, req.ModelName, versionID,
		req.Model, req.Hyperparameters, req.FeatureNames)
	if err != nil {
		return "", err
	}

	userID := req.UserID
	if userID == "" {
		userID = r.config.DefaultUser
	}

	record := &models.ModelVersion{
		VersionID:          versionID,
		ModelName:          req.ModelName,
		ModelType:          req.ModelType,
		CreatedAt:          start.UTC(),
		Metrics:            req.Metrics,
		DatasetVersion:     req.DatasetVersion,
		Hyperparameters:    req.Hyperparameters,
		FeatureNames:       req.FeatureNames,
		NTrainingSamples:   req.NTrainingSamples,
		NValidationSamples: req.NValidationSamples,
		NTestSamples:       req.NTestSamples,
		TrainingDuration:   req.TrainingDuration,
		Notes:              req.Notes,
		CreatedBy:          userID,
		Status:             models.StatusRegistered,
		ArtifactPath:       artifactPath,
	}

	if err = r.metadata.InsertVersion(ctx, record); err != nil {
		// Compensate: a metadata row pointing at nothing must never exist,
		// while an unreferenced artifact is a harmless leak. Deletion
		// failures are logged only.
		if delErr := r.artifacts.Delete(ctx, artifactPath); delErr != nil {
			r.logger.WithError(delErr).WithFields(logrus.Fields{
				"model_name": req.ModelName,
				"version_id": versionID,
				"path":       artifactPath,
			}).Warn("Failed to delete artifact while compensating failed registration")
		}
		return "", err
	}

	r.logger.WithFields(logrus.Fields{
		"model_name": req.ModelName,
		"version_id": versionID,
		"model_type": req.ModelType,
		"user_id":    userID,
	}).Info("Model version registered")

	return versionID, nil
}

// LoadModel retrieves a version's artifact and metadata. An empty versionID
// resolves to the current production version.
func (r *Registry) LoadModel(ctx context.Context, modelName, versionID string) (*LoadedModel, error) {
	start := r.now()
	var err error
	defer func() { r.metrics.ObserveOperation("load_model", start, err) }()

	var record *models.ModelVersion

	if versionID == "" {
		record, err = r.GetProductionModel(ctx, modelName)
		if err != nil {
			return nil, err
		}
		if record == nil {
			err = errors.NewNotFoundError(errors.CodeNoProductionModel,
				fmt.Sprintf("No production version for model %s", modelName), errors.ErrNoProductionModel)
			return nil, err
		}
	} else {
		record, err = r.metadata.GetVersion(ctx, modelName, versionID)
		if err != nil {
			return nil, err
		}
	}

	artifact, err := r.artifacts.Load(ctx, record.ArtifactPath)
	if err != nil {
		return nil, err
	}

	r.logger.WithFields(logrus.Fields{
		"model_name": modelName,
		"version_id": record.VersionID,
		"status":     record.Status,
	}).Debug("Model loaded")

	return &LoadedModel{
		Model:           artifact.Model,
		Version:         record,
		Hyperparameters: artifact.Hyperparameters,
		FeatureNames:    artifact.FeatureNames,
	}, nil
}

// CompareVersions returns one comparison row per version, sorted descending
// by the named metric. Versions missing the metric sort last; ties break by
// created_at descending. Pure read.
func (r *Registry) CompareVersions(ctx context.Context, modelName string,
	versionIDs []string, metric string) ([]*models.VersionComparison, error) {

	start := r.now()
	var err error
	defer func() { r.metrics.ObserveOperation("compare_versions", start, err) }()

	if metric == "" {
		metric = r.config.DefaultMetric
	}

	var records []*models.ModelVersion
	if len(versionIDs) == 0 {
		records, err = r.metadata.ListVersions(ctx, modelName, 0)
		if err != nil {
			return nil, err
		}
	} else {
		for _, id := range versionIDs {
			record, getErr := r.metadata.GetVersion(ctx, modelName, id)
			if getErr != nil {
				err = getErr
				return nil, err
			}
			records = append(records, record)
		}
	}

	comparisons := make([]*models.VersionComparison, 0, len(records))
	for _, record := range records {
		value, ok := record.Metrics[metric]
		comparisons = append(comparisons, &models.VersionComparison{
			VersionID:   record.VersionID,
			Status:      record.Status,
			CreatedAt:   record.CreatedAt,
			MetricName:  metric,
			MetricValue: value,
			HasMetric:   ok,
			Metrics:     record.Metrics,
		})
	}

	sort.SliceStable(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.HasMetric != b.HasMetric {
			return a.HasMetric
		}
		if a.HasMetric && a.MetricValue != b.MetricValue {
			return a.MetricValue > b.MetricValue
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return comparisons, nil
}

// PromoteToProduction makes the target version the production version for
// its model, demoting any previous production version to archived. Returns
// false without error when the target is already production or when the
// compare-and-set lost a race; callers may re-read and retry.
func (r *Registry) PromoteToProduction(ctx context.Context, modelName, versionID, userID string) (bool, error) {
	start := r.now()
	var err error
	var promoted bool
	defer func() { r.metrics.ObserveOperation("promote", start, err) }()

	promoted, err = r.transitionToProduction(ctx, modelName, versionID, userID, models.ActionPromote)
	return promoted, err
}

// RollbackToVersion promotes a previously archived version back to
// production, recording the transition as a rollback. The target must not
// already be the production version.
func (r *Registry) RollbackToVersion(ctx context.Context, modelName, versionID, userID string) (bool, error) {
	start := r.now()
	var err error
	var rolled bool
	defer func() { r.metrics.ObserveOperation("rollback", start, err) }()

	rolled, err = r.transitionToProduction(ctx, modelName, versionID, userID, models.ActionRollback)
	return rolled, err
}

// transitionToProduction is the shared promote/rollback algorithm. Each
// status change is one compare-and-set against the actual current status, so
// two concurrent transitions for the same model cannot both win: the loser
// observes a stale status and comes back false.
func (r *Registry) transitionToProduction(ctx context.Context, modelName, versionID, userID string,
	action models.DeploymentAction) (bool, error) {

	if userID == "" {
		userID = r.config.DefaultUser
	}

	target, err := r.metadata.GetVersion(ctx, modelName, versionID)
	if err != nil {
		return false, err
	}

	if target.Status == models.StatusProduction {
		if action == models.ActionRollback {
			return false, errors.WrapError(errors.ErrInvalidRollbackTarget,
				errors.ErrorTypeValidation, errors.CodeInvalidRollback,
				fmt.Sprintf("version %s is already the production version", versionID))
		}
		// Idempotent no-op: no transition happens, no audit entry is
		// appended.
		r.logger.WithFields(logrus.Fields{
			"model_name": modelName,
			"version_id": versionID,
		}).Debug("Promotion skipped, version already in production")
		return false, nil
	}

	previous, err := r.metadata.GetProduction(ctx, modelName)
	if err != nil {
		return false, err
	}

	won, err := r.metadata.SetStatusAtomic(ctx, modelName, versionID,
		target.Status, models.StatusProduction)
	if err != nil {
		return false, err
	}
	if !won {
		r.logger.WithFields(logrus.Fields{
			"model_name": modelName,
			"version_id": versionID,
			"expected":   target.Status,
		}).Info("Production transition lost compare-and-set race")
		return false, nil
	}

	// Demote the previous production version, if any. A failure here is
	// retryable: the next transition re-reads production state, and the
	// single-production invariant is restored by re-running the demotion.
	if previous != nil && previous.VersionID != versionID {
		demoted, demoteErr := r.metadata.SetStatusAtomic(ctx, modelName, previous.VersionID,
			models.StatusProduction, models.StatusArchived)
		if demoteErr != nil {
			r.logger.WithError(demoteErr).WithFields(logrus.Fields{
				"model_name": modelName,
				"version_id": previous.VersionID,
			}).Error("Failed to demote previous production version")
		} else if !demoted {
			r.logger.WithFields(logrus.Fields{
				"model_name": modelName,
				"version_id": previous.VersionID,
			}).Warn("Previous production version changed status concurrently")
		}
	}

	fromVersion := ""
	if previous != nil && previous.VersionID != versionID {
		fromVersion = previous.VersionID
	}

	now := r.now().UTC()
	record := &models.DeploymentRecord{
		ModelName:   modelName,
		FromVersion: fromVersion,
		ToVersion:   versionID,
		Action:      action,
		UserID:      userID,
		Timestamp:   now,
	}
	if err := r.metadata.AppendDeploymentRecord(ctx, record); err != nil {
		// The transition itself stands; surface the failure so the caller
		// knows the audit log is behind.
		return true, err
	}

	if err := r.metadata.SetDeployedAt(ctx, modelName, versionID, now); err != nil {
		return true, err
	}

	r.invalidateCache(ctx, modelName)

	r.logger.WithFields(logrus.Fields{
		"model_name":   modelName,
		"from_version": fromVersion,
		"to_version":   versionID,
		"action":       action,
		"user_id":      userID,
	}).Info("Production transition completed")

	return true, nil
}

// GetProductionModel returns the current production version, or nil when the
// model has none. Pure metadata read; no artifact load.
func (r *Registry) GetProductionModel(ctx context.Context, modelName string) (*models.ModelVersion, error) {
	if r.cache != nil {
		cached, hit, err := r.cache.GetProduction(ctx, modelName)
		if err == nil && hit {
			r.metrics.RecordCacheHit()
			return cached, nil
		}
		r.metrics.RecordCacheMiss()
	}

	record, err := r.metadata.GetProduction(ctx, modelName)
	if err != nil {
		return nil, err
	}

	if record != nil && r.cache != nil {
		if cacheErr := r.cache.SetProduction(ctx, record); cacheErr != nil {
			r.logger.WithError(cacheErr).WithField("model_name", modelName).
				Warn("Failed to populate production cache")
		}
	}

	return record, nil
}

// ListVersions returns the model's versions most-recent-first.
// limit <= 0 returns all versions.
func (r *Registry) ListVersions(ctx context.Context, modelName string, limit int) ([]*models.ModelVersion, error) {
	return r.metadata.ListVersions(ctx, modelName, limit)
}

// GetDeploymentHistory returns the model's audit entries most-recent-first.
// limit <= 0 returns all entries.
func (r *Registry) GetDeploymentHistory(ctx context.Context, modelName string, limit int) ([]*models.DeploymentRecord, error) {
	return r.metadata.GetDeploymentHistory(ctx, modelName, limit)
}

// GetStatistics aggregates counts and mean metrics across all models.
func (r *Registry) GetStatistics(ctx context.Context) (*models.RegistryStatistics, error) {
	start := r.now()
	var err error
	defer func() { r.metrics.ObserveOperation("statistics", start, err) }()

	stats, err := r.metadata.ComputeStatistics(ctx)
	if err != nil {
		return nil, err
	}

	r.metrics.SetProductionModels(stats.ProductionModels)
	return stats, nil
}

// invalidateCache drops the cached production entry after a transition.
// Failures are logged; the cache carries a TTL backstop.
func (r *Registry) invalidateCache(ctx context.Context, modelName string) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx, modelName); err != nil {
		r.logger.WithError(err).WithField("model_name", modelName).
			Warn("Failed to invalidate production cache")
	}
}
