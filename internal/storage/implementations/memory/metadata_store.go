package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/models"
)

// MetadataStore implements interfaces.MetadataStore on mutex-guarded maps.
// It backs embedded single-process deployments and the test suite; the
// compare-and-set runs under the write lock, so its semantics match the
// transactional backends.
type MetadataStore struct {
	logger    *logrus.Logger
	mu        sync.RWMutex
	versions  map[string]*models.ModelVersion       // version_id -> record
	byModel   map[string][]string                   // model_name -> version_ids
	records   map[string][]*models.DeploymentRecord // model_name -> audit log
	connected bool
}

// NewMetadataStore creates a new in-memory metadata store
func NewMetadataStore(logger *logrus.Logger) *MetadataStore {
	if logger == nil {
		logger = logrus.New()
	}

	return &MetadataStore{
		logger:   logger,
		versions: make(map[string]*models.ModelVersion),
		byModel:  make(map[string][]string),
		records:  make(map[string][]*models.DeploymentRecord),
	}
}

// Connect marks the store ready
func (m *MetadataStore) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = true
	m.logger.Info("In-memory metadata store connected")
	return nil
}

// Close clears connection state; data is retained for the process lifetime
func (m *MetadataStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// Ping reports whether the store is connected
func (m *MetadataStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}
	return nil
}

// InsertVersion inserts a new version record
func (m *MetadataStore) InsertVersion(ctx context.Context, record *models.ModelVersion) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	if _, exists := m.versions[record.VersionID]; exists {
		return errors.WrapError(errors.ErrDuplicateVersion, errors.ErrorTypeConflict,
			errors.CodeDuplicateVersion, fmt.Sprintf("version_id already exists: %s", record.VersionID))
	}

	m.versions[record.VersionID] = record.Clone()
	m.byModel[record.ModelName] = append(m.byModel[record.ModelName], record.VersionID)

	return nil
}

// GetVersion returns a copy of the record for the given key
func (m *MetadataStore) GetVersion(ctx context.Context, modelName, versionID string) (*models.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	record, ok := m.versions[versionID]
	if !ok || record.ModelName != modelName {
		return nil, errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}

	return record.Clone(), nil
}

// ListVersions returns copies most-recent-first by created_at
func (m *MetadataStore) ListVersions(ctx context.Context, modelName string, limit int) ([]*models.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	ids := m.byModel[modelName]
	result := make([]*models.ModelVersion, 0, len(ids))
	for _, id := range ids {
		result = append(result, m.versions[id].Clone())
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].VersionID > result[j].VersionID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// GetProduction returns the model's production version, or nil when none
func (m *MetadataStore) GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	for _, id := range m.byModel[modelName] {
		if m.versions[id].Status == models.StatusProduction {
			return m.versions[id].Clone(), nil
		}
	}

	return nil, nil
}

// SetStatusAtomic compare-and-sets the status field under the write lock
func (m *MetadataStore) SetStatusAtomic(ctx context.Context, modelName, versionID string,
	expected, next models.Status) (bool, error) {

	if err := models.ValidateTransition(expected, next); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return false, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	record, ok := m.versions[versionID]
	if !ok || record.ModelName != modelName {
		return false, errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}

	if record.Status != expected {
		return false, nil
	}

	record.Status = next
	return true, nil
}

// SetDeployedAt stamps the deployed_at field
func (m *MetadataStore) SetDeployedAt(ctx context.Context, modelName, versionID string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	record, ok := m.versions[versionID]
	if !ok || record.ModelName != modelName {
		return errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}

	stamp := t
	record.DeployedAt = &stamp
	return nil
}

// AppendDeploymentRecord appends one immutable audit entry
func (m *MetadataStore) AppendDeploymentRecord(ctx context.Context, record *models.DeploymentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	entry := *record
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m.records[record.ModelName] = append(m.records[record.ModelName], &entry)

	return nil
}

// GetDeploymentHistory returns audit entries most-recent-first
func (m *MetadataStore) GetDeploymentHistory(ctx context.Context, modelName string, limit int) ([]*models.DeploymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	entries := m.records[modelName]
	result := make([]*models.DeploymentRecord, 0, len(entries))
	// Append order is chronological; walk backwards for most-recent-first.
	for i := len(entries) - 1; i >= 0; i-- {
		entry := *entries[i]
		result = append(result, &entry)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// ComputeStatistics aggregates counts and mean metrics across all models
func (m *MetadataStore) ComputeStatistics(ctx context.Context) (*models.RegistryStatistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	stats := &models.RegistryStatistics{
		StatusCounts: make(map[models.Status]int),
		MeanMetrics:  make(map[string]float64),
	}

	metricSums := make(map[string]float64)
	metricCounts := make(map[string]int)

	for _, ids := range m.byModel {
		if len(ids) == 0 {
			continue
		}
		stats.TotalModels++
		for _, id := range ids {
			record := m.versions[id]
			stats.TotalVersions++
			stats.StatusCounts[record.Status]++
			if record.Status == models.StatusProduction {
				stats.ProductionModels++
			}
			for metric, value := range record.Metrics {
				metricSums[metric] += value
				metricCounts[metric]++
			}
		}
	}

	for metric, sum := range metricSums {
		stats.MeanMetrics[metric] = sum / float64(metricCounts[metric])
	}

	return stats, nil
}
