package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/models"
)

// MetadataStoreConfig holds configuration for the PostgreSQL metadata store
type MetadataStoreConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	Database        string        `json:"database" yaml:"database"`
	Username        string        `json:"username" yaml:"username"`
	Password        string        `json:"password" yaml:"password"`
	SSLMode         string        `json:"ssl_mode" yaml:"ssl_mode"`
	ConnectTimeout  time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout    time.Duration `json:"query_timeout" yaml:"query_timeout"`
	MaxConnections  int           `json:"max_connections" yaml:"max_connections"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`
}

// MetadataStore implements interfaces.MetadataStore on PostgreSQL. The
// model_versions table carries one row per registered version; the
// deployment_records table is append-only. Status changes go through a
// single compare-and-set UPDATE, so two concurrent promotions cannot both
// believe they won.
type MetadataStore struct {
	config  *MetadataStoreConfig
	db      *sql.DB
	logger  *logrus.Logger
	mu      sync.RWMutex
	metrics *storeMetrics
	closed  bool
}

type storeMetrics struct {
	readOps    int64
	writeOps   int64
	errorCount int64
	startTime  time.Time
	mu         sync.Mutex
}

// NewMetadataStore creates a new PostgreSQL metadata store instance
func NewMetadataStore(config *MetadataStoreConfig, logger *logrus.Logger) (*MetadataStore, error) {
	if config == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "MetadataStoreConfig cannot be nil")
	}

	if config.Host == "" {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "host is required")
	}

	if config.Database == "" {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "database is required")
	}

	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.QueryTimeout == 0 {
		config.QueryTimeout = 30 * time.Second
	}
	if config.MaxConnections == 0 {
		config.MaxConnections = 10
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.ConnMaxLifetime == 0 {
		config.ConnMaxLifetime = time.Hour
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &MetadataStore{
		config: config,
		logger: logger,
		metrics: &storeMetrics{
			startTime: time.Now(),
		},
	}, nil
}

// Connect establishes the database connection and initializes the schema
func (ps *MetadataStore) Connect(ctx context.Context) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.db != nil {
		return nil // Already connected
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ps.config.Host,
		ps.config.Port,
		ps.config.Username,
		ps.config.Password,
		ps.config.Database,
		ps.config.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			"Failed to open database connection")
	}

	// Configure connection pool
	db.SetMaxOpenConns(ps.config.MaxConnections)
	db.SetMaxIdleConns(ps.config.MaxIdleConns)
	db.SetConnMaxLifetime(ps.config.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, ps.config.ConnectTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			"Failed to ping database")
	}

	ps.db = db

	if err := ps.initializeSchema(ctx); err != nil {
		db.Close()
		ps.db = nil
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeSchemaInitFailed,
			"Failed to initialize schema")
	}

	ps.logger.WithFields(logrus.Fields{
		"host":     ps.config.Host,
		"port":     ps.config.Port,
		"database": ps.config.Database,
	}).Info("Connected to PostgreSQL metadata store")

	return nil
}

// Close closes the database connection
func (ps *MetadataStore) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.closed {
		return nil
	}

	if ps.db != nil {
		err := ps.db.Close()
		ps.db = nil
		ps.closed = true

		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, "CLOSE_FAILED",
				"Failed to close database connection")
		}
	}

	ps.logger.Info("PostgreSQL metadata store closed")
	return nil
}

// Ping tests the database connection
func (ps *MetadataStore) Ping(ctx context.Context) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	pingCtx, cancel := context.WithTimeout(ctx, ps.config.QueryTimeout)
	defer cancel()

	if err := ps.db.PingContext(pingCtx); err != nil {
		ps.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeConnectionFailed,
			"Database ping failed")
	}

	return nil
}

// InsertVersion inserts a new version record
func (ps *MetadataStore) InsertVersion(ctx context.Context, record *models.ModelVersion) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		ps.incrementWriteOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Insert version completed")
	}()

	metricsJSON, err := json.Marshal(record.Metrics)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to encode metrics")
	}
	hyperJSON, err := json.Marshal(record.Hyperparameters)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to encode hyperparameters")
	}
	featuresJSON, err := json.Marshal(record.FeatureNames)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to encode feature names")
	}

	query := `
	INSERT INTO model_versions (
		version_id, model_name, model_type, created_at, deployed_at,
		metrics, dataset_version, hyperparameters, feature_names,
		n_training_samples, n_validation_samples, n_test_samples,
		training_duration, notes, created_by, status, artifact_path
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = ps.db.ExecContext(ctx, query,
		record.VersionID, record.ModelName, record.ModelType,
		record.CreatedAt, record.DeployedAt,
		metricsJSON, record.DatasetVersion, hyperJSON, featuresJSON,
		record.NTrainingSamples, record.NValidationSamples, record.NTestSamples,
		record.TrainingDuration, record.Notes, record.CreatedBy,
		string(record.Status), record.ArtifactPath,
	)
	if err != nil {
		ps.incrementErrorCount()
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.WrapError(errors.ErrDuplicateVersion, errors.ErrorTypeConflict,
				errors.CodeDuplicateVersion,
				fmt.Sprintf("version_id already exists: %s", record.VersionID))
		}
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to insert version record")
	}

	return nil
}

// GetVersion returns the record for the given key
func (ps *MetadataStore) GetVersion(ctx context.Context, modelName, versionID string) (*models.ModelVersion, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementReadOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Get version completed")
	}()

	row := ps.db.QueryRowContext(ctx, selectVersionColumns+
		" FROM model_versions WHERE model_name = $1 AND version_id = $2",
		modelName, versionID)

	record, err := ps.scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}
	if err != nil {
		ps.incrementErrorCount()
		return nil, err
	}

	return record, nil
}

// ListVersions returns records most-recent-first by created_at
func (ps *MetadataStore) ListVersions(ctx context.Context, modelName string, limit int) ([]*models.ModelVersion, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementReadOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("List versions completed")
	}()

	query := selectVersionColumns +
		" FROM model_versions WHERE model_name = $1 ORDER BY created_at DESC, version_id DESC"
	args := []interface{}{modelName}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to list versions")
	}
	defer rows.Close()

	result := make([]*models.ModelVersion, 0)
	for rows.Next() {
		record, err := ps.scanVersion(rows)
		if err != nil {
			ps.incrementErrorCount()
			return nil, err
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
			"Failed to scan rows")
	}

	return result, nil
}

// GetProduction returns the current production version, or nil when none
func (ps *MetadataStore) GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementReadOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Get production completed")
	}()

	row := ps.db.QueryRowContext(ctx, selectVersionColumns+
		" FROM model_versions WHERE model_name = $1 AND status = $2",
		modelName, string(models.StatusProduction))

	record, err := ps.scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		ps.incrementErrorCount()
		return nil, err
	}

	return record, nil
}

// SetStatusAtomic compare-and-sets the status column. The WHERE clause
// carries the expected status, so a stale caller updates zero rows and
// learns it lost without a read-modify-write window.
func (ps *MetadataStore) SetStatusAtomic(ctx context.Context, modelName, versionID string,
	expected, next models.Status) (bool, error) {

	if err := models.ValidateTransition(expected, next); err != nil {
		return false, err
	}

	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return false, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementWriteOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Set status completed")
	}()

	result, err := ps.db.ExecContext(ctx,
		"UPDATE model_versions SET status = $1 WHERE model_name = $2 AND version_id = $3 AND status = $4",
		string(next), modelName, versionID, string(expected))
	if err != nil {
		ps.incrementErrorCount()
		return false, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to update status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		ps.incrementErrorCount()
		return false, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to read rows affected")
	}

	if affected == 1 {
		return true, nil
	}

	// Zero rows: either the version does not exist or its status moved
	// under us. Distinguish so callers see not-found as an error and a
	// lost race as a clean false.
	var exists bool
	err = ps.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM model_versions WHERE model_name = $1 AND version_id = $2)",
		modelName, versionID).Scan(&exists)
	if err != nil {
		ps.incrementErrorCount()
		return false, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to check version existence")
	}

	if !exists {
		return false, errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}

	return false, nil
}

// SetDeployedAt stamps the deployed_at column
func (ps *MetadataStore) SetDeployedAt(ctx context.Context, modelName, versionID string, t time.Time) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	result, err := ps.db.ExecContext(ctx,
		"UPDATE model_versions SET deployed_at = $1 WHERE model_name = $2 AND version_id = $3",
		t, modelName, versionID)
	if err != nil {
		ps.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to set deployed_at")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		ps.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to read rows affected")
	}

	if affected == 0 {
		return errors.NewNotFoundError(errors.CodeVersionNotFound,
			fmt.Sprintf("No version %s for model %s", versionID, modelName), errors.ErrVersionNotFound)
	}

	return nil
}

// AppendDeploymentRecord appends one audit entry
func (ps *MetadataStore) AppendDeploymentRecord(ctx context.Context, record *models.DeploymentRecord) error {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	if err := record.Validate(); err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		ps.incrementWriteOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Append deployment record completed")
	}()

	id := record.ID
	if id == "" {
		id = uuid.NewString()
	}

	var fromVersion interface{}
	if record.FromVersion != "" {
		fromVersion = record.FromVersion
	}

	_, err := ps.db.ExecContext(ctx, `
	INSERT INTO deployment_records (id, model_name, from_version, to_version, action, user_id, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, record.ModelName, fromVersion, record.ToVersion,
		string(record.Action), record.UserID, record.Timestamp,
	)
	if err != nil {
		ps.incrementErrorCount()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"Failed to append deployment record")
	}

	return nil
}

// GetDeploymentHistory returns audit entries most-recent-first
func (ps *MetadataStore) GetDeploymentHistory(ctx context.Context, modelName string, limit int) ([]*models.DeploymentRecord, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementReadOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Get deployment history completed")
	}()

	query := `
	SELECT id, model_name, from_version, to_version, action, user_id, timestamp
	FROM deployment_records WHERE model_name = $1 ORDER BY timestamp DESC, id DESC`
	args := []interface{}{modelName}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := ps.db.QueryContext(ctx, query, args...)
	if err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to query deployment history")
	}
	defer rows.Close()

	result := make([]*models.DeploymentRecord, 0)
	for rows.Next() {
		var record models.DeploymentRecord
		var fromVersion sql.NullString
		var action string

		err := rows.Scan(&record.ID, &record.ModelName, &fromVersion,
			&record.ToVersion, &action, &record.UserID, &record.Timestamp)
		if err != nil {
			ps.incrementErrorCount()
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to scan deployment record")
		}

		record.FromVersion = fromVersion.String
		record.Action = models.DeploymentAction(action)
		result = append(result, &record)
	}

	if err := rows.Err(); err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
			"Failed to scan rows")
	}

	return result, nil
}

// ComputeStatistics aggregates counts and mean metrics across all models
func (ps *MetadataStore) ComputeStatistics(ctx context.Context) (*models.RegistryStatistics, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.closed || ps.db == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "Metadata store is not connected")
	}

	start := time.Now()
	defer func() {
		ps.incrementReadOps()
		ps.logger.WithField("duration", time.Since(start)).Debug("Compute statistics completed")
	}()

	stats := &models.RegistryStatistics{
		StatusCounts: make(map[models.Status]int),
		MeanMetrics:  make(map[string]float64),
	}

	err := ps.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT model_name), COUNT(*) FROM model_versions").
		Scan(&stats.TotalModels, &stats.TotalVersions)
	if err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to count versions")
	}

	rows, err := ps.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM model_versions GROUP BY status")
	if err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to count statuses")
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			ps.incrementErrorCount()
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to scan status count")
		}
		stats.StatusCounts[models.Status(status)] = count
		if models.Status(status) == models.StatusProduction {
			stats.ProductionModels = count
		}
	}
	if err := rows.Err(); err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
			"Failed to scan rows")
	}

	metricRows, err := ps.db.QueryContext(ctx, `
	SELECT m.key, AVG(m.value::double precision)
	FROM model_versions, jsonb_each_text(metrics) AS m
	GROUP BY m.key`)
	if err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeQueryFailed,
			"Failed to aggregate metrics")
	}
	defer metricRows.Close()

	for metricRows.Next() {
		var name string
		var mean float64
		if err := metricRows.Scan(&name, &mean); err != nil {
			ps.incrementErrorCount()
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to scan metric mean")
		}
		stats.MeanMetrics[name] = mean
	}
	if err := metricRows.Err(); err != nil {
		ps.incrementErrorCount()
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
			"Failed to scan rows")
	}

	return stats, nil
}

// Helper methods

const selectVersionColumns = `
	SELECT version_id, model_name, model_type, created_at, deployed_at,
		metrics, dataset_version, hyperparameters, feature_names,
		n_training_samples, n_validation_samples, n_test_samples,
		training_duration, notes, created_by, status, artifact_path`

func (ps *MetadataStore) initializeSchema(ctx context.Context) error {
	versionsSchema := `
	CREATE TABLE IF NOT EXISTS model_versions (
		version_id VARCHAR(64) PRIMARY KEY,
		model_name VARCHAR(255) NOT NULL,
		model_type VARCHAR(100) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		deployed_at TIMESTAMPTZ,
		metrics JSONB NOT NULL DEFAULT '{}',
		dataset_version VARCHAR(255) NOT NULL DEFAULT '',
		hyperparameters JSONB NOT NULL DEFAULT '{}',
		feature_names JSONB NOT NULL DEFAULT '[]',
		n_training_samples INTEGER NOT NULL DEFAULT 0,
		n_validation_samples INTEGER NOT NULL DEFAULT 0,
		n_test_samples INTEGER NOT NULL DEFAULT 0,
		training_duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_by VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(32) NOT NULL,
		artifact_path TEXT NOT NULL
	)`

	if _, err := ps.db.ExecContext(ctx, versionsSchema); err != nil {
		return fmt.Errorf("failed to create model_versions table: %w", err)
	}

	recordsSchema := `
	CREATE TABLE IF NOT EXISTS deployment_records (
		id VARCHAR(64) PRIMARY KEY,
		model_name VARCHAR(255) NOT NULL,
		from_version VARCHAR(64),
		to_version VARCHAR(64) NOT NULL,
		action VARCHAR(16) NOT NULL,
		user_id VARCHAR(255) NOT NULL DEFAULT '',
		timestamp TIMESTAMPTZ NOT NULL
	)`

	if _, err := ps.db.ExecContext(ctx, recordsSchema); err != nil {
		return fmt.Errorf("failed to create deployment_records table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_model_versions_name_created ON model_versions (model_name, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_model_versions_name_status ON model_versions (model_name, status)",
		"CREATE INDEX IF NOT EXISTS idx_deployment_records_name_ts ON deployment_records (model_name, timestamp DESC)",
	}

	for _, index := range indexes {
		if _, err := ps.db.ExecContext(ctx, index); err != nil {
			ps.logger.WithError(err).Warn("Failed to create index")
		}
	}

	return nil
}

func (ps *MetadataStore) scanVersion(scanner interface {
	Scan(dest ...interface{}) error
}) (*models.ModelVersion, error) {
	var record models.ModelVersion
	var deployedAt sql.NullTime
	var metricsJSON, hyperJSON, featuresJSON []byte
	var status string

	err := scanner.Scan(
		&record.VersionID, &record.ModelName, &record.ModelType,
		&record.CreatedAt, &deployedAt,
		&metricsJSON, &record.DatasetVersion, &hyperJSON, &featuresJSON,
		&record.NTrainingSamples, &record.NValidationSamples, &record.NTestSamples,
		&record.TrainingDuration, &record.Notes, &record.CreatedBy,
		&status, &record.ArtifactPath,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
			"Failed to scan version record")
	}

	if deployedAt.Valid {
		t := deployedAt.Time
		record.DeployedAt = &t
	}
	record.Status = models.Status(status)

	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &record.Metrics); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to decode metrics column")
		}
	}
	if len(hyperJSON) > 0 {
		if err := json.Unmarshal(hyperJSON, &record.Hyperparameters); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to decode hyperparameters column")
		}
	}
	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &record.FeatureNames); err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeScanFailed,
				"Failed to decode feature_names column")
		}
	}

	return &record, nil
}

func (ps *MetadataStore) incrementReadOps() {
	ps.metrics.mu.Lock()
	ps.metrics.readOps++
	ps.metrics.mu.Unlock()
}

func (ps *MetadataStore) incrementWriteOps() {
	ps.metrics.mu.Lock()
	ps.metrics.writeOps++
	ps.metrics.mu.Unlock()
}

func (ps *MetadataStore) incrementErrorCount() {
	ps.metrics.mu.Lock()
	ps.metrics.errorCount++
	ps.metrics.mu.Unlock()
}
