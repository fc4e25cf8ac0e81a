package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/models"
)

func TestNewMetadataStore(t *testing.T) {
	config := &MetadataStoreConfig{
		Host:     "localhost",
		Database: "modelregistry",
		Username: "registry",
	}

	store, err := NewMetadataStore(config, logrus.New())
	require.NoError(t, err)
	require.NotNil(t, store)

	// Defaults are applied on construction
	assert.Equal(t, 5432, store.config.Port)
	assert.Equal(t, "disable", store.config.SSLMode)
	assert.Equal(t, 10, store.config.MaxConnections)
	assert.Equal(t, 30*time.Second, store.config.QueryTimeout)
}

func TestNewMetadataStoreInvalidConfig(t *testing.T) {
	_, err := NewMetadataStore(nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")

	_, err = NewMetadataStore(&MetadataStoreConfig{Database: "db"}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")

	_, err = NewMetadataStore(&MetadataStoreConfig{Host: "localhost"}, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is required")
}

func TestMetadataStoreRequiresConnect(t *testing.T) {
	store, err := NewMetadataStore(&MetadataStoreConfig{
		Host:     "localhost",
		Database: "modelregistry",
	}, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()

	require.Error(t, store.Ping(ctx))

	_, err = store.GetVersion(ctx, "risk_classifier", "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	_, err = store.SetStatusAtomic(ctx, "risk_classifier", "v1",
		models.StatusRegistered, models.StatusProduction)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestSetStatusAtomicRejectsInvalidTransition(t *testing.T) {
	store, err := NewMetadataStore(&MetadataStoreConfig{
		Host:     "localhost",
		Database: "modelregistry",
	}, logrus.New())
	require.NoError(t, err)

	// Transition validation runs before any database access
	_, err = store.SetStatusAtomic(context.Background(), "risk_classifier", "v1",
		models.StatusProduction, models.StatusRegistered)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidTransition)
}

// Integration test - requires a running PostgreSQL instance.
func TestMetadataStoreIntegration(t *testing.T) {
	t.Skip("Integration test - requires running PostgreSQL instance")

	config := &MetadataStoreConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "modelregistry_test",
		Username: "registry",
		Password: "registry",
	}

	store, err := NewMetadataStore(config, logrus.New())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Connect(ctx))
	defer store.Close()

	record := &models.ModelVersion{
		VersionID:       "v20250101000000_cafe0001",
		ModelName:       "risk_classifier",
		ModelType:       "xgboost",
		CreatedAt:       time.Now().UTC(),
		Metrics:         map[string]float64{"roc_auc": 0.91},
		DatasetVersion:  "ds-2025-01",
		Hyperparameters: map[string]interface{}{"max_depth": float64(6)},
		FeatureNames:    []string{"age", "bmi"},
		Status:          models.StatusRegistered,
		ArtifactPath:    "/artifacts/risk_classifier/v20250101000000_cafe0001",
	}
	require.NoError(t, store.InsertVersion(ctx, record))

	// Duplicate insert maps the unique violation
	err = store.InsertVersion(ctx, record)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrDuplicateVersion)

	got, err := store.GetVersion(ctx, "risk_classifier", record.VersionID)
	require.NoError(t, err)
	assert.Equal(t, record.Metrics, got.Metrics)
	assert.Equal(t, record.FeatureNames, got.FeatureNames)

	ok, err := store.SetStatusAtomic(ctx, "risk_classifier", record.VersionID,
		models.StatusRegistered, models.StatusProduction)
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale CAS loses cleanly
	ok, err = store.SetStatusAtomic(ctx, "risk_classifier", record.VersionID,
		models.StatusRegistered, models.StatusProduction)
	require.NoError(t, err)
	assert.False(t, ok)

	prod, err := store.GetProduction(ctx, "risk_classifier")
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.Equal(t, record.VersionID, prod.VersionID)

	require.NoError(t, store.AppendDeploymentRecord(ctx, &models.DeploymentRecord{
		ModelName: "risk_classifier",
		ToVersion: record.VersionID,
		Action:    models.ActionPromote,
		UserID:    "alice",
		Timestamp: time.Now().UTC(),
	}))

	history, err := store.GetDeploymentHistory(ctx, "risk_classifier", 10)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, models.ActionPromote, history[0].Action)
}
