package registry

import (
	"context"
	"encoding/gob"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/modelregistry/internal/serializer"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/file"
	"github.com/vitalsight/modelregistry/internal/storage/implementations/memory"
	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/interfaces"
	"github.com/vitalsight/modelregistry/pkg/models"
)

type stubModel struct {
	Coefficients []float64
	Bias         float64
}

func init() {
	gob.Register(stubModel{})
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	ctx := context.Background()

	artifacts, err := file.NewArtifactStore(&file.ArtifactStoreConfig{
		BasePath:   t.TempDir(),
		CreateDirs: true,
	}, serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)
	require.NoError(t, artifacts.Connect(ctx))
	t.Cleanup(func() { artifacts.Close() })

	metadata := memory.NewMetadataStore(logrus.New())
	require.NoError(t, metadata.Connect(ctx))
	t.Cleanup(func() { metadata.Close() })

	reg, err := New(artifacts, metadata, nil, nil, nil, logrus.New())
	require.NoError(t, err)

	return reg
}

func registerVersion(t *testing.T, reg *Registry, modelName string, rocAUC float64) string {
	t.Helper()

	id, err := reg.Register(context.Background(), &models.RegisterRequest{
		Model:           stubModel{Coefficients: []float64{0.1, 0.2}, Bias: -0.5},
		ModelName:       modelName,
		ModelType:       "xgboost",
		Metrics:         map[string]float64{"roc_auc": rocAUC},
		DatasetVersion:  "ds-2025-01",
		Hyperparameters: map[string]interface{}{"max_depth": float64(6)},
		FeatureNames:    []string{"age", "bmi", "resting_hr"},
		UserID:          "alice",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	return id
}

func TestNewValidation(t *testing.T) {
	metadata := memory.NewMetadataStore(logrus.New())

	_, err := New(nil, metadata, nil, nil, nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ArtifactStore cannot be nil")

	artifacts, err := file.NewArtifactStore(&file.ArtifactStoreConfig{BasePath: t.TempDir()},
		serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)

	_, err = New(artifacts, nil, nil, nil, nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MetadataStore cannot be nil")
}

func TestRegisterValidation(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Register(ctx, &models.RegisterRequest{
		Metrics:         map[string]float64{},
		Hyperparameters: map[string]interface{}{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidModelName)

	_, err = reg.Register(ctx, &models.RegisterRequest{
		ModelName:       "risk_classifier",
		Hyperparameters: map[string]interface{}{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNilMetrics)

	_, err = reg.Register(ctx, &models.RegisterRequest{
		ModelName: "risk_classifier",
		Metrics:   map[string]float64{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNilHyperparameters)
}

func TestRegisterAndLoadRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	model := stubModel{Coefficients: []float64{0.3, 0.7}, Bias: 1.5}
	id, err := reg.Register(ctx, &models.RegisterRequest{
		Model:            model,
		ModelName:        "risk_classifier",
		ModelType:        "logistic_regression",
		Metrics:          map[string]float64{"roc_auc": 0.88, "f1": 0.81},
		DatasetVersion:   "ds-2025-02",
		Hyperparameters:  map[string]interface{}{"C": 1.0},
		FeatureNames:     []string{"age", "bmi"},
		NTrainingSamples: 10000,
		Notes:            "baseline",
		UserID:           "alice",
	})
	require.NoError(t, err)

	loaded, err := reg.LoadModel(ctx, "risk_classifier", id)
	require.NoError(t, err)
	assert.Equal(t, model, loaded.Model)
	assert.Equal(t, id, loaded.Version.VersionID)
	assert.Equal(t, models.StatusRegistered, loaded.Version.Status)
	assert.Equal(t, map[string]float64{"roc_auc": 0.88, "f1": 0.81}, loaded.Version.Metrics)
	assert.Equal(t, []string{"age", "bmi"}, loaded.FeatureNames)
	assert.Equal(t, 1.0, loaded.Hyperparameters["C"])
	assert.Equal(t, "alice", loaded.Version.CreatedBy)
	assert.Nil(t, loaded.Version.DeployedAt)
}

func TestLoadModelUnknownVersion(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.LoadModel(context.Background(), "risk_classifier", "v19990101000000_00000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrVersionNotFound)
}

func TestLoadModelNoProduction(t *testing.T) {
	reg := newTestRegistry(t)
	registerVersion(t, reg, "risk_classifier", 0.9)

	_, err := reg.LoadModel(context.Background(), "risk_classifier", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoProductionModel)
}

func TestLoadModelResolvesProduction(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	idA := registerVersion(t, reg, "risk_classifier", 0.80)
	idB := registerVersion(t, reg, "risk_classifier", 0.90)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", idB, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	loaded, err := reg.LoadModel(ctx, "risk_classifier", "")
	require.NoError(t, err)
	assert.Equal(t, idB, loaded.Version.VersionID)
	assert.NotEqual(t, idA, loaded.Version.VersionID)
}

// Mirrors the canonical two-version lifecycle: A promoted, then B promoted
// over it.
func TestPromoteSequence(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	idA := registerVersion(t, reg, "risk_classifier", 0.80)
	idB := registerVersion(t, reg, "risk_classifier", 0.90)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", idA, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reg.PromoteToProduction(ctx, "risk_classifier", idB, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	versions, err := reg.ListVersions(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	statuses := map[string]models.Status{}
	for _, v := range versions {
		statuses[v.VersionID] = v.Status
	}
	assert.Equal(t, models.StatusArchived, statuses[idA])
	assert.Equal(t, models.StatusProduction, statuses[idB])

	prod, err := reg.GetProductionModel(ctx, "risk_classifier")
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.Equal(t, idB, prod.VersionID)
	require.NotNil(t, prod.DeployedAt)

	history, err := reg.GetDeploymentHistory(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, idB, history[0].ToVersion)
	assert.Equal(t, idA, history[0].FromVersion)
	assert.Equal(t, models.ActionPromote, history[0].Action)
	assert.Equal(t, idA, history[1].ToVersion)
	assert.Empty(t, history[1].FromVersion, "first promotion has no prior production")
}

func TestPromoteIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	id := registerVersion(t, reg, "risk_classifier", 0.85)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// Promoting the production version again is a no-op
	ok, err = reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := reg.GetDeploymentHistory(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "no-op promotion appends no audit entry")
}

func TestPromoteUnknownVersion(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.PromoteToProduction(context.Background(), "risk_classifier",
		"v19990101000000_00000000", "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrVersionNotFound)
}

func TestRollbackSequence(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	idA := registerVersion(t, reg, "risk_classifier", 0.80)
	idB := registerVersion(t, reg, "risk_classifier", 0.90)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", idA, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = reg.PromoteToProduction(ctx, "risk_classifier", idB, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	// Incident response: bring archived A back
	ok, err = reg.RollbackToVersion(ctx, "risk_classifier", idA, "oncall")
	require.NoError(t, err)
	assert.True(t, ok)

	prod, err := reg.GetProductionModel(ctx, "risk_classifier")
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.Equal(t, idA, prod.VersionID)

	versions, err := reg.ListVersions(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	productionCount := 0
	for _, v := range versions {
		if v.Status == models.StatusProduction {
			productionCount++
		}
		// Immutable metadata survives the transitions untouched
		assert.NotEmpty(t, v.Metrics)
	}
	assert.Equal(t, 1, productionCount, "at most one production version per model")

	history, err := reg.GetDeploymentHistory(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.ActionRollback, history[0].Action)
	assert.Equal(t, idB, history[0].FromVersion)
	assert.Equal(t, idA, history[0].ToVersion)
	assert.Equal(t, "oncall", history[0].UserID)
}

func TestRollbackToCurrentProduction(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	id := registerVersion(t, reg, "risk_classifier", 0.85)
	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = reg.RollbackToVersion(ctx, "risk_classifier", id, "oncall")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidRollbackTarget)
}

func TestPromoteFirstVersionNoPriorProduction(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	id := registerVersion(t, reg, "risk_classifier", 0.85)

	// Base case: nothing to demote, only the promotion half runs
	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := reg.GetDeploymentHistory(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Empty(t, history[0].FromVersion)
}

func TestCompareVersions(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	idLow := registerVersion(t, reg, "risk_classifier", 0.80)
	idHigh := registerVersion(t, reg, "risk_classifier", 0.92)

	// A version without the compared metric sorts last
	idNoMetric, err := reg.Register(ctx, &models.RegisterRequest{
		Model:           stubModel{},
		ModelName:       "risk_classifier",
		Metrics:         map[string]float64{"f1": 0.7},
		Hyperparameters: map[string]interface{}{},
	})
	require.NoError(t, err)

	comparisons, err := reg.CompareVersions(ctx, "risk_classifier", nil, "")
	require.NoError(t, err)
	require.Len(t, comparisons, 3)

	assert.Equal(t, idHigh, comparisons[0].VersionID)
	assert.Equal(t, 0.92, comparisons[0].MetricValue)
	assert.True(t, comparisons[0].HasMetric)
	assert.Equal(t, "roc_auc", comparisons[0].MetricName)

	assert.Equal(t, idLow, comparisons[1].VersionID)

	assert.Equal(t, idNoMetric, comparisons[2].VersionID)
	assert.False(t, comparisons[2].HasMetric)

	// Explicit subset and metric
	subset, err := reg.CompareVersions(ctx, "risk_classifier", []string{idLow, idNoMetric}, "f1")
	require.NoError(t, err)
	require.Len(t, subset, 2)
	assert.Equal(t, idNoMetric, subset[0].VersionID)
	assert.True(t, subset[0].HasMetric)
	assert.Equal(t, idLow, subset[1].VersionID)
	assert.False(t, subset[1].HasMetric)

	// Unknown id in an explicit list surfaces not-found
	_, err = reg.CompareVersions(ctx, "risk_classifier", []string{"v19990101000000_00000000"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrVersionNotFound)
}

func TestGetProductionModelNone(t *testing.T) {
	reg := newTestRegistry(t)

	prod, err := reg.GetProductionModel(context.Background(), "risk_classifier")
	require.NoError(t, err)
	assert.Nil(t, prod)
}

func TestGetStatistics(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	registerVersion(t, reg, "risk_classifier", 0.80)
	id := registerVersion(t, reg, "risk_classifier", 0.90)
	registerVersion(t, reg, "readmission_model", 0.70)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	stats, err := reg.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalModels)
	assert.Equal(t, 3, stats.TotalVersions)
	assert.Equal(t, 1, stats.ProductionModels)
	assert.Equal(t, 2, stats.StatusCounts[models.StatusRegistered])
	assert.Equal(t, 1, stats.StatusCounts[models.StatusProduction])
	assert.InDelta(t, 0.80, stats.MeanMetrics["roc_auc"], 1e-9)
}

// failingInserts wraps a metadata store and fails every insert, for
// exercising the registration compensation path.
type failingInserts struct {
	interfaces.MetadataStore
	err error
}

func (f *failingInserts) InsertVersion(ctx context.Context, record *models.ModelVersion) error {
	return f.err
}

func TestRegisterCompensatesFailedInsert(t *testing.T) {
	ctx := context.Background()
	basePath := t.TempDir()

	artifacts, err := file.NewArtifactStore(&file.ArtifactStoreConfig{
		BasePath:   basePath,
		CreateDirs: true,
	}, serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)
	require.NoError(t, artifacts.Connect(ctx))

	metadata := memory.NewMetadataStore(logrus.New())
	require.NoError(t, metadata.Connect(ctx))

	insertErr := errors.NewStorageError(errors.CodeWriteFailed, "insert failed")
	reg, err := New(artifacts, &failingInserts{MetadataStore: metadata, err: insertErr},
		nil, nil, nil, logrus.New())
	require.NoError(t, err)

	_, err = reg.Register(ctx, &models.RegisterRequest{
		Model:           stubModel{},
		ModelName:       "risk_classifier",
		Metrics:         map[string]float64{"roc_auc": 0.9},
		Hyperparameters: map[string]interface{}{},
	})
	require.Error(t, err)

	// The partially written artifact was compensated away
	versions, err := metadata.ListVersions(ctx, "risk_classifier", 0)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.NoDirExists(t, basePath+"/risk_classifier")
}

// fakeCache records interactions so cache wiring can be asserted without
// Redis.
type fakeCache struct {
	entries     map[string]*models.ModelVersion
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.ModelVersion)}
}

func (c *fakeCache) GetProduction(ctx context.Context, modelName string) (*models.ModelVersion, bool, error) {
	v, ok := c.entries[modelName]
	return v, ok, nil
}

func (c *fakeCache) SetProduction(ctx context.Context, version *models.ModelVersion) error {
	c.entries[version.ModelName] = version
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, modelName string) error {
	delete(c.entries, modelName)
	c.invalidated = append(c.invalidated, modelName)
	return nil
}

func (c *fakeCache) Close() error { return nil }

func TestProductionCacheWiring(t *testing.T) {
	ctx := context.Background()

	artifacts, err := file.NewArtifactStore(&file.ArtifactStoreConfig{
		BasePath:   t.TempDir(),
		CreateDirs: true,
	}, serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)
	require.NoError(t, artifacts.Connect(ctx))

	metadata := memory.NewMetadataStore(logrus.New())
	require.NoError(t, metadata.Connect(ctx))

	cache := newFakeCache()
	reg, err := New(artifacts, metadata, cache, nil, nil, logrus.New())
	require.NoError(t, err)

	id, err := reg.Register(ctx, &models.RegisterRequest{
		Model:           stubModel{},
		ModelName:       "risk_classifier",
		Metrics:         map[string]float64{"roc_auc": 0.9},
		Hyperparameters: map[string]interface{}{},
	})
	require.NoError(t, err)

	ok, err := reg.PromoteToProduction(ctx, "risk_classifier", id, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, cache.invalidated, "risk_classifier",
		"transition invalidates the cached production entry")

	// First read populates the cache, second read hits it
	prod, err := reg.GetProductionModel(ctx, "risk_classifier")
	require.NoError(t, err)
	require.NotNil(t, prod)
	assert.Contains(t, cache.entries, "risk_classifier")

	cached, err := reg.GetProductionModel(ctx, "risk_classifier")
	require.NoError(t, err)
	assert.Equal(t, prod.VersionID, cached.VersionID)
}
