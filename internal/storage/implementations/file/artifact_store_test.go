package file

import (
	"context"
	"encoding/gob"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/modelregistry/internal/serializer"
	"github.com/vitalsight/modelregistry/pkg/errors"
)

type stubModel struct {
	Coefficients []float64
	Bias         float64
}

func init() {
	gob.Register(stubModel{})
}

func newTestStore(t *testing.T) *ArtifactStore {
	t.Helper()

	config := &ArtifactStoreConfig{
		BasePath:   t.TempDir(),
		CreateDirs: true,
	}

	store, err := NewArtifactStore(config, serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)
	require.NoError(t, store.Connect(context.Background()))
	t.Cleanup(func() { store.Close() })

	return store
}

func TestNewArtifactStoreInvalidConfig(t *testing.T) {
	_, err := NewArtifactStore(nil, serializer.NewGobSerializer(), logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")

	_, err = NewArtifactStore(&ArtifactStoreConfig{}, serializer.NewGobSerializer(), logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BasePath is required")

	_, err = NewArtifactStore(&ArtifactStoreConfig{BasePath: "/tmp/x"}, nil, logrus.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ModelSerializer cannot be nil")
}

func TestArtifactStoreRequiresConnect(t *testing.T) {
	config := &ArtifactStoreConfig{BasePath: t.TempDir()}
	store, err := NewArtifactStore(config, serializer.NewGobSerializer(), logrus.New())
	require.NoError(t, err)

	_, err = store.Save(context.Background(), "risk_classifier", "v1", stubModel{}, map[string]interface{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestArtifactStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	model := stubModel{Coefficients: []float64{0.1, 0.2}, Bias: -0.5}
	hyper := map[string]interface{}{"max_depth": float64(6), "eta": 0.3}
	features := []string{"age", "bmi", "resting_hr"}

	path, err := store.Save(ctx, "risk_classifier", "v20250101000000_deadbeef", model, hyper, features)
	require.NoError(t, err)
	assert.DirExists(t, path)
	assert.FileExists(t, filepath.Join(path, "model.bin"))
	assert.FileExists(t, filepath.Join(path, "hyperparameters.json"))
	assert.FileExists(t, filepath.Join(path, "features.json"))

	artifact, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, model, artifact.Model)
	assert.Equal(t, hyper, artifact.Hyperparameters)
	assert.Equal(t, features, artifact.FeatureNames)
}

func TestArtifactStoreSaveNilFeatureNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "risk_classifier", "v1", stubModel{}, map[string]interface{}{}, nil)
	require.NoError(t, err)

	artifact, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, artifact.FeatureNames)
}

func TestArtifactStoreLoadMissingPath(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background(), filepath.Join(store.config.BasePath, "nope", "v0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestArtifactStoreLoadCorruptModel(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "risk_classifier", "v1", stubModel{}, map[string]interface{}{}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(path, "model.bin"), []byte("garbage"), 0644))

	_, err = store.Load(ctx, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactCorrupt)
}

func TestArtifactStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path, err := store.Save(ctx, "risk_classifier", "v1", stubModel{}, map[string]interface{}{}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, path))
	assert.NoDirExists(t, path)

	// Deleting an already-removed path is not an error
	require.NoError(t, store.Delete(ctx, path))
}

func TestArtifactStoreSaveCleansUpOnSerializeFailure(t *testing.T) {
	config := &ArtifactStoreConfig{BasePath: t.TempDir(), CreateDirs: true}
	store, err := NewArtifactStore(config, serializer.NewRawSerializer(), logrus.New())
	require.NoError(t, err)
	require.NoError(t, store.Connect(context.Background()))

	// Raw serializer rejects non-[]byte models before any file is written
	_, err = store.Save(context.Background(), "risk_classifier", "v1", stubModel{}, map[string]interface{}{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactWrite)
	assert.NoDirExists(t, filepath.Join(config.BasePath, "risk_classifier", "v1"))
}
