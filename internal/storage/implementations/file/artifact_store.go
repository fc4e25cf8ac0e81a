package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/interfaces"
)

const (
	modelFileName    = "model.bin"
	hyperparamsFile  = "hyperparameters.json"
	featureNamesFile = "features.json"
)

// ArtifactStoreConfig contains configuration for filesystem artifact storage
type ArtifactStoreConfig struct {
	BasePath   string `json:"base_path" yaml:"base_path"`
	CreateDirs bool   `json:"create_dirs" yaml:"create_dirs"`
	SyncWrites bool   `json:"sync_writes" yaml:"sync_writes"`
}

// ArtifactStore implements interfaces.ArtifactStore on the local filesystem.
// Each version gets one directory: basePath/modelName/versionID containing
// the serialized model and its side files.
type ArtifactStore struct {
	config     *ArtifactStoreConfig
	serializer interfaces.ModelSerializer
	logger     *logrus.Logger
	mu         sync.RWMutex
	connected  bool
}

// NewArtifactStore creates a new filesystem artifact store
func NewArtifactStore(config *ArtifactStoreConfig, serializer interfaces.ModelSerializer, logger *logrus.Logger) (*ArtifactStore, error) {
	if config == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "ArtifactStoreConfig cannot be nil")
	}

	if config.BasePath == "" {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "BasePath is required")
	}

	if serializer == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidConfig, "ModelSerializer cannot be nil")
	}

	if logger == nil {
		logger = logrus.New()
	}

	return &ArtifactStore{
		config:     config,
		serializer: serializer,
		logger:     logger,
	}, nil
}

// Connect verifies the base path exists and is writable
func (fs *ArtifactStore) Connect(ctx context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.connected {
		return nil
	}

	if fs.config.CreateDirs {
		if err := os.MkdirAll(fs.config.BasePath, 0755); err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, "DIRECTORY_CREATION_FAILED",
				fmt.Sprintf("Failed to create directory: %s", fs.config.BasePath))
		}
	}

	if _, err := os.Stat(fs.config.BasePath); os.IsNotExist(err) {
		return errors.NewStorageError("PATH_NOT_FOUND",
			fmt.Sprintf("Base path does not exist: %s", fs.config.BasePath))
	}

	// Test write permissions
	testFile := filepath.Join(fs.config.BasePath, ".write_test")
	if file, err := os.Create(testFile); err != nil {
		return errors.NewStorageError("PERMISSION_DENIED",
			fmt.Sprintf("Cannot write to directory: %s", fs.config.BasePath))
	} else {
		file.Close()
		os.Remove(testFile)
	}

	fs.connected = true
	fs.logger.WithField("base_path", fs.config.BasePath).Info("File artifact store connected")

	return nil
}

// Close marks the store disconnected
func (fs *ArtifactStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.connected = false
	fs.logger.Info("File artifact store disconnected")
	return nil
}

// Ping verifies the base path is still accessible
func (fs *ArtifactStore) Ping(ctx context.Context) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "File artifact store is not connected")
	}

	if _, err := os.Stat(fs.config.BasePath); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "HEALTH_CHECK_FAILED",
			"Base path is not accessible")
	}

	return nil
}

// Save serializes the model and side files into the version directory and
// returns its path as the artifact handle
func (fs *ArtifactStore) Save(ctx context.Context, modelName, versionID string, model interface{},
	hyperparameters map[string]interface{}, featureNames []string) (string, error) {

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return "", errors.NewStorageError(errors.CodeNotConnected, "File artifact store is not connected")
	}

	blob, err := fs.serializer.Serialize(model)
	if err != nil {
		return "", errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "model serialization failed: "+err.Error())
	}

	dir := filepath.Join(fs.config.BasePath, modelName, versionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fs.writeError(err, dir, "Failed to create artifact directory")
	}

	if err := fs.writeFile(filepath.Join(dir, modelFileName), blob); err != nil {
		fs.cleanupDir(dir)
		return "", err
	}

	hyperJSON, err := json.MarshalIndent(hyperparameters, "", "  ")
	if err != nil {
		fs.cleanupDir(dir)
		return "", fs.writeError(err, dir, "Failed to encode hyperparameters")
	}
	if err := fs.writeFile(filepath.Join(dir, hyperparamsFile), hyperJSON); err != nil {
		fs.cleanupDir(dir)
		return "", err
	}

	if featureNames == nil {
		featureNames = []string{}
	}
	featJSON, err := json.MarshalIndent(featureNames, "", "  ")
	if err != nil {
		fs.cleanupDir(dir)
		return "", fs.writeError(err, dir, "Failed to encode feature names")
	}
	if err := fs.writeFile(filepath.Join(dir, featureNamesFile), featJSON); err != nil {
		fs.cleanupDir(dir)
		return "", err
	}

	fs.logger.WithFields(logrus.Fields{
		"model_name": modelName,
		"version_id": versionID,
		"path":       dir,
		"size_bytes": len(blob),
	}).Debug("Artifact saved")

	return dir, nil
}

// Load retrieves the model and side files from the artifact directory
func (fs *ArtifactStore) Load(ctx context.Context, artifactPath string) (*interfaces.Artifact, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "File artifact store is not connected")
	}

	if _, err := os.Stat(artifactPath); os.IsNotExist(err) {
		return nil, errors.NewNotFoundError(errors.CodeArtifactNotFound,
			fmt.Sprintf("No artifact at path: %s", artifactPath), errors.ErrArtifactNotFound)
	}

	blob, err := os.ReadFile(filepath.Join(artifactPath, modelFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(errors.CodeArtifactNotFound,
				fmt.Sprintf("Model file missing under: %s", artifactPath), errors.ErrArtifactNotFound)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"Failed to read model file")
	}

	model, err := fs.serializer.Deserialize(blob)
	if err != nil {
		return nil, err
	}

	hyperparameters, err := fs.readJSONMap(filepath.Join(artifactPath, hyperparamsFile))
	if err != nil {
		return nil, err
	}

	featureNames, err := fs.readFeatureNames(filepath.Join(artifactPath, featureNamesFile))
	if err != nil {
		return nil, err
	}

	return &interfaces.Artifact{
		Model:           model,
		Hyperparameters: hyperparameters,
		FeatureNames:    featureNames,
	}, nil
}

// Delete removes the artifact directory. Best-effort compensation only.
func (fs *ArtifactStore) Delete(ctx context.Context, artifactPath string) error {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if !fs.connected {
		return errors.NewStorageError(errors.CodeNotConnected, "File artifact store is not connected")
	}

	if err := os.RemoveAll(artifactPath); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED",
			fmt.Sprintf("Failed to delete artifact: %s", artifactPath))
	}

	fs.logger.WithField("path", artifactPath).Info("Artifact deleted")
	return nil
}

// Helper methods

func (fs *ArtifactStore) writeFile(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fs.writeError(err, path, "Failed to open file")
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return fs.writeError(err, path, "Failed to write file")
	}

	if fs.config.SyncWrites {
		if err := file.Sync(); err != nil {
			return fs.writeError(err, path, "Failed to sync file")
		}
	}

	return nil
}

func (fs *ArtifactStore) writeError(err error, path, message string) error {
	wrapped := errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
		errors.CodeArtifactWrite, fmt.Sprintf("%s: %s (%v)", message, path, err))
	return wrapped
}

// cleanupDir removes a partially written artifact directory so a failed save
// never leaves a directory that looks like a complete artifact.
func (fs *ArtifactStore) cleanupDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		fs.logger.WithError(err).WithField("path", dir).Warn("Failed to clean up partial artifact")
	}
}

func (fs *ArtifactStore) readJSONMap(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(errors.CodeArtifactNotFound,
				fmt.Sprintf("Side file missing: %s", path), errors.ErrArtifactNotFound)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"Failed to read side file")
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, fmt.Sprintf("Corrupt side file %s: %v", path, err))
	}
	return out, nil
}

func (fs *ArtifactStore) readFeatureNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(errors.CodeArtifactNotFound,
				fmt.Sprintf("Side file missing: %s", path), errors.ErrArtifactNotFound)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"Failed to read side file")
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, fmt.Sprintf("Corrupt side file %s: %v", path, err))
	}
	return out, nil
}
