package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"

	"github.com/vitalsight/modelregistry/pkg/errors"
	"github.com/vitalsight/modelregistry/pkg/interfaces"
)

const (
	modelObjectName    = "model.bin"
	hyperparamsObject  = "hyperparameters.json"
	featureNamesObject = "features.json"
)

// ArtifactStoreConfig holds configuration for S3 artifact storage
type ArtifactStoreConfig struct {
	Region          string        `json:"region" yaml:"region"`
	Bucket          string        `json:"bucket" yaml:"bucket"`
	AccessKeyID     string        `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string        `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string        `json:"session_token,omitempty" yaml:"session_token,omitempty"`
	Endpoint        string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ForcePathStyle  bool          `json:"force_path_style" yaml:"force_path_style"`
	DisableSSL      bool          `json:"disable_ssl" yaml:"disable_ssl"`
	Prefix          string        `json:"prefix" yaml:"prefix"`
	Timeout         time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries      int           `json:"max_retries" yaml:"max_retries"`
	StorageClass    string        `json:"storage_class" yaml:"storage_class"`
}

// ArtifactStore implements interfaces.ArtifactStore on AWS S3 (or any
// S3-compatible object store). The artifact path handle is the object key
// prefix of the version: {prefix}/{modelName}/{versionID}.
type ArtifactStore struct {
	config     *ArtifactStoreConfig
	serializer interfaces.ModelSerializer
	s3Client   *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     *logrus.Logger
	mu         sync.RWMutex
	closed     bool
}

// NewArtifactStore creates a new S3 artifact store instance
func NewArtifactStore(config *ArtifactStoreConfig, serializer interfaces.ModelSerializer, logger *logrus.Logger) (*ArtifactStore, error) {
	if config == nil {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "S3 config cannot be nil")
	}

	if config.Bucket == "" {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "S3 bucket is required")
	}

	if serializer == nil {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "ModelSerializer cannot be nil")
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Prefix == "" {
		config.Prefix = "artifacts"
	}

	return &ArtifactStore{
		config:     config,
		serializer: serializer,
		logger:     logger,
	}, nil
}

// Connect establishes the S3 session and verifies bucket access
func (s *ArtifactStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.s3Client != nil {
		return nil // Already connected
	}

	awsConfig := &aws.Config{
		Region:     aws.String(s.config.Region),
		MaxRetries: aws.Int(s.config.MaxRetries),
	}

	if s.config.AccessKeyID != "" && s.config.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(
			s.config.AccessKeyID,
			s.config.SecretAccessKey,
			s.config.SessionToken,
		)
	}

	// Custom endpoint for S3-compatible services
	if s.config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(s.config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(s.config.ForcePathStyle)
	}

	if s.config.DisableSSL {
		awsConfig.DisableSSL = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "SESSION_FAILED", "Failed to create AWS session")
	}

	s.s3Client = s3.New(sess)
	s.uploader = s3manager.NewUploader(sess)
	s.downloader = s3manager.NewDownloader(sess)

	_, err = s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "BUCKET_ACCESS_FAILED",
			fmt.Sprintf("Failed to access bucket '%s'", s.config.Bucket))
	}

	s.logger.WithFields(logrus.Fields{
		"region": s.config.Region,
		"bucket": s.config.Bucket,
		"prefix": s.config.Prefix,
	}).Info("Connected to S3 artifact store")

	return nil
}

// Close releases the S3 session
func (s *ArtifactStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.s3Client = nil
	s.uploader = nil
	s.downloader = nil
	s.closed = true

	s.logger.Info("S3 artifact store closed")
	return nil
}

// Ping tests the S3 connection
func (s *ArtifactStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "S3 artifact store not connected")
	}

	_, err := s.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "PING_FAILED", "S3 ping failed")
	}

	return nil
}

// Save uploads the serialized model and side files under the version key prefix
func (s *ArtifactStore) Save(ctx context.Context, modelName, versionID string, model interface{},
	hyperparameters map[string]interface{}, featureNames []string) (string, error) {

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.uploader == nil {
		return "", errors.NewStorageError(errors.CodeNotConnected, "S3 artifact store not connected")
	}

	blob, err := s.serializer.Serialize(model)
	if err != nil {
		return "", errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "model serialization failed: "+err.Error())
	}

	artifactPath := path.Join(s.config.Prefix, modelName, versionID)

	if err := s.putObject(ctx, path.Join(artifactPath, modelObjectName), blob, "application/octet-stream"); err != nil {
		s.compensate(ctx, artifactPath)
		return "", err
	}

	hyperJSON, err := json.Marshal(hyperparameters)
	if err != nil {
		s.compensate(ctx, artifactPath)
		return "", errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "hyperparameter encoding failed: "+err.Error())
	}
	if err := s.putObject(ctx, path.Join(artifactPath, hyperparamsObject), hyperJSON, "application/json"); err != nil {
		s.compensate(ctx, artifactPath)
		return "", err
	}

	if featureNames == nil {
		featureNames = []string{}
	}
	featJSON, err := json.Marshal(featureNames)
	if err != nil {
		s.compensate(ctx, artifactPath)
		return "", errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "feature list encoding failed: "+err.Error())
	}
	if err := s.putObject(ctx, path.Join(artifactPath, featureNamesObject), featJSON, "application/json"); err != nil {
		s.compensate(ctx, artifactPath)
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"model_name": modelName,
		"version_id": versionID,
		"key_prefix": artifactPath,
		"size_bytes": len(blob),
	}).Debug("Artifact uploaded")

	return artifactPath, nil
}

// Load downloads and deserializes the artifact at the given key prefix
func (s *ArtifactStore) Load(ctx context.Context, artifactPath string) (*interfaces.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return nil, errors.NewStorageError(errors.CodeNotConnected, "S3 artifact store not connected")
	}

	blob, err := s.getObject(ctx, path.Join(artifactPath, modelObjectName))
	if err != nil {
		return nil, err
	}

	model, err := s.serializer.Deserialize(blob)
	if err != nil {
		return nil, err
	}

	hyperJSON, err := s.getObject(ctx, path.Join(artifactPath, hyperparamsObject))
	if err != nil {
		return nil, err
	}
	var hyperparameters map[string]interface{}
	if err := json.Unmarshal(hyperJSON, &hyperparameters); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, "corrupt hyperparameters object: "+err.Error())
	}

	featJSON, err := s.getObject(ctx, path.Join(artifactPath, featureNamesObject))
	if err != nil {
		return nil, err
	}
	var featureNames []string
	if err := json.Unmarshal(featJSON, &featureNames); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, "corrupt feature list object: "+err.Error())
	}

	return &interfaces.Artifact{
		Model:           model,
		Hyperparameters: hyperparameters,
		FeatureNames:    featureNames,
	}, nil
}

// Delete removes all objects under the version key prefix
func (s *ArtifactStore) Delete(ctx context.Context, artifactPath string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed || s.s3Client == nil {
		return errors.NewStorageError(errors.CodeNotConnected, "S3 artifact store not connected")
	}

	return s.deleteAll(ctx, artifactPath)
}

// Helper methods

func (s *ArtifactStore) putObject(ctx context.Context, key string, data []byte, contentType string) error {
	input := &s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if s.config.StorageClass != "" {
		input.StorageClass = aws.String(s.config.StorageClass)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return errors.WrapError(errors.ErrArtifactWrite, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, fmt.Sprintf("Failed to upload %s: %v", key, err))
	}

	return nil
}

func (s *ArtifactStore) getObject(ctx context.Context, key string) ([]byte, error) {
	result, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, errors.NewNotFoundError(errors.CodeArtifactNotFound,
				fmt.Sprintf("No object at key: %s", key), errors.ErrArtifactNotFound)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("Failed to download %s", key))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("Failed to read object body: %s", key))
	}

	return data, nil
}

func (s *ArtifactStore) deleteAll(ctx context.Context, keyPrefix string) error {
	for _, name := range []string{modelObjectName, hyperparamsObject, featureNamesObject} {
		key := path.Join(keyPrefix, name)
		_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.config.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED",
				fmt.Sprintf("Failed to delete object: %s", key))
		}
	}

	s.logger.WithField("key_prefix", keyPrefix).Info("Artifact objects deleted")
	return nil
}

// compensate removes whatever objects a failed save managed to upload.
func (s *ArtifactStore) compensate(ctx context.Context, keyPrefix string) {
	if err := s.deleteAll(ctx, keyPrefix); err != nil {
		s.logger.WithError(err).WithField("key_prefix", keyPrefix).
			Warn("Failed to clean up partial artifact upload")
	}
}
