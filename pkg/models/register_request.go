package models

import (
	"github.com/vitalsight/modelregistry/pkg/errors"
)

// RegisterRequest carries everything the training pipeline supplies when it
// hands a candidate model to the registry. The model object itself is opaque;
// the registry never inspects it.
type RegisterRequest struct {
	Model     interface{} `json:"-"`
	ModelName string      `json:"model_name"`
	ModelType string      `json:"model_type"`

	Metrics         map[string]float64     `json:"metrics"`
	DatasetVersion  string                 `json:"dataset_version"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	FeatureNames    []string               `json:"feature_names,omitempty"`

	TrainingDuration   float64 `json:"training_duration_seconds,omitempty"`
	NTrainingSamples   int     `json:"n_training_samples,omitempty"`
	NValidationSamples int     `json:"n_validation_samples,omitempty"`
	NTestSamples       int     `json:"n_test_samples,omitempty"`

	Notes  string `json:"notes,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// Validate enforces the registration preconditions: non-empty model name,
// non-nil metrics and hyperparameters.
func (r *RegisterRequest) Validate() error {
	if r.ModelName == "" {
		return errors.WrapError(errors.ErrInvalidModelName, errors.ErrorTypeValidation,
			errors.CodeMissingField, "model_name is required")
	}
	if r.Metrics == nil {
		return errors.WrapError(errors.ErrNilMetrics, errors.ErrorTypeValidation,
			errors.CodeMissingField, "metrics mapping is required")
	}
	if r.Hyperparameters == nil {
		return errors.WrapError(errors.ErrNilHyperparameters, errors.ErrorTypeValidation,
			errors.CodeMissingField, "hyperparameters mapping is required")
	}
	return nil
}
