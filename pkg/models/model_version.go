package models

import (
	"time"

	"github.com/vitalsight/modelregistry/pkg/errors"
)

// Status is the lifecycle state of a registered model version.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusProduction Status = "production"
	StatusArchived   Status = "archived"
)

// validTransitions is the closed transition table for version statuses.
// registered and archived are both eligible promotion sources; production
// only ever demotes to archived. There is no deletion transition.
var validTransitions = map[Status][]Status{
	StatusRegistered: {StatusProduction},
	StatusProduction: {StatusArchived},
	StatusArchived:   {StatusProduction},
}

// IsValid reports whether s is a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusRegistered, StatusProduction, StatusArchived:
		return true
	}
	return false
}

// CanTransitionTo reports whether the transition s -> next is in the table.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTransition returns a validation error for transitions outside the table.
func ValidateTransition(from, to Status) error {
	if !from.IsValid() {
		return errors.NewValidationError(errors.CodeInvalidStatus,
			"unknown status: "+string(from))
	}
	if !to.IsValid() {
		return errors.NewValidationError(errors.CodeInvalidStatus,
			"unknown status: "+string(to))
	}
	if !from.CanTransitionTo(to) {
		return errors.WrapError(errors.ErrInvalidTransition, errors.ErrorTypeValidation,
			errors.CodeInvalidTransition, string(from)+" -> "+string(to)+" is not allowed")
	}
	return nil
}

// ModelVersion is one immutable, registered snapshot of a trained model plus
// its metadata. Only Status and DeployedAt mutate after registration; every
// other field is write-once.
type ModelVersion struct {
	VersionID string `json:"version_id"`
	ModelName string `json:"model_name"`
	ModelType string `json:"model_type"`

	CreatedAt  time.Time  `json:"created_at"`
	DeployedAt *time.Time `json:"deployed_at,omitempty"`

	Metrics         map[string]float64     `json:"metrics"`
	DatasetVersion  string                 `json:"dataset_version"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
	FeatureNames    []string               `json:"feature_names,omitempty"`

	NTrainingSamples   int     `json:"n_training_samples,omitempty"`
	NValidationSamples int     `json:"n_validation_samples,omitempty"`
	NTestSamples       int     `json:"n_test_samples,omitempty"`
	TrainingDuration   float64 `json:"training_duration_seconds,omitempty"`

	Notes     string `json:"notes,omitempty"`
	CreatedBy string `json:"created_by"`

	Status       Status `json:"status"`
	ArtifactPath string `json:"artifact_path"`
}

// Validate checks the invariants a version record must satisfy before it is
// inserted into the metadata store.
func (v *ModelVersion) Validate() error {
	if v.VersionID == "" {
		return errors.NewValidationError(errors.CodeMissingField, "version_id is required")
	}
	if v.ModelName == "" {
		return errors.NewValidationError(errors.CodeMissingField, "model_name is required")
	}
	if v.Metrics == nil {
		return errors.WrapError(errors.ErrNilMetrics, errors.ErrorTypeValidation,
			errors.CodeMissingField, "metrics mapping is required")
	}
	if v.Hyperparameters == nil {
		return errors.WrapError(errors.ErrNilHyperparameters, errors.ErrorTypeValidation,
			errors.CodeMissingField, "hyperparameters mapping is required")
	}
	if !v.Status.IsValid() {
		return errors.NewValidationError(errors.CodeInvalidStatus,
			"unknown status: "+string(v.Status))
	}
	return nil
}

// Clone returns a deep copy. Stores hand out copies so callers can never
// mutate a record that the store still owns.
func (v *ModelVersion) Clone() *ModelVersion {
	out := *v
	if v.DeployedAt != nil {
		t := *v.DeployedAt
		out.DeployedAt = &t
	}
	if v.Metrics != nil {
		out.Metrics = make(map[string]float64, len(v.Metrics))
		for k, val := range v.Metrics {
			out.Metrics[k] = val
		}
	}
	if v.Hyperparameters != nil {
		out.Hyperparameters = make(map[string]interface{}, len(v.Hyperparameters))
		for k, val := range v.Hyperparameters {
			out.Hyperparameters[k] = val
		}
	}
	if v.FeatureNames != nil {
		out.FeatureNames = append([]string(nil), v.FeatureNames...)
	}
	return &out
}
