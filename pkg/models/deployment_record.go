package models

import (
	"time"

	"github.com/vitalsight/modelregistry/pkg/errors"
)

// DeploymentAction is the kind of production transition an audit entry records.
type DeploymentAction string

const (
	ActionPromote  DeploymentAction = "promote"
	ActionRollback DeploymentAction = "rollback"
)

// IsValid reports whether a is a known deployment action.
func (a DeploymentAction) IsValid() bool {
	return a == ActionPromote || a == ActionRollback
}

// DeploymentRecord is an append-only audit entry. Records are created once
// and never mutated or deleted; they are retained for long-term audit.
type DeploymentRecord struct {
	ID          string           `json:"id"`
	ModelName   string           `json:"model_name"`
	FromVersion string           `json:"from_version,omitempty"`
	ToVersion   string           `json:"to_version"`
	Action      DeploymentAction `json:"action"`
	UserID      string           `json:"user_id"`
	Timestamp   time.Time        `json:"timestamp"`
}

// Validate checks the fields an audit entry must carry before it is appended.
func (r *DeploymentRecord) Validate() error {
	if r.ModelName == "" {
		return errors.NewValidationError(errors.CodeMissingField, "model_name is required")
	}
	if r.ToVersion == "" {
		return errors.NewValidationError(errors.CodeMissingField, "to_version is required")
	}
	if !r.Action.IsValid() {
		return errors.NewValidationError(errors.CodeInvalidInput,
			"unknown deployment action: "+string(r.Action))
	}
	return nil
}
