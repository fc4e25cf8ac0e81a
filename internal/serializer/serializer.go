package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"

	"github.com/vitalsight/modelregistry/pkg/errors"
)

// GobSerializer encodes arbitrary Go model objects with encoding/gob.
// Callers must gob.Register their concrete model types, the same way they
// would for any gob round trip.
type GobSerializer struct{}

// NewGobSerializer creates the default serializer for Go-native model objects.
func NewGobSerializer() *GobSerializer {
	return &GobSerializer{}
}

// Serialize encodes the model object into a gob blob.
func (s *GobSerializer) Serialize(model interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&model); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "gob encoding failed")
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a gob blob back into the registered concrete type.
func (s *GobSerializer) Deserialize(data []byte) (interface{}, error) {
	var model interface{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&model); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, "gob decoding failed: "+err.Error())
	}
	return model, nil
}

// RawSerializer passes []byte model blobs through untouched. Used when the
// training pipeline has already serialized the model in its own format.
type RawSerializer struct{}

// NewRawSerializer creates a passthrough serializer for pre-encoded blobs.
func NewRawSerializer() *RawSerializer {
	return &RawSerializer{}
}

// Serialize accepts only []byte and hands it back unchanged.
func (s *RawSerializer) Serialize(model interface{}) ([]byte, error) {
	data, ok := model.([]byte)
	if !ok {
		return nil, errors.NewValidationError(errors.CodeInvalidInput,
			"raw serializer requires a []byte model object")
	}
	return data, nil
}

// Deserialize hands the blob back unchanged.
func (s *RawSerializer) Deserialize(data []byte) (interface{}, error) {
	return data, nil
}

// JSONSerializer encodes model objects as JSON. Round trips decode into
// generic JSON values, so it suits models that are themselves plain
// parameter documents rather than typed Go structs.
type JSONSerializer struct{}

// NewJSONSerializer creates a JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize encodes the model object as JSON.
func (s *JSONSerializer) Serialize(model interface{}) ([]byte, error) {
	data, err := json.Marshal(model)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage,
			errors.CodeArtifactWrite, "json encoding failed")
	}
	return data, nil
}

// Deserialize decodes the JSON blob into a generic value.
func (s *JSONSerializer) Deserialize(data []byte) (interface{}, error) {
	var model interface{}
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, errors.WrapError(errors.ErrArtifactCorrupt, errors.ErrorTypeStorage,
			errors.CodeArtifactCorrupt, "json decoding failed: "+err.Error())
	}
	return model, nil
}
