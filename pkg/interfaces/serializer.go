package interfaces

// ModelSerializer converts the opaque model object to and from bytes. The
// artifact's internal representation is owned by the training ecosystem, so
// the storage engine depends only on this capability, never on a modeling
// library.
type ModelSerializer interface {
	// Serialize encodes the model object into a byte blob
	Serialize(model interface{}) ([]byte, error)

	// Deserialize decodes a byte blob back into a model object
	Deserialize(data []byte) (interface{}, error)
}
