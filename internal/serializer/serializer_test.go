package serializer

import (
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalsight/modelregistry/pkg/errors"
)

type linearModel struct {
	Weights   []float64
	Intercept float64
}

func init() {
	gob.Register(linearModel{})
}

func TestGobSerializerRoundTrip(t *testing.T) {
	s := NewGobSerializer()
	in := linearModel{Weights: []float64{0.3, -1.2, 4.5}, Intercept: 0.07}

	data, err := s.Serialize(in)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	out, err := s.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGobSerializerCorruptBlob(t *testing.T) {
	s := NewGobSerializer()

	_, err := s.Deserialize([]byte("definitely not gob"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactCorrupt)
}

func TestRawSerializerPassthrough(t *testing.T) {
	s := NewRawSerializer()
	blob := []byte{0x01, 0x02, 0x03}

	data, err := s.Serialize(blob)
	require.NoError(t, err)
	assert.Equal(t, blob, data)

	out, err := s.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, blob, out)
}

func TestRawSerializerRejectsNonBytes(t *testing.T) {
	s := NewRawSerializer()

	_, err := s.Serialize(linearModel{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[]byte")
}

func TestJSONSerializerRoundTrip(t *testing.T) {
	s := NewJSONSerializer()
	in := map[string]interface{}{"threshold": 0.5, "labels": []interface{}{"low", "high"}}

	data, err := s.Serialize(in)
	require.NoError(t, err)

	out, err := s.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestJSONSerializerCorruptBlob(t *testing.T) {
	s := NewJSONSerializer()

	_, err := s.Deserialize([]byte("{truncated"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactCorrupt)
}
