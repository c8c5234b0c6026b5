package postgres

import (
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingValueNullForMissingVector(t *testing.T) {
	// A typed vector(N) column rejects zero-dimension vectors, so chunks
	// indexed without embeddings must bind NULL instead.
	assert.Nil(t, embeddingValue(nil))
	assert.Nil(t, embeddingValue([]float32{}))
}

func TestEmbeddingValuePresentVector(t *testing.T) {
	value := embeddingValue([]float32{0.1, 0.2, 0.3})
	vector, ok := value.(pgvector.Vector)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector.Slice())
}
