package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spanplan/spanplan/pkg/chunk"
)

func TestParseManifest(t *testing.T) {
	t.Parallel()

	data := []byte(`
total: 100
latency: 0.05
bandwidth: 1000
chunks:
  - start: 0
    end: 40
  - start: 30
    end: 100
`)

	request, err := chunk.ParseManifest(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(100), request.Total)
	assert.InDelta(t, 0.05, request.Latency, costDelta)
	assert.InDelta(t, 1000.0, request.Bandwidth, costDelta)
	assert.Equal(t, []chunk.Chunk{
		{Start: 0, End: 40},
		{Start: 30, End: 100},
	}, request.Chunks)
}

func TestParseManifestNoChunks(t *testing.T) {
	t.Parallel()

	data := []byte(`
total: 10
latency: 0
bandwidth: 1
chunks: []
`)

	request, err := chunk.ParseManifest(data)
	require.NoError(t, err)
	assert.Empty(t, request.Chunks)
}

func TestParseManifestSchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"missing total", "latency: 0.05\nbandwidth: 1000\nchunks: []\n"},
		{"missing bandwidth", "total: 10\nlatency: 0.05\nchunks: []\n"},
		{"zero bandwidth", "total: 10\nlatency: 0.05\nbandwidth: 0\nchunks: []\n"},
		{"negative latency", "total: 10\nlatency: -1\nbandwidth: 10\nchunks: []\n"},
		{"chunk missing end", "total: 10\nlatency: 0\nbandwidth: 1\nchunks:\n  - start: 0\n"},
		{"unknown field", "total: 10\nlatency: 0\nbandwidth: 1\nchunks: []\nextra: true\n"},
		{
			"chunk unknown field",
			"total: 10\nlatency: 0\nbandwidth: 1\nchunks:\n  - start: 0\n    end: 5\n    cost: 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := chunk.ParseManifest([]byte(tt.data))
			require.ErrorIs(t, err, chunk.ErrManifestInvalid)
		})
	}
}

func TestParseManifestBadYAML(t *testing.T) {
	t.Parallel()

	_, err := chunk.ParseManifest([]byte(":\n  - ["))
	require.Error(t, err)
	assert.NotErrorIs(t, err, chunk.ErrManifestInvalid)
}
