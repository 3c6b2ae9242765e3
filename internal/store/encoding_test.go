package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeVector_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		vector []float32
	}{
		{name: "small vector", vector: []float32{1.234, -5.678, 0.0, 999.999, -0.001}},
		{name: "production 1536-dim", vector: makeTestVector(1536)},
		{name: "single value", vector: []float32{1.0}},
		{name: "empty vector", vector: []float32{}},
		{
			name: "special float values",
			vector: []float32{
				float32(math.NaN()),
				float32(math.Inf(1)),
				float32(math.Inf(-1)),
				0.0,
				-0.0,
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			raw := serializeVector(tt.vector)
			require.Len(t, raw, len(tt.vector)*4)

			got, err := deserializeVector(raw)
			require.NoError(t, err)
			require.Len(t, got, len(tt.vector))
			for i := range tt.vector {
				if math.IsNaN(float64(tt.vector[i])) {
					assert.True(t, math.IsNaN(float64(got[i])))
					continue
				}
				assert.Equal(t, tt.vector[i], got[i])
			}
		})
	}
}

func TestDeserializeVector_InvalidLength(t *testing.T) {
	t.Parallel()

	_, err := deserializeVector([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)
}

func makeTestVector(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i) * 0.001
	}
	return v
}
