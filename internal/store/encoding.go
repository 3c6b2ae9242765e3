package store

import (
	"encoding/binary"
	"fmt"
	"math"
)

// serializeVector converts a float32 slice to little-endian bytes, one
// IEEE-754 float per 4 bytes, for storage in the embeddings table's BLOB
// column. The chunks_vec virtual table uses its own sqlite-vec wire format
// instead, produced by sqlite_vec.SerializeFloat32.
func serializeVector(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func deserializeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob: length %d not divisible by 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
