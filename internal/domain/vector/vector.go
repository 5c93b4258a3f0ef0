// Package vector holds the float32 vector codec shared by the persisted index
// and the embedding cache.
package vector

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode serializes v as little-endian IEEE 754 float32 values without a length
// prefix; the length is derived from the byte size on decode.
func Encode(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode parses bytes produced by Encode.
func Decode(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
