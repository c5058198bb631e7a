package retrieve

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// writeEmbeddingsBin writes vectors as the spec's raw row-major float32
// matrix matching meta.json's (N, D) — no magic bytes or trailer, per
// spec §6 "Binary embedding file is raw row-major float32".
func writeEmbeddingsBin(path string, vectors [][]float32) error {
	if len(vectors) == 0 {
		return os.WriteFile(path, nil, 0o644)
	}
	dims := len(vectors[0])
	buf := make([]byte, len(vectors)*dims*4)
	off := 0
	for _, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("embeddings.bin: inconsistent vector dim %d vs %d", len(vec), dims)
		}
		for _, f := range vec {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return os.WriteFile(path, buf, 0o644)
}

// readEmbeddingsBin reads back the raw float32 matrix given the expected
// (n, dims) from the index's meta.json.
func readEmbeddingsBin(path string, n, dims int) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	expected := n * dims * 4
	if len(data) != expected {
		return nil, &IndexError{Msg: fmt.Sprintf("embeddings.bin size %d != expected %d (n=%d dims=%d)", len(data), expected, n, dims)}
	}
	vectors := make([][]float32, n)
	off := 0
	for i := 0; i < n; i++ {
		vec := make([]float32, dims)
		for d := 0; d < dims; d++ {
			vec[d] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = vec
	}
	return vectors, nil
}
