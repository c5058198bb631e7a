package retrieve

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/esgscore/maturity/pkg/cache"
)

// Embedder embeds text into a fixed-dimension, L2-normalized vector via
// the content-addressed cache (C2), under a fixed model_id.
type Embedder struct {
	Cache   *cache.Cache
	ModelID string
	Dim     int
	Call    func(ctx context.Context, modelID string, texts []string) ([][]float32, error)
}

// Embed returns one L2-normalized vector per input text. Each text is
// embedded through C2's get_or_call independently so that a partial cache
// (some chunks already embedded) still replays deterministically.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *Embedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	params := map[string]any{"dim": e.Dim}
	fetch := func(ctx context.Context) ([]byte, error) {
		vecs, err := e.Call(ctx, e.ModelID, []string{text})
		if err != nil {
			return nil, err
		}
		if len(vecs) != 1 {
			return nil, fmt.Errorf("embedder returned %d vectors, want 1", len(vecs))
		}
		return json.Marshal(vecs[0])
	}
	raw, err := e.Cache.GetOrCall(ctx, "embed", e.ModelID, params, text, fetch)
	if err != nil {
		return nil, err
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, fmt.Errorf("decode cached embedding: %w", err)
	}
	return l2Normalize(vec), nil
}

func l2Normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
