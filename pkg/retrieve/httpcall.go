package retrieve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NewOpenAICompatibleCall returns an Embedder.Call implementation that
// posts to <apiBase>/embeddings on an OpenAI-compatible endpoint using plain
// net/http. This is the only network call C3 ever makes, and it is always
// routed through the cache's fetch/replay gate — never called directly
// in replay mode.
func NewOpenAICompatibleCall(apiBase, apiKey string) func(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
	client := &http.Client{Timeout: 60 * time.Second}
	apiBase = strings.TrimRight(apiBase, "/")

	return func(ctx context.Context, modelID string, texts []string) ([][]float32, error) {
		body, err := json.Marshal(struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}{Model: modelID, Input: texts})
		if err != nil {
			return nil, fmt.Errorf("marshal embedding request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiBase+"/embeddings", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create embedding request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("embedding API returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result struct {
			Data []struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("decode embedding response: %w", err)
		}
		if len(result.Data) != len(texts) {
			return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(result.Data), len(texts))
		}

		vecs := make([][]float32, len(texts))
		for _, d := range result.Data {
			if d.Index < 0 || d.Index >= len(texts) {
				return nil, fmt.Errorf("embedding response index %d out of range", d.Index)
			}
			vecs[d.Index] = d.Embedding
		}
		return vecs, nil
	}
}
