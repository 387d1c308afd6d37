package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/tlsandbox/cohere-globalmart/internal/domain"
)

// retryableStatus lists the HTTP codes worth a retry with backoff.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusConflict:            true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// postJSON POSTs a payload to a native v2 path and decodes the response into
// out. Retryable statuses and transport errors back off 0.4s * 2^attempt.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(0.4 * math.Pow(2, float64(attempt-1)) * float64(time.Second))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build %s request: %w", path, err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode >= 400 {
			if retryableStatus[resp.StatusCode] && attempt < c.maxRetries {
				lastErr = fmt.Errorf("cohere %s returned %d", path, resp.StatusCode)
				continue
			}
			return fmt.Errorf("cohere request failed (%d) at %s: %s: %w",
				resp.StatusCode, path, strings.TrimSpace(string(respBody)), domain.ErrAIUnavailable)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
		return nil
	}

	return fmt.Errorf("cohere request failed at %s: %v: %w", path, lastErr, domain.ErrAIUnavailable)
}

type embedResponse struct {
	Embeddings json.RawMessage `json:"embeddings"`
}

// decodeEmbeddings accepts either a bare matrix or the keyed form
// {"float": [[...]]} that the v2 API returns for embedding_types.
func decodeEmbeddings(raw json.RawMessage) [][]float32 {
	if len(raw) == 0 {
		return nil
	}

	var matrix [][]float32
	if err := json.Unmarshal(raw, &matrix); err == nil {
		return matrix
	}

	var keyed struct {
		Float [][]float32 `json:"float"`
	}
	if err := json.Unmarshal(raw, &keyed); err == nil && len(keyed.Float) > 0 {
		return keyed.Float
	}
	return nil
}

// EmbedTexts embeds a batch of texts with the configured model. Blank inputs
// are dropped before the call; the returned matrix matches the cleaned batch
// or the call fails with domain.ErrEmbeddingShapeMismatch.
func (c *Client) EmbedTexts(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	cleaned := make([]string, 0, len(texts))
	for _, t := range texts {
		if s := strings.TrimSpace(t); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return nil, nil
	}

	return execute(c, func() ([][]float32, error) {
		start := time.Now()
		vectors, err := c.embedBatch(ctx, cleaned, inputType)
		observe("embed", c.embedModel, start, err)
		return vectors, err
	})
}

func (c *Client) embedBatch(ctx context.Context, cleaned []string, inputType string) ([][]float32, error) {
	var resp embedResponse
	err := c.postJSON(ctx, "/v2/embed", map[string]any{
		"model":           c.embedModel,
		"texts":           cleaned,
		"input_type":      inputType,
		"embedding_types": []string{"float"},
	}, &resp)
	if err == nil {
		if vectors := decodeEmbeddings(resp.Embeddings); len(vectors) == len(cleaned) {
			return vectors, nil
		}
	}

	// Older deployments reject the texts form; retry with inputs blocks.
	inputs := make([]map[string]any, len(cleaned))
	for i, t := range cleaned {
		inputs[i] = map[string]any{
			"content": []map[string]any{{"type": "text", "text": t}},
		}
	}
	resp = embedResponse{}
	if err := c.postJSON(ctx, "/v2/embed", map[string]any{
		"model":           c.embedModel,
		"input_type":      inputType,
		"embedding_types": []string{"float"},
		"inputs":          inputs,
	}, &resp); err != nil {
		return nil, err
	}

	vectors := decodeEmbeddings(resp.Embeddings)
	if len(vectors) != len(cleaned) {
		return nil, fmt.Errorf("got %d vectors for %d texts: %w",
			len(vectors), len(cleaned), domain.ErrEmbeddingShapeMismatch)
	}
	return vectors, nil
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Rerank scores documents against a query with the configured rerank model.
// topN is clamped to [1, len(documents)].
func (c *Client) Rerank(ctx context.Context, query string, documents []string, topN int) ([]domain.RerankHit, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	if topN < 1 {
		topN = 1
	}
	if topN > len(documents) {
		topN = len(documents)
	}

	return execute(c, func() ([]domain.RerankHit, error) {
		start := time.Now()
		var resp rerankResponse
		err := c.postJSON(ctx, "/v2/rerank", map[string]any{
			"model":     c.rerankModel,
			"query":     query,
			"documents": documents,
			"top_n":     topN,
		}, &resp)
		observe("rerank", c.rerankModel, start, err)
		if err != nil {
			return nil, err
		}

		hits := make([]domain.RerankHit, 0, len(resp.Results))
		for _, r := range resp.Results {
			if r.Index < 0 || r.Index >= len(documents) {
				continue
			}
			hits = append(hits, domain.RerankHit{Index: r.Index, Relevance: r.RelevanceScore})
		}
		return hits, nil
	})
}
