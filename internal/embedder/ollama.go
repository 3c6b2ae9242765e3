package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ollamaProvider calls a local Ollama server's /api/embed endpoint, which
// natively accepts a batch of inputs in one request.
type ollamaProvider struct {
	endpoint string
	model    string
	dims     int
	client   *http.Client
}

func newOllamaProvider(cfg Config) (Provider, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://127.0.0.1:11434/api/embed"
	}
	model := cfg.Model
	if model == "" {
		model = "nomic-embed-text"
	}
	dims := cfg.Dims
	if dims <= 0 {
		dims = 768
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ollamaProvider{
		endpoint: endpoint,
		model:    model,
		dims:     dims,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type ollamaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *ollamaProvider) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	body, err := json.Marshal(ollamaRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d vectors for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func (p *ollamaProvider) Dimensions() int { return p.dims }
func (p *ollamaProvider) Model() string   { return p.model }
func (p *ollamaProvider) Close() error    { return nil }
