package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// openAIProvider calls an OpenAI-compatible /embeddings endpoint with a
// plain net/http client — no HTTP client library needed for a handful of
// JSON POST calls.
type openAIProvider struct {
	endpoint string
	apiKey   string
	model    string
	dims     int
	client   *http.Client
}

func newOpenAIProvider(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai embedding provider requires an api key")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/embeddings"
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims := cfg.Dims
	if dims <= 0 {
		dims = 1536
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAIProvider{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		dims:     dims,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *openAIProvider) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	body, err := json.Marshal(openAIRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyHTTPError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		return nil, fmt.Errorf("openai request rejected: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp.StatusCode)
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d vectors for %d texts", len(out.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (p *openAIProvider) Dimensions() int { return p.dims }
func (p *openAIProvider) Model() string   { return p.model }
func (p *openAIProvider) Close() error    { return nil }
