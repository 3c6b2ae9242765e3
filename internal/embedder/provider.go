// Package embedder implements the embedding subsystem : a
// Provider trait (disabled/openai/ollama/local), batched embedding with
// progress reporting, retry/backoff for transient errors, and the
// staleness-driven embed_pending/embed_rebuild operations over a store.
package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/contextharness/ctx/internal/model"
)

// Mode distinguishes query embeddings from passage embeddings — some
// providers (and most real embedding models) use distinct instructions or
// prefixes for the two.
type Mode string

const (
	ModeQuery   Mode = "query"
	ModePassage Mode = "passage"
)

// Provider converts text into dense vectors. embed_batch is order-preserving
// and all-or-nothing: either every text in the batch is embedded, or the
// call returns an error and no partial result.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error)
	Dimensions() int
	Model() string
	Close() error
}

// Config selects and parameterizes a Provider, and // `[embedding]` config section.
type Config struct {
	Provider   string // disabled|openai|ollama|local
	Model      string
	Dims       int
	Endpoint   string
	APIKey     string
	BinaryPath string
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration
}

// New constructs a Provider from Config, defaulting to "disabled" so a
// harness with no embedding configuration still runs keyword-only search
// without its code paths diverging, disabled-provider contract.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "disabled":
		return newDisabledProvider(), nil
	case "openai":
		return newOpenAIProvider(cfg)
	case "ollama":
		return newOllamaProvider(cfg)
	case "local":
		return newLocalProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: disabled, openai, ollama, local)", cfg.Provider)
	}
}

// Stale reports whether a stored embedding needs to be recomputed: its
// text hash or model no longer matches the chunk's current state.
func Stale(e *model.Embedding, chunk *model.Chunk, currentModel string) bool {
	return e.Stale(chunk, currentModel)
}
