package embedder

import (
	"context"
	"errors"

	"github.com/contextharness/ctx/internal/apperr"
)

// ErrEmbeddingsDisabled is returned by the disabled provider's EmbedBatch,
// and is what the taxonomy's embeddings_disabled code wraps.
var ErrEmbeddingsDisabled = errors.New("embeddings are disabled")

type disabledProvider struct{}

func newDisabledProvider() Provider { return disabledProvider{} }

func (disabledProvider) EmbedBatch(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	return nil, apperr.E(apperr.EmbeddingsDisabled, "embeddings are disabled for this harness", ErrEmbeddingsDisabled)
}

func (disabledProvider) Dimensions() int { return 0 }
func (disabledProvider) Model() string   { return "" }
func (disabledProvider) Close() error    { return nil }
