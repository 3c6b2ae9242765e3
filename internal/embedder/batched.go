package embedder

import (
	"context"
	"fmt"
)

// BatchProgress reports embedding progress for one in-flight batch.
type BatchProgress struct {
	BatchIndex      int
	TotalBatches    int
	ProcessedChunks int
	TotalChunks     int
}

// EmbedWithProgress embeds texts in fixed-size batches sequentially,
// retrying each batch's transient errors via withRetry and reporting
// progress on progressCh (may be nil). A batch that exhausts its retries
// returns its error immediately — "failure of one batch ... does
// not abort the run" is enforced by the caller (embed_pending), which
// invokes this per-batch rather than over the whole set.
func EmbedWithProgress(
	ctx context.Context,
	provider Provider,
	texts []string,
	mode Mode,
	batchSize int,
	maxRetries int,
	progressCh chan<- BatchProgress,
) ([][]float32, error) {
	total := len(texts)
	if total == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 50
	}

	numBatches := (total + batchSize - 1) / batchSize
	results := make([][]float32, total)
	processed := 0

	for batchIdx := 0; batchIdx < numBatches; batchIdx++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		start := batchIdx * batchSize
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := texts[start:end]

		vectors, err := withRetry(ctx, maxRetries, func() ([][]float32, error) {
			return provider.EmbedBatch(ctx, batch, mode)
		})
		if err != nil {
			return nil, fmt.Errorf("batch %d/%d failed: %w", batchIdx+1, numBatches, err)
		}
		copy(results[start:end], vectors)

		processed += len(batch)
		if progressCh != nil {
			progressCh <- BatchProgress{
				BatchIndex:      batchIdx + 1,
				TotalBatches:    numBatches,
				ProcessedChunks: processed,
				TotalChunks:     total,
			}
		}
	}

	return results, nil
}
