package embedder

import (
	"context"
	"fmt"
	"log"

	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

// Service binds a Provider to a Store and implements // embed_pending/embed_rebuild operations.
type Service struct {
	provider   Provider
	store      *store.Store
	batchSize  int
	maxRetries int
}

// NewService constructs a Service. batchSize and maxRetries default to
// sane values (50, 3) when zero.
func NewService(provider Provider, st *store.Store, batchSize, maxRetries int) *Service {
	if batchSize <= 0 {
		batchSize = 50
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Service{provider: provider, store: st, batchSize: batchSize, maxRetries: maxRetries}
}

// Result summarizes one embed_pending/embed_rebuild run.
type Result struct {
	Attempted int
	Embedded  int
	Failed    int
}

// EmbedPending selects stale chunks (absent or outdated embeddings),
// batches them, and writes resulting vectors. A batch's failure is logged
// and does not abort the run, .
func (s *Service) EmbedPending(ctx context.Context, limit int, progressCh chan<- BatchProgress) (*Result, error) {
	ids, err := s.pendingAndStaleChunkIDs(limit)
	if err != nil {
		return nil, err
	}
	return s.embedChunkIDs(ctx, ids, progressCh)
}

// EmbedRebuild clears every stored embedding and vector entry, then runs
// EmbedPending with no limit — embed_rebuild().
func (s *Service) EmbedRebuild(ctx context.Context, progressCh chan<- BatchProgress) (*Result, error) {
	if err := s.store.ClearEmbeddings(); err != nil {
		return nil, fmt.Errorf("clear embeddings for rebuild: %w", err)
	}
	if err := s.store.EnsureVectorTable(s.provider.Dimensions()); err != nil {
		return nil, fmt.Errorf("resize vector table for rebuild: %w", err)
	}
	return s.EmbedPending(ctx, 0, progressCh)
}

func (s *Service) pendingAndStaleChunkIDs(limit int) ([]string, error) {
	queryLimit := limit
	if queryLimit <= 0 {
		queryLimit = 1 << 30
	}
	pending, err := s.store.PendingChunkIDs(queryLimit)
	if err != nil {
		return nil, fmt.Errorf("list pending chunks: %w", err)
	}
	stale, err := s.store.StaleChunkIDs(s.provider.Model(), queryLimit)
	if err != nil {
		return nil, fmt.Errorf("list stale chunks: %w", err)
	}

	seen := make(map[string]bool, len(pending)+len(stale))
	var ids []string
	for _, id := range append(pending, stale...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Service) embedChunkIDs(ctx context.Context, ids []string, progressCh chan<- BatchProgress) (*Result, error) {
	res := &Result{Attempted: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}

	chunks := make([]*model.Chunk, 0, len(ids))
	for _, id := range ids {
		c, err := s.store.GetChunk(id)
		if err != nil {
			return nil, fmt.Errorf("load chunk %s: %w", id, err)
		}
		if c != nil {
			chunks = append(chunks, c)
		}
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := EmbedWithProgress(ctx, s.provider, texts, ModePassage, len(texts), s.maxRetries, progressCh)
		if err != nil {
			log.Printf("embed batch %d-%d failed, continuing: %v", start, end, err)
			res.Failed += len(batch)
			continue
		}

		for i, c := range batch {
			err := s.store.WriteEmbedding(&model.Embedding{
				ChunkID:  c.ID,
				Model:    s.provider.Model(),
				Dims:     s.provider.Dimensions(),
				Vector:   vectors[i],
				TextHash: c.TextHash,
			})
			if err != nil {
				log.Printf("write embedding for chunk %s failed: %v", c.ID, err)
				res.Failed++
				continue
			}
			res.Embedded++
		}
	}

	return res, nil
}
