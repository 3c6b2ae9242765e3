package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/contextharness/ctx/internal/connector"
)

// SourceSpec is one configured connector instance ready to sync.
type SourceSpec struct {
	Name      string
	Conn      connector.Connector
	FullSync  bool
	Prune     bool
}

// SyncAll runs every SourceSpec's sync bounded-parallel (/: "sync
// all runs multiple connector instances in parallel (bounded); each sync
// uses short, serialized transactions against the store"), following the
// errgroup fan-out/fan-in pattern used elsewhere in the retrieved corpus
// for concurrent independent I/O. One source's failure does not cancel
// the others; all results (and the first per-source error, if any) are
// returned together.
func (sy *Syncer) SyncAll(ctx context.Context, specs []SourceSpec, maxParallel int, progress Progress) (map[string]*Result, map[string]error) {
	if maxParallel <= 0 {
		maxParallel = 4
	}

	results := make(map[string]*Result, len(specs))
	errs := make(map[string]error)
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)

	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			res, err := sy.Sync(gCtx, spec.Name, spec.Conn, spec.FullSync, spec.Prune, progress)
			mu.Lock()
			results[spec.Name] = res
			if err != nil {
				errs[spec.Name] = err
			}
			mu.Unlock()
			return nil // never abort sibling syncs on one source's failure
		})
	}
	_ = g.Wait()

	return results, errs
}
