// Package search implements hybrid retrieval engine: keyword
// (BM25-style), semantic (cosine over dense vectors), and hybrid merge of
// the two, with document-level aggregation, snippet selection, and
// deterministic tie-breaking, generalized from "two independent indexes
// reloaded together" to "two independent indexes merged per query".
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/maypok86/otter"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/embedder"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

// SnippetChars bounds the snippet returned per result, trimmed on a word
// boundary.
const SnippetChars = 280

// Params configures one search call, matching `[retrieval]` config
// section and the request fields 's `/tools/search`.
type Params struct {
	Query             string
	Mode              model.SearchMode
	Limit             int
	Source            string
	Explain           bool
	CandidateKKeyword int
	CandidateKVector  int
	HybridAlpha       float64
	GroupBy           string // "" | "document"
	DocAgg            string // "max"
	MaxChunksPerDoc   int
}

// Engine runs searches against a Store, optionally embedding queries via an
// embedder.Service-compatible Provider for the semantic/hybrid axes.
type Engine struct {
	store    *store.Store
	provider embedder.Provider
	cache    otter.Cache[string, []model.Result]
}

// New constructs an Engine. provider may be the disabled provider — the
// semantic axis then fails with apperr.EmbeddingsDisabled, .
func New(st *store.Store, provider embedder.Provider) (*Engine, error) {
	cache, err := otter.MustBuilder[string, []model.Result](1024).
		Cost(func(key string, value []model.Result) uint32 {
			return uint32(len(value) + 1)
		}).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build search cache: %w", err)
	}
	return &Engine{store: st, provider: provider, cache: cache}, nil
}

// candidate is one chunk's per-axis raw/normalized scores before merge.
type candidate struct {
	chunkID    string
	rawKeyword float64
	hasKeyword bool
	rawVector  float64 // cosine distance, smaller is closer
	hasVector  bool
}

// Search runs one query per Params.Mode, returning chunk-level or
// document-aggregated results .
func (e *Engine) Search(ctx context.Context, p Params) ([]model.Result, error) {
	if strings.TrimSpace(p.Query) == "" {
		return nil, apperr.E(apperr.BadRequest, "query must not be empty", nil)
	}
	applyDefaults(&p)

	cacheKey := cacheKeyFor(p, e.store.Generation())
	if cached, ok := e.cache.Get(cacheKey); ok {
		return cached, nil
	}

	candidates, err := e.gatherCandidates(ctx, p)
	if err != nil {
		return nil, err
	}

	results, err := e.scoreAndHydrate(candidates, p)
	if err != nil {
		return nil, err
	}

	if p.GroupBy == "document" {
		results = aggregateByDocument(results, p.MaxChunksPerDoc)
	}

	results = sortAndTieBreak(results)
	if len(results) > p.Limit {
		results = results[:p.Limit]
	}

	e.cache.Set(cacheKey, results)
	return results, nil
}

func applyDefaults(p *Params) {
	if p.Mode == "" {
		p.Mode = model.ModeHybrid
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}
	if p.CandidateKKeyword <= 0 {
		p.CandidateKKeyword = 50
	}
	if p.CandidateKVector <= 0 {
		p.CandidateKVector = 50
	}
	if p.HybridAlpha < 0 {
		p.HybridAlpha = 0
	}
	if p.HybridAlpha > 1 {
		p.HybridAlpha = 1
	}
	if p.DocAgg == "" {
		p.DocAgg = "max"
	}
	if p.MaxChunksPerDoc <= 0 {
		p.MaxChunksPerDoc = 3
	}
}

// cacheKeyFor folds in the store's write generation (store.go's
// Store.Generation) so a single store write invalidates every previously
// cached query in one step — otherwise a cached result could keep
// returning chunks belonging to a document deleted by a later prune, or
// scores computed against an embedding since overwritten by a re-embed.
func cacheKeyFor(p Params, generation uint64) string {
	return fmt.Sprintf("%d\x00%s\x00%s\x00%d\x00%s\x00%v\x00%s\x00%d\x00%.4f\x00%d\x00%d",
		generation, p.Query, p.Mode, p.Limit, p.Source, p.Explain, p.GroupBy, p.MaxChunksPerDoc,
		p.HybridAlpha, p.CandidateKKeyword, p.CandidateKVector)
}

// gatherCandidates fetches per-axis candidate sets according to mode and
// merges them keyed by chunk ID, "union of candidate sets" rule
// for hybrid mode.
func (e *Engine) gatherCandidates(ctx context.Context, p Params) (map[string]*candidate, error) {
	out := map[string]*candidate{}

	runKeyword := p.Mode == model.ModeKeyword || p.Mode == model.ModeHybrid
	runSemantic := p.Mode == model.ModeSemantic || p.Mode == model.ModeHybrid

	if runKeyword {
		hits, err := e.store.FTSSearch(p.Query, sourceFilter(p.Source), p.CandidateKKeyword)
		if err != nil {
			return nil, apperr.E(apperr.Internal, "keyword search failed", err)
		}
		for _, h := range hits {
			c := out[h.ChunkID]
			if c == nil {
				c = &candidate{chunkID: h.ChunkID}
				out[h.ChunkID] = c
			}
			// bm25() in SQLite FTS5 returns more-negative for better
			// matches; negate so "higher raw is better" holds uniformly.
			c.rawKeyword = -h.Rank
			c.hasKeyword = true
		}
	}

	if runSemantic {
		vecs, err := e.provider.EmbedBatch(ctx, []string{p.Query}, embedder.ModeQuery)
		if err != nil {
			if ae, ok := apperr.As(err); ok {
				return nil, ae
			}
			return nil, apperr.E(apperr.EmbeddingFailed, "embed query failed", err)
		}
		hits, err := e.store.VectorSearch(vecs[0], p.CandidateKVector)
		if err != nil {
			return nil, apperr.E(apperr.Internal, "vector search failed", err)
		}
		for _, h := range hits {
			c := out[h.ChunkID]
			if c == nil {
				c = &candidate{chunkID: h.ChunkID}
				out[h.ChunkID] = c
			}
			c.rawVector = h.Distance
			c.hasVector = true
		}
	}

	return out, nil
}

func sourceFilter(source string) []string {
	if source == "" {
		return nil
	}
	return []string{source}
}

// scoreAndHydrate normalizes per-axis scores to [0,1] over the candidate
// set, computes the hybrid score, filters by source, and joins in
// document/snippet fields.
func (e *Engine) scoreAndHydrate(candidates map[string]*candidate, p Params) ([]model.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}

	hydrated, err := e.store.HydrateChunks(ids)
	if err != nil {
		return nil, apperr.E(apperr.Internal, "hydrate candidate chunks", err)
	}

	minKW, maxKW := minMaxKeyword(candidates)
	minV, maxV := minMaxVector(candidates)

	var out []model.Result
	for _, c := range candidates {
		h, ok := hydrated[c.chunkID]
		if !ok {
			continue // document deleted between candidate fetch and hydration
		}
		if p.Source != "" && h.Source != p.Source {
			continue
		}

		normKW := normalize(c.rawKeyword, minKW, maxKW, c.hasKeyword)
		normSem := normalizeSemantic(c.rawVector, minV, maxV, c.hasVector)

		var score float64
		switch p.Mode {
		case model.ModeKeyword:
			score = normKW
		case model.ModeSemantic:
			score = normSem
		default:
			score = (1-p.HybridAlpha)*normKW + p.HybridAlpha*normSem
		}

		res := model.Result{
			ChunkID:    c.chunkID,
			DocumentID: h.DocumentID,
			Source:     h.Source,
			Title:      h.Title,
			SourceURL:  h.SourceURL,
			Score:      score,
			Snippet:    snippet(h.Chunk.Text),
			UpdatedAt:  h.UpdatedAt,
		}
		if p.Explain {
			res.Explain = &model.AxisScore{
				RawKeyword:         c.rawKeyword,
				NormalizedKeyword:  normKW,
				RawSemantic:        c.rawVector,
				NormalizedSemantic: normSem,
				Hybrid:             score,
			}
		}
		out = append(out, res)
	}
	return out, nil
}

func minMaxKeyword(candidates map[string]*candidate) (min, max float64) {
	first := true
	for _, c := range candidates {
		if !c.hasKeyword {
			continue
		}
		if first || c.rawKeyword < min {
			min = c.rawKeyword
		}
		if first || c.rawKeyword > max {
			max = c.rawKeyword
		}
		first = false
	}
	return min, max
}

func minMaxVector(candidates map[string]*candidate) (min, max float64) {
	first := true
	for _, c := range candidates {
		if !c.hasVector {
			continue
		}
		if first || c.rawVector < min {
			min = c.rawVector
		}
		if first || c.rawVector > max {
			max = c.rawVector
		}
		first = false
	}
	return min, max
}

// normalize min-max normalizes a raw "higher is better" score to [0,1].
// A candidate absent from this axis scores 0, open-question
// decision.
func normalize(raw, min, max float64, present bool) float64 {
	if !present {
		return 0
	}
	if max == min {
		return 1
	}
	return (raw - min) / (max - min)
}

// normalizeSemantic converts distance (smaller is more similar) to
// similarity in [0,1] via min-max over the candidate set, step 3.
func normalizeSemantic(raw, min, max float64, present bool) float64 {
	if !present {
		return 0
	}
	if max == min {
		return 1
	}
	// Invert: the closest (min) distance becomes 1, farthest (max) becomes 0.
	return 1 - (raw-min)/(max-min)
}

// snippet truncates text to SnippetChars, trimmed on a word boundary.
func snippet(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= SnippetChars {
		return text
	}
	cut := text[:SnippetChars]
	if idx := strings.LastIndexAny(cut, " \t\n"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}

// aggregateByDocument groups chunk-level results by document, scoring each
// group by its max chunk score and retaining at most maxChunksPerDoc chunks
// per group, document-aggregation pass.
func aggregateByDocument(results []model.Result, maxChunksPerDoc int) []model.Result {
	groups := map[string][]model.Result{}
	order := []string{}
	for _, r := range results {
		if _, ok := groups[r.DocumentID]; !ok {
			order = append(order, r.DocumentID)
		}
		groups[r.DocumentID] = append(groups[r.DocumentID], r)
	}

	out := make([]model.Result, 0, len(order))
	for _, docID := range order {
		chunks := groups[docID]
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
		if len(chunks) > maxChunksPerDoc {
			chunks = chunks[:maxChunksPerDoc]
		}
		best := chunks[0]
		ids := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ChunkID
		}
		best.ChunkIDs = ids
		out = append(out, best)
	}
	return out
}

// sortAndTieBreak orders results strictly by descending score, breaking
// ties by more-recent updated_at then stable document_id lexical order,
// tie-breaking rule.
func sortAndTieBreak(results []model.Result) []model.Result {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		at, bt := timeOrZero(a.UpdatedAt), timeOrZero(b.UpdatedAt)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		return a.DocumentID < b.DocumentID
	})
	return results
}
