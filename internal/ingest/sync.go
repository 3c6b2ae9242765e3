// Package ingest orchestrates a single sync run for one configured source,
// following a discover→detect-changes→process→embed pipeline shape
// generalized from "files on disk" to "items from any connector".
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/contextharness/ctx/internal/apperr"
	"github.com/contextharness/ctx/internal/chunker"
	"github.com/contextharness/ctx/internal/connector"
	"github.com/contextharness/ctx/internal/embedder"
	"github.com/contextharness/ctx/internal/model"
	"github.com/contextharness/ctx/internal/store"
)

// Result is one sync run's outcome, step 4.
type Result struct {
	Source        string
	Fetched       int
	Upserted      int
	ChunksWritten int
	Skipped       int
	EmbedAttempted int
	EmbedFailed    int
}

// Syncer runs sync operations for configured sources against one store.
type Syncer struct {
	store        *store.Store
	chunker      *chunker.Chunker
	embedService *embedder.Service // nil disables opportunistic embedding
}

// New returns a Syncer. embedService may be nil when embeddings are
// disabled (`disabled` provider).
func New(st *store.Store, ch *chunker.Chunker, embedService *embedder.Service) *Syncer {
	return &Syncer{store: st, chunker: ch, embedService: embedService}
}

// Sync runs one connector's scan to completion against source, writing
// documents/chunks as items arrive. fullSync forces a chunk rebuild even
// for unchanged documents and, on success, prunes documents previously
// seen for this source but absent from this run (prune_on_full_sync
// decision governs whether the caller passes fullSync+prune for a given
// connector type).
//
// Step 1 of the ingest protocol: the source's previously-saved checkpoint
// is loaded and, for an incremental sync, handed to the connector so it
// can narrow its upstream fetch to items changed since that point. A full
// sync passes nil instead, since it must observe the connector's entire
// item set to prune documents no longer present upstream.
//
// Per failure semantics: on a connector error mid-run, the
// checkpoint is NOT saved, so the next run resumes from the last good
// checkpoint; the partial writes already durable in the store stay as-is.
func (sy *Syncer) Sync(ctx context.Context, source string, conn connector.Connector, fullSync, prune bool, progress Progress) (*Result, error) {
	if progress == nil {
		progress = NoOpProgress{}
	}
	progress.OnDiscoveryStart(source)

	existing, err := sy.store.LoadCheckpoint(source)
	if err != nil {
		err = apperr.E(apperr.Internal, "load checkpoint", err)
		progress.OnError(source, err)
		return nil, err
	}

	var scanSince *model.Checkpoint
	if !fullSync {
		scanSince = existing
	}

	items, errCh := conn.Scan(ctx, scanSince)

	result := &Result{Source: source}
	seenDocIDs := map[string]bool{}
	n := 0

	// maxUpdatedAt tracks the checkpoint invariant (§8 invariant 4): the
	// max item UpdatedAt observed this run, seeded from the prior
	// checkpoint so it only ever advances.
	var maxUpdatedAt time.Time
	if existing != nil {
		maxUpdatedAt = existing.LastSyncedAt
	}

	for item := range items {
		n++
		progress.OnItem(source, n, 0)
		result.Fetched++

		if item.UpdatedAt != nil && item.UpdatedAt.After(maxUpdatedAt) {
			maxUpdatedAt = *item.UpdatedAt
		}

		doc := documentFromItem(source, item)
		docID, bodyChanged, err := sy.store.UpsertDocument(doc)
		if err != nil {
			err = apperr.E(apperr.SourceFailed, fmt.Sprintf("upsert document %s", item.SourceID), err)
			progress.OnError(source, err)
			return result, err
		}
		result.Upserted++
		seenDocIDs[docID] = true

		if bodyChanged || fullSync {
			chunks := sy.chunker.Chunk(doc.Body)
			if err := sy.store.ReplaceChunks(docID, chunks); err != nil {
				err = apperr.E(apperr.SourceFailed, fmt.Sprintf("replace chunks for %s", item.SourceID), err)
				progress.OnError(source, err)
				return result, err
			}
			result.ChunksWritten += len(chunks)
		}
	}

	if err := <-errCh; err != nil {
		wrapped := apperr.E(apperr.SourceFailed, fmt.Sprintf("scan source %s", source), err)
		progress.OnError(source, wrapped)
		return result, wrapped
	}

	if sy.embedService != nil {
		embedRes, err := sy.embedService.EmbedPending(ctx, -1, nil)
		if err != nil {
			progress.OnError(source, err)
			return result, err
		}
		result.EmbedAttempted = embedRes.Attempted
		result.EmbedFailed = embedRes.Failed
	}

	if prune {
		pruned, err := sy.store.PruneDocuments(source, seenDocIDs)
		if err != nil {
			err = apperr.E(apperr.SourceFailed, "prune stale documents", err)
			progress.OnError(source, err)
			return result, err
		}
		result.Skipped = pruned
	}

	// No item carried an UpdatedAt and this source has never synced
	// before: fall back to wall-clock time so the checkpoint still
	// advances past "never synced".
	if maxUpdatedAt.IsZero() {
		maxUpdatedAt = time.Now()
	}

	cursor := ""
	if existing != nil {
		cursor = existing.Cursor
	}
	if err := sy.store.SaveCheckpoint(&model.Checkpoint{Source: source, LastSyncedAt: maxUpdatedAt, Cursor: cursor}); err != nil {
		err = apperr.E(apperr.Internal, "save checkpoint", err)
		progress.OnError(source, err)
		return result, err
	}

	progress.OnComplete(source, result)
	return result, nil
}

func documentFromItem(source string, item model.SourceItem) *model.Document {
	return &model.Document{
		Source:      source,
		SourceID:    item.SourceID,
		Title:       item.Title,
		Body:        item.Body,
		SourceURL:   item.SourceURL,
		ContentType: item.ContentType,
		Author:      item.Author,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		Metadata:    item.Metadata,
	}
}
