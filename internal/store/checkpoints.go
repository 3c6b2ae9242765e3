package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/contextharness/ctx/internal/model"
)

// LoadCheckpoint fetches the saved sync checkpoint for a source, or
// (nil, nil) when this source has never completed a sync.
func (s *Store) LoadCheckpoint(source string) (*model.Checkpoint, error) {
	row := s.db.QueryRow(`SELECT source, last_synced_at, cursor FROM checkpoints WHERE source = ?`, source)
	var (
		cp         model.Checkpoint
		lastSynced string
		cursor     sql.NullString
	)
	err := row.Scan(&cp.Source, &lastSynced, &cursor)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, lastSynced)
	if err != nil {
		return nil, fmt.Errorf("parse checkpoint timestamp: %w", err)
	}
	cp.LastSyncedAt = t
	cp.Cursor = cursor.String
	return &cp, nil
}

// SaveCheckpoint persists the sync progress marker for a source.
func (s *Store) SaveCheckpoint(cp *model.Checkpoint) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO checkpoints (source, last_synced_at, cursor)
			VALUES (?, ?, ?)
			ON CONFLICT(source) DO UPDATE SET
				last_synced_at = excluded.last_synced_at,
				cursor = excluded.cursor
		`, cp.Source, cp.LastSyncedAt.UTC().Format(time.RFC3339Nano), cp.Cursor)
		if err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		return nil
	})
}

// DeleteCheckpoint removes a source's checkpoint, forcing its next sync to
// run as a full sync.
func (s *Store) DeleteCheckpoint(source string) error {
	return s.withWriteTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM checkpoints WHERE source = ?`, source); err != nil {
			return fmt.Errorf("delete checkpoint: %w", err)
		}
		return nil
	})
}
