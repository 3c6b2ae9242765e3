// Package connector defines the source-connector contract /:
// a Scan operation yielding a lazy, finite sequence of SourceItem values for
// one configured connector instance. Concrete connector types live in the
// filesystem, git, s3, and script subpackages.
package connector

import (
	"context"

	"github.com/contextharness/ctx/internal/model"
)

// Connector scans a single configured source instance and yields items one
// at a time on the returned channel. The channel is closed when the scan
// completes; a scan error is sent on errCh (at most one value) and the
// item channel is closed immediately after. Scan must respect ctx
// cancellation promptly — connectors typically run this in their own
// goroutine, reporting progress over a dedicated channel.
//
// since is the source's previously-saved checkpoint ("Used by connectors
// to request 'items changed since X'", data model §3), or nil when the
// caller wants a full rescan (no checkpoint yet, or the sync is an
// explicit full sync). A connector that can cheaply test an item's
// modification time against since SHOULD skip unchanged items instead of
// re-fetching their full body; a connector with no such signal MAY ignore
// since and yield its entire item set — the ingester's upsert/chunk-diff
// step is idempotent either way.
type Connector interface {
	Scan(ctx context.Context, since *model.Checkpoint) (<-chan model.SourceItem, <-chan error)
}

// Type is a registered connector type name (filesystem|git|s3|script),
// used to build the "<type>:<name>" source label .
type Type string

const (
	TypeFilesystem Type = "filesystem"
	TypeGit        Type = "git"
	TypeS3         Type = "s3"
	TypeScript     Type = "script"
)

// Label builds the "<type>:<name>" source label.
func Label(t Type, name string) string {
	return string(t) + ":" + name
}
