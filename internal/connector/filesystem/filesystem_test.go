package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contextharness/ctx/internal/model"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_MatchesIncludeAndSkipsExclude(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "docs", "a.md"), "# Hello\n\nWorld.")
	writeFile(t, filepath.Join(root, "docs", "skip.txt"), "ignored extension")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "b.md"), "should be excluded")

	conn, err := New(Config{
		Root:         root,
		IncludeGlobs: []string{"**/*.md"},
		ExcludeGlobs: []string{"node_modules/**"},
	})
	require.NoError(t, err)

	items, errCh := conn.Scan(context.Background(), nil)

	var got []string
	for item := range items {
		got = append(got, item.SourceID)
	}
	require.NoError(t, <-errCh)

	assert.ElementsMatch(t, []string{"docs/a.md"}, got)
}

func TestScan_SkipsFilesOverMaxExtractBytes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "big.md"), "0123456789")

	conn, err := New(Config{
		Root:            root,
		IncludeGlobs:    []string{"**/*.md"},
		MaxExtractBytes: 4,
	})
	require.NoError(t, err)

	items, errCh := conn.Scan(context.Background(), nil)
	for range items {
		t.Fatal("expected no items; oversize file should be skipped")
	}
	require.NoError(t, <-errCh)

	assert.Contains(t, conn.Skipped, "big.md")
}

func TestScan_SinceSkipsUnchangedFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	oldPath := filepath.Join(root, "old.md")
	newPath := filepath.Join(root, "new.md")
	writeFile(t, oldPath, "unchanged")
	writeFile(t, newPath, "changed since checkpoint")

	cutoff := time.Now()
	require.NoError(t, os.Chtimes(oldPath, cutoff.Add(-time.Hour), cutoff.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newPath, cutoff.Add(time.Hour), cutoff.Add(time.Hour)))

	conn, err := New(Config{Root: root, IncludeGlobs: []string{"**/*.md"}})
	require.NoError(t, err)

	items, errCh := conn.Scan(context.Background(), &model.Checkpoint{Source: "filesystem:t", LastSyncedAt: cutoff})
	var got []string
	for item := range items {
		got = append(got, item.SourceID)
	}
	require.NoError(t, <-errCh)

	assert.ElementsMatch(t, []string{"new.md"}, got)
}

func TestScan_EmitsSourceItemsWithMetadata(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "readme.md"), "content body")

	conn, err := New(Config{Root: root, IncludeGlobs: []string{"**/*.md"}})
	require.NoError(t, err)

	items, errCh := conn.Scan(context.Background(), nil)
	var found bool
	for item := range items {
		found = true
		assert.Equal(t, "readme.md", item.SourceID)
		assert.Equal(t, "content body", item.Body)
		assert.NotEmpty(t, item.Metadata["sha256"])
		assert.Equal(t, "md", item.Metadata["extension"])
	}
	require.NoError(t, <-errCh)
	assert.True(t, found)
}
