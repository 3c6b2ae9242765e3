package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLocalRepo creates a throwaway git repository on disk with one commit,
// used as a clone source so the connector test never touches the network.
func newLocalRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Hello\n\nrepo body"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Unix(0, 0)},
	})
	require.NoError(t, err)

	return dir
}

func TestScan_ClonesThenWalksWorktree(t *testing.T) {
	t.Parallel()

	src := newLocalRepo(t)
	cacheDir := filepath.Join(t.TempDir(), "clone")

	conn, err := New(Config{
		URL:          src,
		CacheDir:     cacheDir,
		IncludeGlobs: []string{"**/*.md"},
	})
	require.NoError(t, err)

	items, errCh := conn.Scan(context.Background(), nil)
	var found bool
	for item := range items {
		found = true
		assert.Equal(t, "README.md", item.SourceID)
		assert.Contains(t, item.Body, "repo body")
	}
	require.NoError(t, <-errCh)
	assert.True(t, found)
}

func TestNew_RequiresURLAndCacheDir(t *testing.T) {
	t.Parallel()

	_, err := New(Config{CacheDir: "/tmp/x"})
	assert.Error(t, err)

	_, err = New(Config{URL: "https://example.com/repo.git"})
	assert.Error(t, err)
}
