// Package filesystem implements the filesystem connector : it walks a
// root directory under include/exclude glob patterns, following the
// teacher's internal/indexer/discovery.go pattern (gobwas/glob compiled
// once, filepath.Walk with relative-path matching), and yields one
// model.SourceItem per matched file. Files in a registered binary format
// are routed through internal/connector/extract; everything else is read
// as UTF-8 text. Files over MaxExtractBytes are skipped and counted.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/contextharness/ctx/internal/connector/extract"
	"github.com/contextharness/ctx/internal/model"
)

// Config is one filesystem connector instance's configuration, .
type Config struct {
	Root            string
	IncludeGlobs    []string
	ExcludeGlobs    []string
	FollowSymlinks  bool
	MaxExtractBytes int64
}

const defaultMaxExtractBytes = 20 * 1024 * 1024

// Connector walks Config.Root and emits a SourceItem per matched file.
type Connector struct {
	root            string
	includePatterns []glob.Glob
	excludePatterns []glob.Glob
	followSymlinks  bool
	maxExtractBytes int64

	// Skipped records files skipped for exceeding MaxExtractBytes or failing
	// to read or extract, keyed by relative path with the reason as value;
	// complete once Scan's item channel is drained.
	Skipped map[string]string
}

// New compiles Config's glob patterns and returns a ready Connector.
func New(cfg Config) (*Connector, error) {
	c := &Connector{
		root:            cfg.Root,
		followSymlinks:  cfg.FollowSymlinks,
		maxExtractBytes: cfg.MaxExtractBytes,
		Skipped:         map[string]string{},
	}
	if c.maxExtractBytes <= 0 {
		c.maxExtractBytes = defaultMaxExtractBytes
	}

	for _, pattern := range cfg.IncludeGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile include glob %q: %w", pattern, err)
		}
		c.includePatterns = append(c.includePatterns, g)
	}
	for _, pattern := range cfg.ExcludeGlobs {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude glob %q: %w", pattern, err)
		}
		c.excludePatterns = append(c.excludePatterns, g)
	}
	return c, nil
}

// Scan walks the root directory and emits one SourceItem per matched,
// readable file. It returns promptly on ctx cancellation. When since is
// non-nil, files whose mtime is not after since.LastSyncedAt are skipped
// without being read, narrowing the walk to changed files per the
// connector contract.
func (c *Connector) Scan(ctx context.Context, since *model.Checkpoint) (<-chan model.SourceItem, <-chan error) {
	items := make(chan model.SourceItem)
	errCh := make(chan error, 1)

	go func() {
		defer close(items)
		defer close(errCh)

		walkFn := func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if info.IsDir() {
				return nil
			}
			if !c.followSymlinks && info.Mode()&os.ModeSymlink != 0 {
				return nil
			}

			relPath, err := filepath.Rel(c.root, path)
			if err != nil {
				return err
			}
			relPath = filepath.ToSlash(relPath)

			if c.shouldExclude(relPath) {
				return nil
			}
			if len(c.includePatterns) > 0 && !c.matchesAny(relPath, c.includePatterns) {
				return nil
			}

			if since != nil && !info.ModTime().After(since.LastSyncedAt) {
				return nil
			}

			if info.Size() > c.maxExtractBytes {
				c.Skipped[relPath] = "exceeds max_extract_bytes"
				return nil
			}

			item, ok, err := c.buildItem(path, relPath, info)
			if err != nil {
				c.Skipped[relPath] = err.Error()
				return nil
			}
			if !ok {
				return nil
			}

			select {
			case items <- item:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		}

		if err := filepath.Walk(c.root, walkFn); err != nil {
			errCh <- err
		}
	}()

	return items, errCh
}

func (c *Connector) buildItem(path, relPath string, info os.FileInfo) (model.SourceItem, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.SourceItem{}, false, fmt.Errorf("read %s: %w", relPath, err)
	}

	ext := strings.TrimPrefix(filepath.Ext(relPath), ".")
	var body string
	if kind := extract.KindForExtension(ext); kind != "" {
		body, err = extract.Text(kind, raw, "")
		if err != nil {
			return model.SourceItem{}, false, fmt.Errorf("extract %s: %w", relPath, err)
		}
	} else {
		body = string(raw)
	}

	updatedAt := info.ModTime()
	sum := sha256.Sum256(raw)

	item := model.SourceItem{
		SourceID:    relPath,
		Title:       filepath.Base(relPath),
		Body:        body,
		SourceURL:   "file://" + path,
		ContentType: contentTypeFor(ext),
		UpdatedAt:   &updatedAt,
		Metadata: map[string]string{
			"path":      relPath,
			"sha256":    hex.EncodeToString(sum[:]),
			"extension": ext,
		},
	}
	return item, true, nil
}

func (c *Connector) shouldExclude(relPath string) bool {
	if c.matchesAny(relPath, c.excludePatterns) {
		return true
	}
	return c.matchesAny(relPath+"/**", c.excludePatterns)
}

func (c *Connector) matchesAny(path string, patterns []glob.Glob) bool {
	for _, p := range patterns {
		if p.Match(path) {
			return true
		}
	}
	return false
}

func contentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case "md", "markdown":
		return "text/markdown"
	case "html", "htm":
		return "text/html"
	case "pdf":
		return "application/pdf"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "json":
		return "application/json"
	default:
		return "text/plain"
	}
}
