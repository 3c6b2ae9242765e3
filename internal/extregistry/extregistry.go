// Package extregistry implements an extension registry: a directory
// (usually a Git working copy) holding a registry.toml manifest plus
// connectors/<name>/, tools/<name>/, agents/<name>/ subdirectories. Catalog
// contents across every configured registry are merged with precedence
// ordering and made searchable via a bleve index.
package extregistry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pelletier/go-toml/v2"

	"github.com/contextharness/ctx/internal/registry"
)

// Kind distinguishes the three extension shapes a registry entry can be.
type Kind string

const (
	KindConnector Kind = "connector"
	KindTool      Kind = "tool"
	KindAgent     Kind = "agent"
)

// Entry is one extension's manifest-declared metadata, merged with its
// owning registry's precedence tier.
type Entry struct {
	Kind        Kind   `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Path        string `json:"-"` // absolute path to the entry's source file
	Registry    string `json:"registry"`
	Precedence  int    `json:"-"`
	ReadOnly    bool   `json:"-"`
}

// manifest is registry.toml's on-disk shape.
type manifestEntry struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	Entry       string `toml:"entry"`
}

type manifest struct {
	Name       string          `toml:"name"`
	Connectors []manifestEntry `toml:"connectors"`
	Tools      []manifestEntry `toml:"tools"`
	Agents     []manifestEntry `toml:"agents"`
}

// Source names one configured registry (`[registries.<name>]`).
type Source struct {
	Name       string
	URL        string // empty for a local-only (non-Git) registry
	Branch     string
	Path       string // local working-copy directory
	ReadOnly   bool
	AutoUpdate bool
	Precedence int
}

// Catalog is the merged, searchable view across every configured registry.
type Catalog struct {
	entries map[string]*Entry // keyed by "<kind>/<name>"
	index   bleve.Index
	sources []Source
}

// entryKey is the catalog's dedup/precedence key.
func entryKey(kind Kind, name string) string { return string(kind) + "/" + name }

// Open loads every source's manifest (cloning/pulling Git-backed ones first
// via EnsureCloned) and builds the merged catalog plus its bleve index.
func Open(ctx context.Context, sources []Source) (*Catalog, error) {
	c := &Catalog{entries: map[string]*Entry{}, sources: sources}
	for _, src := range sources {
		if err := EnsureCloned(ctx, src); err != nil {
			return nil, fmt.Errorf("prepare registry %s: %w", src.Name, err)
		}
		m, err := loadManifest(src.Path)
		if err != nil {
			return nil, fmt.Errorf("load manifest for registry %s: %w", src.Name, err)
		}
		c.mergeManifest(src, m)
	}
	idx, err := buildIndex(c.entries)
	if err != nil {
		return nil, err
	}
	c.index = idx
	return c, nil
}

// Close releases the bleve index.
func (c *Catalog) Close() error {
	if c.index == nil {
		return nil
	}
	return c.index.Close()
}

func loadManifest(dir string) (manifest, error) {
	var m manifest
	path := filepath.Join(dir, "registry.toml")
	body, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, err
	}
	if err := toml.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// mergeManifest folds one registry's declared entries into c.entries,
// keeping the higher-precedence registration on collision .
func (c *Catalog) mergeManifest(src Source, m manifest) {
	add := func(kind Kind, name, desc, entryRel string) {
		key := entryKey(kind, name)
		if existing, ok := c.entries[key]; ok && existing.Precedence >= src.Precedence {
			return
		}
		c.entries[key] = &Entry{
			Kind:        kind,
			Name:        name,
			Description: desc,
			Path:        filepath.Join(src.Path, entryRel),
			Registry:    src.Name,
			Precedence:  src.Precedence,
			ReadOnly:    src.ReadOnly,
		}
	}
	for _, e := range m.Connectors {
		add(KindConnector, e.Name, e.Description, e.Entry)
	}
	for _, e := range m.Tools {
		add(KindTool, e.Name, e.Description, e.Entry)
	}
	for _, e := range m.Agents {
		add(KindAgent, e.Name, e.Description, e.Entry)
	}
}

// List returns every merged entry, optionally restricted to one kind ("" =
// all kinds).
func (c *Catalog) List(kind Kind) []*Entry {
	var out []*Entry
	for _, e := range c.entries {
		if kind != "" && e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Info looks up one entry by kind and name.
func (c *Catalog) Info(kind Kind, name string) (*Entry, bool) {
	e, ok := c.entries[entryKey(kind, name)]
	return e, ok
}

// ToolSources projects the catalog's tool entries into registry.ScriptSource
// values ready for registry.Loader, preserving each entry's registry
// precedence.
func (c *Catalog) ToolSources() []registry.ScriptSource {
	var out []registry.ScriptSource
	for _, e := range c.List(KindTool) {
		out = append(out, registry.ScriptSource{Name: e.Name, Path: e.Path, Precedence: e.Precedence})
	}
	return out
}

// AgentSources projects the catalog's agent entries the same way.
func (c *Catalog) AgentSources() []registry.ScriptSource {
	var out []registry.ScriptSource
	for _, e := range c.List(KindAgent) {
		out = append(out, registry.ScriptSource{Name: e.Name, Path: e.Path, Precedence: e.Precedence})
	}
	return out
}

// EnsureCloned clones a Git-backed registry source into Path if it isn't
// present yet; an existing clone is fast-forward pulled only when
// src.AutoUpdate is set and is otherwise left as is. Sources with an empty URL
// are local-only and are left untouched. Mirrors
// internal/connector/git.Connector.sync's clone-or-pull structure.
func EnsureCloned(ctx context.Context, src Source) error {
	if src.URL == "" {
		return nil
	}
	if _, err := os.Stat(filepath.Join(src.Path, ".git")); errors.Is(err, os.ErrNotExist) {
		return clone(ctx, src)
	}
	if !src.AutoUpdate {
		return nil
	}
	return Update(ctx, src)
}

func clone(ctx context.Context, src Source) error {
	opts := &git.CloneOptions{URL: src.URL}
	if src.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
		opts.SingleBranch = true
	}
	_, err := git.PlainCloneContext(ctx, src.Path, false, opts)
	return err
}

// Update fast-forward pulls a single Git-backed registry, per the `registry
// update` CLI operation.
func Update(ctx context.Context, src Source) error {
	if src.URL == "" {
		return nil
	}
	repo, err := git.PlainOpen(src.Path)
	if err != nil {
		return fmt.Errorf("open registry %s: %w", src.Name, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	opts := &git.PullOptions{}
	if src.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
	}
	if err := wt.PullContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}

// Override copies a read-only registry entry's source file into a writable
// registry path, per the `registry override <type/name>` CLI operation, so
// the caller can edit a local copy without touching the upstream clone.
func Override(e *Entry, writableDir string) (string, error) {
	body, err := os.ReadFile(e.Path)
	if err != nil {
		return "", fmt.Errorf("read entry %s/%s: %w", e.Kind, e.Name, err)
	}
	destDir := filepath.Join(writableDir, string(e.Kind)+"s", e.Name)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(destDir, filepath.Base(e.Path))
	if err := os.WriteFile(dest, body, 0o644); err != nil {
		return "", err
	}
	return dest, nil
}

// Scaffold writes a minimal config stub for a new extension instance of the
// given kind, per the `registry add <kind> <name>` CLI operation.
func Scaffold(kind Kind, name string, configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(configDir, fmt.Sprintf("%s-%s.toml", kind, name))
	stub := fmt.Sprintf("# configuration stub for %s %q\n# fill in required credentials/fields before use\n", kind, name)
	if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
