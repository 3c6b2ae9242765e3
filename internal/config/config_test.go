package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "./ctx.db", cfg.DB.Path)
	assert.Equal(t, "disabled", cfg.Embedding.Provider)
	assert.Equal(t, 400, cfg.Chunking.MaxTokens)
	assert.Equal(t, 40, cfg.Chunking.OverlapTokens)
	assert.Equal(t, "max", cfg.Retrieval.DocAgg)
	assert.Equal(t, "127.0.0.1:8420", cfg.Server.Bind)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	expected := Default()
	assert.Equal(t, expected.DB.Path, cfg.DB.Path)
	assert.Equal(t, expected.Embedding.Provider, cfg.Embedding.Provider)
	assert.Equal(t, expected.Retrieval.FinalLimit, cfg.Retrieval.FinalLimit)
}

func TestLoad_LoadsFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.toml")

	content := `
[db]
path = "./data/ctx.db"

[embedding]
provider = "openai"
model = "text-embedding-3-small"
dims = 1536
url = "https://api.openai.com/v1/embeddings"

[retrieval]
final_limit = 20
hybrid_alpha = 0.7

[connectors.filesystem.docs]
root = "./docs"
include_globs = ["**/*.md"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "./data/ctx.db", cfg.DB.Path)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dims)
	assert.Equal(t, 20, cfg.Retrieval.FinalLimit)
	assert.Equal(t, 0.7, cfg.Retrieval.HybridAlpha)

	require.Contains(t, cfg.Connectors.Filesystem, "docs")
	assert.Equal(t, "./docs", cfg.Connectors.Filesystem["docs"].Root)
	assert.Equal(t, []string{"**/*.md"}, cfg.Connectors.Filesystem["docs"].IncludeGlobs)

	// Unset fields should fall back to defaults.
	assert.Equal(t, 400, cfg.Chunking.MaxTokens)
}

func TestLoad_EnvironmentVariablesOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.toml")

	content := `
[embedding]
provider = "ollama"
model = "file-model"
dims = 768
url = "http://localhost:11434/api/embeddings"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("CTX_EMBEDDING_PROVIDER", "openai")
	t.Setenv("CTX_EMBEDDING_MODEL", "env-model")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "env-model", cfg.Embedding.Model)
}

func TestLoad_ExpandsEnvVarsInScriptConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.toml")

	content := `
[tools.script.weather]
path = "./tools/weather.js"
api_key = "${TEST_WEATHER_KEY}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TEST_WEATHER_KEY", "secret-123")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Tools.Script, "weather")
	assert.Equal(t, "secret-123", cfg.Tools.Script["weather"].Extra["api_key"])
}

func TestLoad_ReturnsErrorForInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.toml")

	content := `
[embedding]
provider = "not-a-real-provider"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidate_AcceptsValidConfiguration(t *testing.T) {
	cfg := Default()
	assert.NoError(t, Validate(cfg))
}

func TestValidate_RejectsInvalidProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "unsupported"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProvider)
}

func TestValidate_RejectsMissingModelForActiveProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "openai"
	cfg.Embedding.URL = "https://api.openai.com/v1/embeddings"
	cfg.Embedding.Dims = 1536

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyField)
}

func TestValidate_RejectsZeroMaxTokens(t *testing.T) {
	cfg := Default()
	cfg.Chunking.MaxTokens = 0

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestValidate_RejectsOverlapGreaterThanMaxTokens(t *testing.T) {
	cfg := Default()
	cfg.Chunking.MaxTokens = 100
	cfg.Chunking.OverlapTokens = 200

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}

func TestValidate_RejectsOutOfRangeHybridAlpha(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.HybridAlpha = 1.5

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRetrieval)
}

func TestValidate_RejectsUnsupportedDocAgg(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.DocAgg = "mean"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRetrieval)
}

func TestValidate_RejectsGitConnectorMissingURL(t *testing.T) {
	cfg := Default()
	cfg.Connectors.Git = map[string]GitConnectorConfig{
		"repo": {CacheDir: "/tmp/cache"},
	}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConnector)
}

func TestValidate_RejectsScriptToolMissingPath(t *testing.T) {
	cfg := Default()
	cfg.Tools.Script = map[string]ScriptToolConfig{
		"weather": {},
	}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidScript)
}

func TestValidate_RejectsRegistryMissingURLAndPath(t *testing.T) {
	cfg := Default()
	cfg.Registries = map[string]RegistryConfig{
		"community": {},
	}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyField)
}

func TestValidate_ReturnsMultipleErrorsForMultipleInvalidFields(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "invalid"
	cfg.Chunking.MaxTokens = -1
	cfg.Chunking.OverlapTokens = -1
	cfg.Retrieval.HybridAlpha = 5
	cfg.Server.Bind = ""

	err := Validate(cfg)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "embedding")
	assert.Contains(t, msg, "chunking")
	assert.Contains(t, msg, "retrieval")
	assert.Contains(t, msg, "server")
}
