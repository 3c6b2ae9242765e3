// Package config loads and validates Context Harness's TOML configuration
// file, following a Default()/Validate()/Loader split, using viper for
// TOML parsing and mapstructure for decoding.
package config

// Config is the top-level shape of `ctx.toml`.
type Config struct {
	DB         DBConfig                  `mapstructure:"db"`
	Chunking   ChunkingConfig            `mapstructure:"chunking"`
	Embedding  EmbeddingConfig           `mapstructure:"embedding"`
	Retrieval  RetrievalConfig           `mapstructure:"retrieval"`
	Server     ServerConfig              `mapstructure:"server"`
	Connectors ConnectorsConfig          `mapstructure:"connectors"`
	Tools      ToolsConfig               `mapstructure:"tools"`
	Agents     AgentsConfig              `mapstructure:"agents"`
	Registries map[string]RegistryConfig `mapstructure:"registries"`
}

// DBConfig is `[db]`.
type DBConfig struct {
	Path string `mapstructure:"path"`
}

// ChunkingConfig is `[chunking]`.
type ChunkingConfig struct {
	MaxTokens     int `mapstructure:"max_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens"`
}

// EmbeddingConfig is `[embedding]`.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // disabled|openai|ollama|local
	Model      string `mapstructure:"model"`
	Dims       int    `mapstructure:"dims"`
	BatchSize  int    `mapstructure:"batch_size"`
	MaxRetries int    `mapstructure:"max_retries"`
	TimeoutSec int    `mapstructure:"timeout_secs"`
	URL        string `mapstructure:"url"`
}

// RetrievalConfig is `[retrieval]`.
type RetrievalConfig struct {
	FinalLimit        int     `mapstructure:"final_limit"`
	HybridAlpha       float64 `mapstructure:"hybrid_alpha"`
	CandidateKKeyword int     `mapstructure:"candidate_k_keyword"`
	CandidateKVector  int     `mapstructure:"candidate_k_vector"`
	GroupBy           string  `mapstructure:"group_by"`
	DocAgg            string  `mapstructure:"doc_agg"`
	MaxChunksPerDoc   int     `mapstructure:"max_chunks_per_doc"`
}

// ServerConfig is `[server]`.
type ServerConfig struct {
	Bind string `mapstructure:"bind"`
}

// ConnectorsConfig groups every `[connectors.<type>.<name>]` table by
// connector type.
type ConnectorsConfig struct {
	Filesystem map[string]FilesystemConnectorConfig `mapstructure:"filesystem"`
	Git        map[string]GitConnectorConfig        `mapstructure:"git"`
	S3         map[string]S3ConnectorConfig         `mapstructure:"s3"`
	Script     map[string]ScriptConnectorConfig     `mapstructure:"script"`
}

// FilesystemConnectorConfig is one `[connectors.filesystem.<name>]` table.
type FilesystemConnectorConfig struct {
	Root            string   `mapstructure:"root"`
	IncludeGlobs    []string `mapstructure:"include_globs"`
	ExcludeGlobs    []string `mapstructure:"exclude_globs"`
	FollowSymlinks  bool     `mapstructure:"follow_symlinks"`
	MaxExtractBytes int64    `mapstructure:"max_extract_bytes"`
	PruneOnFullSync bool     `mapstructure:"prune_on_full_sync"`
}

// GitConnectorConfig is one `[connectors.git.<name>]` table.
type GitConnectorConfig struct {
	URL             string   `mapstructure:"url"`
	Branch          string   `mapstructure:"branch"`
	Root            string   `mapstructure:"root"`
	IncludeGlobs    []string `mapstructure:"include_globs"`
	Shallow         bool     `mapstructure:"shallow"`
	CacheDir        string   `mapstructure:"cache_dir"`
	PruneOnFullSync bool     `mapstructure:"prune_on_full_sync"`
}

// S3ConnectorConfig is one `[connectors.s3.<name>]` table.
type S3ConnectorConfig struct {
	Bucket          string   `mapstructure:"bucket"`
	Prefix          string   `mapstructure:"prefix"`
	Region          string   `mapstructure:"region"`
	IncludeGlobs    []string `mapstructure:"include_globs"`
	EndpointURL     string   `mapstructure:"endpoint_url"`
	PruneOnFullSync bool     `mapstructure:"prune_on_full_sync"`
}

// ScriptConnectorConfig is one `[connectors.script.<name>]` table. Extra
// keys beyond path/timeout/prune_on_full_sync become the script's own
// `${ENV_VAR}`-expanded instance config, captured in Extra.
type ScriptConnectorConfig struct {
	Path            string            `mapstructure:"path"`
	Timeout         int               `mapstructure:"timeout"`
	PruneOnFullSync bool              `mapstructure:"prune_on_full_sync"`
	Extra           map[string]string `mapstructure:",remain"`
}

// ToolsConfig is `[tools.script.<name>]`.
type ToolsConfig struct {
	Script map[string]ScriptToolConfig `mapstructure:"script"`
}

// ScriptToolConfig is one scripted tool instance's config.
type ScriptToolConfig struct {
	Path    string            `mapstructure:"path"`
	Timeout int               `mapstructure:"timeout"`
	Extra   map[string]string `mapstructure:",remain"`
}

// AgentsConfig groups `[agents.inline.<name>]` and `[agents.script.<name>]`.
type AgentsConfig struct {
	Inline map[string]InlineAgentConfig `mapstructure:"inline"`
	Script map[string]ScriptAgentConfig `mapstructure:"script"`
}

// InlineAgentConfig is one static `[agents.inline.<name>]` table.
type InlineAgentConfig struct {
	Description  string   `mapstructure:"description"`
	Tools        []string `mapstructure:"tools"`
	SystemPrompt string   `mapstructure:"system_prompt"`
}

// ScriptAgentConfig is one dynamic `[agents.script.<name>]` table.
type ScriptAgentConfig struct {
	Path    string            `mapstructure:"path"`
	Timeout int               `mapstructure:"timeout"`
	Extra   map[string]string `mapstructure:",remain"`
}

// RegistryConfig is one `[registries.<name>]` table.
type RegistryConfig struct {
	URL        string `mapstructure:"url"`
	Branch     string `mapstructure:"branch"`
	Path       string `mapstructure:"path"`
	ReadOnly   bool   `mapstructure:"readonly"`
	AutoUpdate bool   `mapstructure:"auto_update"`
}

// Default returns a configuration with the defaults implied by : a local
// SQLite store, embeddings disabled until a provider is configured, and the
// hybrid-retrieval knobs set to the values used throughout worked
// examples.
func Default() *Config {
	return &Config{
		DB: DBConfig{Path: "./ctx.db"},
		Chunking: ChunkingConfig{
			MaxTokens:     400,
			OverlapTokens: 40,
		},
		Embedding: EmbeddingConfig{
			Provider:   "disabled",
			BatchSize:  32,
			MaxRetries: 3,
			TimeoutSec: 30,
		},
		Retrieval: RetrievalConfig{
			FinalLimit:        10,
			HybridAlpha:       0.5,
			CandidateKKeyword: 50,
			CandidateKVector:  50,
			GroupBy:           "",
			DocAgg:            "max",
			MaxChunksPerDoc:   3,
		},
		Server: ServerConfig{Bind: "127.0.0.1:8420"},
	}
}
