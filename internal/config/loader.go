package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// defaultConfigPath matches CLI default for `--config`.
const defaultConfigPath = "./config/ctx.toml"

// Load reads and validates a TOML configuration file at path (or
// defaultConfigPath when path is empty), merging over Default()'s values
// and applying CTX_*-prefixed environment variable overrides via viper.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("CTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	expandScriptConfigs(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setDefaults seeds viper with Default()'s values so an absent or partial
// config file still produces a fully-populated Config.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("db.path", d.DB.Path)
	v.SetDefault("chunking.max_tokens", d.Chunking.MaxTokens)
	v.SetDefault("chunking.overlap_tokens", d.Chunking.OverlapTokens)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.max_retries", d.Embedding.MaxRetries)
	v.SetDefault("embedding.timeout_secs", d.Embedding.TimeoutSec)
	v.SetDefault("retrieval.final_limit", d.Retrieval.FinalLimit)
	v.SetDefault("retrieval.hybrid_alpha", d.Retrieval.HybridAlpha)
	v.SetDefault("retrieval.candidate_k_keyword", d.Retrieval.CandidateKKeyword)
	v.SetDefault("retrieval.candidate_k_vector", d.Retrieval.CandidateKVector)
	v.SetDefault("retrieval.doc_agg", d.Retrieval.DocAgg)
	v.SetDefault("retrieval.max_chunks_per_doc", d.Retrieval.MaxChunksPerDoc)
	v.SetDefault("server.bind", d.Server.Bind)
}

// expandScriptConfigs applies "string values in script-config sections
// expand ${ENV_VAR} at load time" to every scripted connector/tool/agent's
// Extra instance-config map and its Path field.
func expandScriptConfigs(cfg *Config) {
	for name, sc := range cfg.Connectors.Script {
		sc.Path = os.ExpandEnv(sc.Path)
		sc.Extra = expandMap(sc.Extra)
		cfg.Connectors.Script[name] = sc
	}
	for name, tc := range cfg.Tools.Script {
		tc.Path = os.ExpandEnv(tc.Path)
		tc.Extra = expandMap(tc.Extra)
		cfg.Tools.Script[name] = tc
	}
	for name, ac := range cfg.Agents.Script {
		ac.Path = os.ExpandEnv(ac.Path)
		ac.Extra = expandMap(ac.Extra)
		cfg.Agents.Script[name] = ac
	}
}

func expandMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = os.ExpandEnv(v)
	}
	return out
}
