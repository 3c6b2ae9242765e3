package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidProvider indicates an unsupported embedding provider.
	ErrInvalidProvider = errors.New("invalid embedding provider")

	// ErrInvalidChunking indicates invalid chunking configuration.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidRetrieval indicates invalid retrieval configuration.
	ErrInvalidRetrieval = errors.New("invalid retrieval configuration")

	// ErrEmptyField indicates a required field was left empty.
	ErrEmptyField = errors.New("required field is empty")

	// ErrInvalidConnector indicates a misconfigured connector instance.
	ErrInvalidConnector = errors.New("invalid connector configuration")

	// ErrInvalidScript indicates a misconfigured script tool/agent/connector.
	ErrInvalidScript = errors.New("invalid script configuration")
)

var validEmbeddingProviders = map[string]bool{
	"disabled": true,
	"openai":   true,
	"ollama":   true,
	"local":    true,
}

// Validate checks that the configuration is complete and internally
// consistent, accumulating every violation rather than stopping at the
// first one.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateDB(&cfg.DB); err != nil {
		errs = append(errs, err)
	}
	if err := validateChunking(&cfg.Chunking); err != nil {
		errs = append(errs, err)
	}
	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if err := validateRetrieval(&cfg.Retrieval); err != nil {
		errs = append(errs, err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		errs = append(errs, err)
	}
	if err := validateConnectors(&cfg.Connectors); err != nil {
		errs = append(errs, err)
	}
	if err := validateTools(&cfg.Tools); err != nil {
		errs = append(errs, err)
	}
	if err := validateAgents(&cfg.Agents); err != nil {
		errs = append(errs, err)
	}
	if err := validateRegistries(cfg.Registries); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateDB(cfg *DBConfig) error {
	if strings.TrimSpace(cfg.Path) == "" {
		return fmt.Errorf("%w: db.path is required", ErrEmptyField)
	}
	return nil
}

func validateChunking(cfg *ChunkingConfig) error {
	var errs []error
	if cfg.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("%w: chunking.max_tokens must be positive, got %d", ErrInvalidChunking, cfg.MaxTokens))
	}
	if cfg.OverlapTokens < 0 {
		errs = append(errs, fmt.Errorf("%w: chunking.overlap_tokens cannot be negative, got %d", ErrInvalidChunking, cfg.OverlapTokens))
	}
	if cfg.MaxTokens > 0 && cfg.OverlapTokens >= cfg.MaxTokens {
		errs = append(errs, fmt.Errorf("%w: chunking.overlap_tokens (%d) must be less than chunking.max_tokens (%d)", ErrInvalidChunking, cfg.OverlapTokens, cfg.MaxTokens))
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if !validEmbeddingProviders[provider] {
		errs = append(errs, fmt.Errorf("%w: must be one of disabled|openai|ollama|local, got %q", ErrInvalidProvider, cfg.Provider))
	}

	if provider != "" && provider != "disabled" {
		if strings.TrimSpace(cfg.Model) == "" {
			errs = append(errs, fmt.Errorf("%w: embedding.model is required when provider is %q", ErrEmptyField, provider))
		}
		if cfg.Dims <= 0 {
			errs = append(errs, fmt.Errorf("%w: embedding.dims must be positive when provider is %q, got %d", ErrInvalidProvider, provider, cfg.Dims))
		}
	}
	if provider == "openai" || provider == "ollama" {
		if strings.TrimSpace(cfg.URL) == "" {
			errs = append(errs, fmt.Errorf("%w: embedding.url is required when provider is %q", ErrEmptyField, provider))
		}
	}
	if cfg.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("%w: embedding.batch_size cannot be negative, got %d", ErrInvalidProvider, cfg.BatchSize))
	}
	if cfg.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("%w: embedding.max_retries cannot be negative, got %d", ErrInvalidProvider, cfg.MaxRetries))
	}
	if cfg.TimeoutSec < 0 {
		errs = append(errs, fmt.Errorf("%w: embedding.timeout_secs cannot be negative, got %d", ErrInvalidProvider, cfg.TimeoutSec))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateRetrieval(cfg *RetrievalConfig) error {
	var errs []error

	if cfg.FinalLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.final_limit must be positive, got %d", ErrInvalidRetrieval, cfg.FinalLimit))
	}
	if cfg.HybridAlpha < 0 || cfg.HybridAlpha > 1 {
		errs = append(errs, fmt.Errorf("%w: retrieval.hybrid_alpha must be in [0,1], got %v", ErrInvalidRetrieval, cfg.HybridAlpha))
	}
	if cfg.CandidateKKeyword < 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.candidate_k_keyword cannot be negative, got %d", ErrInvalidRetrieval, cfg.CandidateKKeyword))
	}
	if cfg.CandidateKVector < 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.candidate_k_vector cannot be negative, got %d", ErrInvalidRetrieval, cfg.CandidateKVector))
	}
	if cfg.GroupBy != "" && cfg.GroupBy != "document" {
		errs = append(errs, fmt.Errorf("%w: retrieval.group_by must be empty or \"document\", got %q", ErrInvalidRetrieval, cfg.GroupBy))
	}
	if cfg.DocAgg != "max" {
		errs = append(errs, fmt.Errorf("%w: retrieval.doc_agg only supports \"max\", got %q", ErrInvalidRetrieval, cfg.DocAgg))
	}
	if cfg.MaxChunksPerDoc < 0 {
		errs = append(errs, fmt.Errorf("%w: retrieval.max_chunks_per_doc cannot be negative, got %d", ErrInvalidRetrieval, cfg.MaxChunksPerDoc))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if strings.TrimSpace(cfg.Bind) == "" {
		return fmt.Errorf("%w: server.bind is required", ErrEmptyField)
	}
	return nil
}

func validateConnectors(cfg *ConnectorsConfig) error {
	var errs []error

	for name, fc := range cfg.Filesystem {
		if strings.TrimSpace(fc.Root) == "" {
			errs = append(errs, fmt.Errorf("%w: connectors.filesystem.%s.root is required", ErrInvalidConnector, name))
		}
	}
	for name, gc := range cfg.Git {
		if strings.TrimSpace(gc.URL) == "" {
			errs = append(errs, fmt.Errorf("%w: connectors.git.%s.url is required", ErrInvalidConnector, name))
		}
		if strings.TrimSpace(gc.CacheDir) == "" {
			errs = append(errs, fmt.Errorf("%w: connectors.git.%s.cache_dir is required", ErrInvalidConnector, name))
		}
	}
	for name, sc := range cfg.S3 {
		if strings.TrimSpace(sc.Bucket) == "" {
			errs = append(errs, fmt.Errorf("%w: connectors.s3.%s.bucket is required", ErrInvalidConnector, name))
		}
	}
	for name, scc := range cfg.Script {
		if strings.TrimSpace(scc.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: connectors.script.%s.path is required", ErrInvalidScript, name))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateTools(cfg *ToolsConfig) error {
	var errs []error
	for name, tc := range cfg.Script {
		if strings.TrimSpace(tc.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: tools.script.%s.path is required", ErrInvalidScript, name))
		}
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateAgents(cfg *AgentsConfig) error {
	var errs []error
	for name, ic := range cfg.Inline {
		if strings.TrimSpace(ic.SystemPrompt) == "" {
			errs = append(errs, fmt.Errorf("%w: agents.inline.%s.system_prompt is required", ErrEmptyField, name))
		}
	}
	for name, ac := range cfg.Script {
		if strings.TrimSpace(ac.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: agents.script.%s.path is required", ErrInvalidScript, name))
		}
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateRegistries(regs map[string]RegistryConfig) error {
	var errs []error
	for name, rc := range regs {
		if strings.TrimSpace(rc.URL) == "" && strings.TrimSpace(rc.Path) == "" {
			errs = append(errs, fmt.Errorf("%w: registries.%s requires either url or path", ErrEmptyField, name))
		}
	}
	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
