package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Tokenizer.Separator == "" {
		cfg.Tokenizer.Separator = " "
	}
	if cfg.Correction.RejectionThreshold == 0 {
		cfg.Correction.RejectionThreshold = 0.5
	}
	if cfg.Correction.VocabularySnap.Enabled && cfg.Correction.VocabularySnap.Threshold == 0 {
		cfg.Correction.VocabularySnap.Threshold = 0.85
	}
	if cfg.Corpus.Source == "" {
		cfg.Corpus.Source = SourceFile
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Tokenizer.Separator == "" {
		errs = append(errs, fmt.Errorf("tokenizer.separator must not be empty"))
	}

	if cfg.Correction.RejectionThreshold <= 0 {
		errs = append(errs, fmt.Errorf("correction.rejection_threshold %v is out of range (must be > 0)", cfg.Correction.RejectionThreshold))
	}
	if cfg.Correction.RejectionThreshold > 1 {
		slog.Warn("correction.rejection_threshold above 1 accepts every reference, corrections may be aggressive",
			"threshold", cfg.Correction.RejectionThreshold,
		)
	}
	if cfg.Correction.Workers < 0 {
		errs = append(errs, fmt.Errorf("correction.workers %d is out of range (must be >= 0)", cfg.Correction.Workers))
	}
	if snap := cfg.Correction.VocabularySnap; snap.Enabled {
		if snap.Threshold <= 0 || snap.Threshold > 1 {
			errs = append(errs, fmt.Errorf("correction.vocabulary_snap.threshold %v is out of range (0, 1]", snap.Threshold))
		}
	}

	if !cfg.Corpus.Source.IsValid() {
		errs = append(errs, fmt.Errorf("corpus.source %q is invalid; valid values: file, postgres", cfg.Corpus.Source))
	}
	if cfg.Corpus.Source == SourceFile && cfg.Corpus.Path == "" {
		errs = append(errs, fmt.Errorf("corpus.path is required when corpus.source is file"))
	}
	if cfg.Corpus.Source == SourcePostgres && cfg.Corpus.PostgresDSN == "" {
		errs = append(errs, fmt.Errorf("corpus.postgres_dsn is required when corpus.source is postgres"))
	}

	return errors.Join(errs...)
}
