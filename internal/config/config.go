// Package config provides the configuration schema, loader, and validation
// for the retell correction service.
package config

// LogLevel controls log verbosity for the retell server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// CorpusSource selects where the corpus snapshot is loaded from.
type CorpusSource string

const (
	// SourceFile loads the snapshot from a YAML file on disk.
	SourceFile CorpusSource = "file"

	// SourcePostgres loads the snapshot from a PostgreSQL database.
	SourcePostgres CorpusSource = "postgres"
)

// IsValid reports whether s is a recognised corpus source.
func (s CorpusSource) IsValid() bool {
	return s == SourceFile || s == SourcePostgres
}

// Config is the root configuration structure for retell.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tokenizer  TokenizerConfig  `yaml:"tokenizer"`
	Correction CorrectionConfig `yaml:"correction"`
	Corpus     CorpusConfig     `yaml:"corpus"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g. ":8080").
	// When empty, the server is not started and hypotheses are read from
	// stdin instead.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// TokenizerConfig configures hypothesis and reference normalization.
type TokenizerConfig struct {
	// Separator is the word separator. Must not be empty. Default: " ".
	Separator string `yaml:"separator"`

	// Punctuation lists the characters replaced by the separator. When
	// empty, the built-in default set is used.
	Punctuation string `yaml:"punctuation"`

	// KeepPunctuation disables the punctuation substitution pass.
	KeepPunctuation bool `yaml:"keep_punctuation"`

	// Lowercase makes tokenization case-insensitive by lowercasing every
	// token.
	Lowercase bool `yaml:"lowercase"`
}

// CorrectionConfig tunes the correction orchestrator.
type CorrectionConfig struct {
	// RejectionThreshold is the normalized edit distance above which the
	// hypothesis is returned unchanged. Default: 0.5.
	RejectionThreshold float64 `yaml:"rejection_threshold"`

	// Workers is the number of goroutines scanning the corpus in parallel.
	// Zero means one worker per available CPU.
	Workers int `yaml:"workers"`

	// VocabularySnap configures the optional final snap stage.
	VocabularySnap VocabularySnapConfig `yaml:"vocabulary_snap"`

	// AuditLog is a file path; when set, every correction outcome is
	// appended there as a JSON line. Empty disables the log.
	AuditLog string `yaml:"audit_log"`
}

// VocabularySnapConfig controls the optional stage that replaces residual
// out-of-vocabulary tokens with their closest vocabulary word.
type VocabularySnapConfig struct {
	// Enabled turns the stage on.
	Enabled bool `yaml:"enabled"`

	// Threshold is the minimum Jaro-Winkler similarity required for a snap,
	// in (0, 1]. Default when enabled: 0.85.
	Threshold float64 `yaml:"threshold"`
}

// CorpusConfig selects and configures the corpus snapshot store.
type CorpusConfig struct {
	// Source selects the store kind: "file" or "postgres".
	Source CorpusSource `yaml:"source"`

	// Path is the snapshot YAML file, required when Source is "file".
	Path string `yaml:"path"`

	// PostgresDSN is the database connection string, required when Source
	// is "postgres".
	PostgresDSN string `yaml:"postgres_dsn"`

	// Name is the corpus name to load from the store. Stores may hold more
	// than one corpus; the file store ignores this field.
	Name string `yaml:"name"`
}
