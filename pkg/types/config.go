package types

import "time"

// Config is the complete daily-curator configuration.
type Config struct {
	Store     StoreConfig     `json:"store" yaml:"store"`
	AI        AIConfig        `json:"ai" yaml:"ai"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Rate      RateConfig      `json:"rate" yaml:"rate"`
	Dedup     DedupConfig     `json:"dedup" yaml:"dedup"`
	Downvote  DownvoteConfig  `json:"downvote" yaml:"downvote"`
	Curator   CuratorConfig   `json:"curator" yaml:"curator"`
	Batch     BatchConfig     `json:"batch" yaml:"batch"`
	Retention RetentionConfig `json:"retention" yaml:"retention"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	Log       LogConfig       `json:"log" yaml:"log"`
}

// StoreConfig holds SQLite settings.
type StoreConfig struct {
	// Path is the database file (default "data/curator.db").
	Path string `json:"path" yaml:"path"`
}

// HTTPConfig holds shared HTTP settings used by the oracle clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 60s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// AIConfig holds settings for the scoring and explanation oracle.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the AI model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// MaxInputTokens bounds the prompt size; article content is truncated
	// to leave 1000 tokens for instructions (default 8000).
	MaxInputTokens int `json:"max_input_tokens" yaml:"max_input_tokens"`
}

// EmbeddingConfig holds settings for the embedding oracle.
type EmbeddingConfig struct {
	HTTPConfig `yaml:",inline"`

	// Model is the embedding model (default "embed-english-v3.0").
	Model string `json:"model" yaml:"model"`

	// APIKey is the embedding provider key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// RateConfig bounds calls to the scoring oracle.
type RateConfig struct {
	// TPMLimit is the provider tokens-per-minute budget (default 30000).
	TPMLimit int `json:"tpm_limit" yaml:"tpm_limit"`

	// MaxConcurrent is the number of simultaneous in-flight calls (default 5).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
}

// DedupConfig holds duplicate detection settings.
type DedupConfig struct {
	// Threshold is the minimum cosine similarity for a duplicate (default 0.85).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// Window is the trailing candidate window (default 24h).
	Window time.Duration `json:"window" yaml:"window"`

	// ReprocessWindow is the default window for bulk reprocessing (default 7 days).
	ReprocessWindow time.Duration `json:"reprocess_window" yaml:"reprocess_window"`
}

// DownvoteConfig holds downvote penalty settings.
type DownvoteConfig struct {
	// MaxPrototypes caps the number of dislike prototypes (default 10).
	MaxPrototypes int `json:"max_prototypes" yaml:"max_prototypes"`

	// Threshold is the similarity above which a penalty applies (default 0.80).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// MaxPenalty caps the score reduction (default 0.4).
	MaxPenalty float64 `json:"max_penalty" yaml:"max_penalty"`

	// RecentScan is how many of the most recent downvotes are scanned to name
	// the most similar downvoted article (default 20).
	RecentScan int `json:"recent_scan" yaml:"recent_scan"`
}

// CuratorConfig holds edition assembly settings.
type CuratorConfig struct {
	// MinScore is the eligibility threshold (default 0.6).
	MinScore float64 `json:"min_score" yaml:"min_score"`

	// Window is the trailing eligibility window (default 24h).
	Window time.Duration `json:"window" yaml:"window"`

	// UncategorizedToday caps uncategorized articles in Today (default 5).
	UncategorizedToday int `json:"uncategorized_today" yaml:"uncategorized_today"`

	// Timezone names the location that defines calendar dates (default "Local").
	Timezone string `json:"timezone" yaml:"timezone"`
}

// Location resolves Timezone, falling back to time.Local.
func (c CuratorConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// BatchConfig bounds one processBatch call.
type BatchConfig struct {
	// Limit caps the articles scored per call (default 50).
	Limit int `json:"limit" yaml:"limit"`

	// Window is the default trailing window for unscored articles (default 24h).
	Window time.Duration `json:"window" yaml:"window"`
}

// RetentionConfig holds archive and purge settings.
type RetentionConfig struct {
	// ArchiveAfter flags articles older than this as archived (default 7 days).
	ArchiveAfter time.Duration `json:"archive_after" yaml:"archive_after"`

	// KeepFor deletes unsaved articles older than this (default 8 days).
	KeepFor time.Duration `json:"keep_for" yaml:"keep_for"`
}

// SchedulerConfig holds the periodic cycle settings.
type SchedulerConfig struct {
	// Spec is a robfig/cron schedule (default "@every 60m").
	Spec string `json:"spec" yaml:"spec"`
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`
}

// RedisConfig enables the distributed per-user curation lock.
type RedisConfig struct {
	// Addr is host:port; empty selects the in-process lock.
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db"`

	// LockTTL bounds how long a crashed holder blocks others (default 2m).
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Path: "data/curator.db"},
		AI: AIConfig{
			HTTPConfig:     HTTPConfig{Timeout: 60 * time.Second},
			Model:          "claude-sonnet-4-5-20250929",
			MaxRetries:     3,
			MaxInputTokens: 8000,
		},
		Embedding: EmbeddingConfig{
			HTTPConfig: HTTPConfig{Timeout: 60 * time.Second},
			Model:      "embed-english-v3.0",
		},
		Rate: RateConfig{TPMLimit: 30000, MaxConcurrent: 5},
		Dedup: DedupConfig{
			Threshold:       0.85,
			Window:          24 * time.Hour,
			ReprocessWindow: 7 * 24 * time.Hour,
		},
		Downvote: DownvoteConfig{
			MaxPrototypes: 10,
			Threshold:     0.80,
			MaxPenalty:    0.4,
			RecentScan:    20,
		},
		Curator: CuratorConfig{
			MinScore:           0.6,
			Window:             24 * time.Hour,
			UncategorizedToday: 5,
			Timezone:           "Local",
		},
		Batch:     BatchConfig{Limit: 50, Window: 24 * time.Hour},
		Retention: RetentionConfig{ArchiveAfter: 7 * 24 * time.Hour, KeepFor: 8 * 24 * time.Hour},
		Scheduler: SchedulerConfig{Spec: "@every 60m"},
		Server:    ServerConfig{Addr: ":8080"},
		Redis:     RedisConfig{LockTTL: 2 * time.Minute},
		Log:       LogConfig{Level: "info", Format: "console"},
	}
}
