// Package config loads lodestone's settings from an optional file and the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/lodestone/internal/analyzers"
	"github.com/efebarandurmaz/lodestone/internal/llm"
	"github.com/efebarandurmaz/lodestone/internal/llm/tokenizer"
	"github.com/efebarandurmaz/lodestone/internal/logging"
	"github.com/efebarandurmaz/lodestone/internal/observability"
	"github.com/efebarandurmaz/lodestone/internal/rewrite"
)

// EnvPrefix prefixes every environment override, e.g. LODESTONE_LLM_MODEL.
const EnvPrefix = "LODESTONE"

// Config holds all application configuration.
type Config struct {
	LLM      LLMConfig      `mapstructure:"llm"`
	Analyzer AnalyzerConfig `mapstructure:"analyzer"`
	Rewrite  RewriteConfig  `mapstructure:"rewrite"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type LLMConfig struct {
	Provider     string        `mapstructure:"provider"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	Organization string        `mapstructure:"organization"`
	BaseURL      string        `mapstructure:"base_url"`
	APIVersion   string        `mapstructure:"api_version"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type AnalyzerConfig struct {
	SystemMessage       string  `mapstructure:"system_message"`
	Temperature         float64 `mapstructure:"temperature"`
	ChunkSize           int     `mapstructure:"chunk_size"`
	KeepRemainder       bool    `mapstructure:"keep_remainder"`
	ProgramMaxTokens    int     `mapstructure:"program_max_tokens"`
	ContextWindow       int     `mapstructure:"context_window"`
	PromptCeiling       int     `mapstructure:"prompt_ceiling"`
	UnbudgetedMaxTokens int     `mapstructure:"unbudgeted_max_tokens"`
	Concurrency         int     `mapstructure:"concurrency"`

	// Tokenizer is "" for the model's own encoding, "none" for the
	// unbudgeted fallback, or a tiktoken encoding name.
	Tokenizer string `mapstructure:"tokenizer"`
}

type RewriteConfig struct {
	Voice           string  `mapstructure:"voice"`
	CustomNoun      string  `mapstructure:"custom_noun"`
	CustomAdjective string  `mapstructure:"custom_adjective"`
	MinLength       int     `mapstructure:"min_length"`
	MaxRetries      int     `mapstructure:"max_retries"`
	Temperature     float64 `mapstructure:"temperature"`
	Concurrency     int     `mapstructure:"concurrency"`
}

type TemporalConfig struct {
	Host            string        `mapstructure:"host"`
	Namespace       string        `mapstructure:"namespace"`
	TaskQueue       string        `mapstructure:"task_queue"`
	ActivityTimeout time.Duration `mapstructure:"activity_timeout"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File also receives every record as JSON when set.
	File   string `mapstructure:"file"`
	Source bool   `mapstructure:"source"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", analyzers.DefaultModel)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.organization", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_version", "")
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("analyzer.system_message", "")
	v.SetDefault("analyzer.temperature", analyzers.DefaultTemperature)
	v.SetDefault("analyzer.chunk_size", analyzers.DefaultChunkSize)
	v.SetDefault("analyzer.keep_remainder", false)
	v.SetDefault("analyzer.program_max_tokens", analyzers.DefaultProgramMaxTokens)
	v.SetDefault("analyzer.context_window", analyzers.DefaultContextWindow)
	v.SetDefault("analyzer.prompt_ceiling", analyzers.DefaultPromptCeiling)
	v.SetDefault("analyzer.unbudgeted_max_tokens", analyzers.DefaultUnbudgetedMaxTokens)
	v.SetDefault("analyzer.concurrency", 4)
	v.SetDefault("analyzer.tokenizer", "")

	v.SetDefault("rewrite.voice", string(rewrite.VoiceSassy))
	v.SetDefault("rewrite.custom_noun", "")
	v.SetDefault("rewrite.custom_adjective", "")
	v.SetDefault("rewrite.min_length", rewrite.DefaultMinLength)
	v.SetDefault("rewrite.max_retries", rewrite.DefaultMaxRetries)
	v.SetDefault("rewrite.temperature", 1.0)
	v.SetDefault("rewrite.concurrency", 4)

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "lodestone")
	v.SetDefault("temporal.activity_timeout", 5*time.Minute)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.request_timeout", 3*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", int64(16<<20))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.source", false)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
}

// Default returns the configuration Load produces without a file or
// environment overrides.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from path, when set, and the environment.
// OPENAI_API_KEY and OPENAI_ORGANIZATION are used when the prefixed
// variables are unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.organization", EnvPrefix+"_LLM_ORGANIZATION", "OPENAI_ORGANIZATION"); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	for _, warning := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
	}
	return &cfg, nil
}

// Validate checks configuration for issues and returns warnings. Hard
// errors surface when the component configs are built.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.Analyzer.Temperature < 0 || c.Analyzer.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("analyzer temperature %.2f is outside recommended range [0.0, 2.0]", c.Analyzer.Temperature))
	}
	if c.Rewrite.Temperature < 0 || c.Rewrite.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("rewrite temperature %.2f is outside recommended range [0.0, 2.0]", c.Rewrite.Temperature))
	}
	if c.Analyzer.Concurrency < 1 {
		warnings = append(warnings, fmt.Sprintf("analyzer concurrency %d is below 1, using 1", c.Analyzer.Concurrency))
	}
	if c.Analyzer.ContextWindow <= c.Analyzer.PromptCeiling {
		warnings = append(warnings, fmt.Sprintf("context_window %d leaves no room for output above prompt_ceiling %d",
			c.Analyzer.ContextWindow, c.Analyzer.PromptCeiling))
	}
	return warnings
}

// ProviderConfig returns the settings for llm provider construction.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{
		Provider:     c.LLM.Provider,
		APIKey:       c.LLM.APIKey,
		Organization: c.LLM.Organization,
		Model:        c.LLM.Model,
		BaseURL:      c.LLM.BaseURL,
		APIVersion:   c.LLM.APIVersion,
		Timeout:      c.LLM.Timeout,
	}
}

func (c *Config) encoder() (tokenizer.Encoder, error) {
	switch c.Analyzer.Tokenizer {
	case "none":
		return nil, nil
	case "":
		// Unknown models run unbudgeted.
		enc, err := tokenizer.ForModel(c.LLM.Model)
		if err != nil {
			return nil, nil
		}
		return enc, nil
	default:
		return tokenizer.ForEncoding(c.Analyzer.Tokenizer)
	}
}

// AnalyzerConfig builds the validated analyzer settings.
func (c *Config) AnalyzerConfig() (*analyzers.Config, error) {
	enc, err := c.encoder()
	if err != nil {
		return nil, err
	}
	ac := &analyzers.Config{
		Model:               c.LLM.Model,
		SystemMessage:       c.Analyzer.SystemMessage,
		Temperature:         c.Analyzer.Temperature,
		Encoder:             enc,
		ChunkSize:           c.Analyzer.ChunkSize,
		KeepRemainder:       c.Analyzer.KeepRemainder,
		ProgramMaxTokens:    c.Analyzer.ProgramMaxTokens,
		ContextWindow:       c.Analyzer.ContextWindow,
		PromptCeiling:       c.Analyzer.PromptCeiling,
		UnbudgetedMaxTokens: c.Analyzer.UnbudgetedMaxTokens,
	}
	if err := ac.Validate(); err != nil {
		return nil, err
	}
	return ac, nil
}

// RewriteConfig builds the validated string rewriter settings.
func (c *Config) RewriteConfig() (*rewrite.Config, error) {
	voice, err := rewrite.ParseVoice(c.Rewrite.Voice)
	if err != nil {
		return nil, err
	}
	enc, err := c.encoder()
	if err != nil {
		return nil, err
	}
	rc := &rewrite.Config{
		MinLength:      c.Rewrite.MinLength,
		MaxRetries:     c.Rewrite.MaxRetries,
		Voice:          voice,
		Custom:         rewrite.Persona{Noun: c.Rewrite.CustomNoun, Adjective: c.Rewrite.CustomAdjective},
		Model:          c.LLM.Model,
		Temperature:    c.Rewrite.Temperature,
		SystemMessage:  c.Analyzer.SystemMessage,
		Encoder:        enc,
		IdentifierRule: rewrite.DefaultIdentifierRule,
		SentenceRule:   rewrite.DefaultSentenceRule,
	}
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return rc, nil
}

// TracingConfig returns the OpenTelemetry settings for service.
func (c *Config) TracingConfig(service, version string) *observability.TracingConfig {
	return &observability.TracingConfig{
		ServiceName:    service,
		ServiceVersion: version,
		Environment:    c.Tracing.Environment,
		OTLPEndpoint:   c.Tracing.Endpoint,
		Insecure:       c.Tracing.Insecure,
		SampleRate:     c.Tracing.SampleRate,
	}
}

// Logger builds the process logger from the log section. An
// LODESTONE_LOG_LEVEL set in the environment has already been merged by Load.
func (c *Config) Logger() *slog.Logger {
	logger := logging.New(
		logging.WithLevelName(c.Log.Level),
		logging.WithJSON(c.Log.Format == "json"),
		logging.WithSource(c.Log.Source),
	)
	if c.Log.File == "" {
		return logger
	}

	f, err := os.OpenFile(c.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger.Warn("log file unavailable, logging to stderr only", "file", c.Log.File, "error", err)
		return logger
	}
	return logging.Multi(logger, logging.New(
		logging.WithLevelName(c.Log.Level),
		logging.WithJSON(true),
		logging.WithSource(c.Log.Source),
		logging.WithWriter(f),
	))
}
