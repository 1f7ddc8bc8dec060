// Package config provides configuration management for the media analyzer CLI.
// It handles loading and parsing YAML configuration files, overlaying values
// from environment variables, and provides structured access to application
// settings including model defaults, concurrency limits, provider API keys,
// proxy configuration, and optional result sinks.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Hard ceiling for the concurrency admission gate, independent of config.
const ConcurrencyCeiling = 50

// Config represents the application's configuration, loaded from a YAML file
// and overlaid with environment variables.
type Config struct {
	// Model is the default model identifier, in provider-prefixed form
	// (for example "gemini/gemini-2.5-flash" or "gpt-4o").
	Model string `yaml:"model" json:"model"`

	// WordCount is the target length of generated analyses in words.
	WordCount int `yaml:"word-count" json:"word-count"`

	// Prompt is the default analysis prompt when none is given on the command line.
	Prompt string `yaml:"prompt" json:"prompt"`

	// MaxConcurrency caps how many analyses may run in flight at once.
	MaxConcurrency int `yaml:"max-concurrency" json:"max-concurrency"`

	// MaxFileSizeMB is the per-file size cap for images.
	MaxFileSizeMB int `yaml:"max-file-size-mb" json:"max-file-size-mb"`

	// MaxAudioSizeMB is the per-file size cap for audio files.
	MaxAudioSizeMB int `yaml:"max-audio-size-mb" json:"max-audio-size-mb"`

	// MaxVideoSizeMB is the per-file size cap for video files.
	MaxVideoSizeMB int `yaml:"max-video-size-mb" json:"max-video-size-mb"`

	// RetryAttempts is the number of attempts for a failing provider request.
	RetryAttempts int `yaml:"retry-attempts" json:"retry-attempts"`

	// TimeoutSeconds bounds a single provider request.
	TimeoutSeconds int `yaml:"timeout-seconds" json:"timeout-seconds"`

	// AuthDir is the directory where OAuth tokens are stored. Supports ~ expansion.
	AuthDir string `yaml:"auth-dir" json:"auth-dir"`

	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// LogLevel selects the logrus level (debug, info, warn, error).
	LogLevel string `yaml:"log-level" json:"log-level"`

	// Verbose forces debug-level logging and verbose output formatting.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// LoggingToFile switches log output from stderr to rotating files.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// OpenAIAPIKey authenticates requests to OpenAI models.
	OpenAIAPIKey string `yaml:"openai-api-key" json:"openai-api-key"`

	// AnthropicAPIKey authenticates requests to Anthropic models.
	AnthropicAPIKey string `yaml:"anthropic-api-key" json:"anthropic-api-key"`

	// GeminiAPIKey authenticates requests to Google models when OAuth is not set up.
	GeminiAPIKey string `yaml:"gemini-api-key" json:"gemini-api-key"`

	// AzureOpenAIKey authenticates requests to Azure OpenAI deployments.
	AzureOpenAIKey string `yaml:"azure-openai-key" json:"azure-openai-key"`

	// AzureOpenAIEndpoint is the base URL of the Azure OpenAI resource.
	AzureOpenAIEndpoint string `yaml:"azure-openai-endpoint" json:"azure-openai-endpoint"`

	// AzureAPIVersion selects the Azure OpenAI REST API version.
	AzureAPIVersion string `yaml:"azure-api-version" json:"azure-api-version"`

	// Callback configures the local OAuth callback listener.
	Callback CallbackConfig `yaml:"oauth-callback" json:"oauth-callback"`

	// PostgresSink optionally persists analysis results to a Postgres table.
	PostgresSink PostgresSinkConfig `yaml:"postgres-sink" json:"postgres-sink"`

	// ObjectSink optionally uploads formatted results to S3-compatible storage.
	ObjectSink ObjectSinkConfig `yaml:"object-sink" json:"object-sink"`
}

// CallbackConfig holds the OAuth callback listener settings.
type CallbackConfig struct {
	// Host is the interface the callback server binds to. Default "localhost".
	Host string `yaml:"host" json:"host"`

	// Port fixes the callback port. Zero means probe for a free port starting at 8080.
	Port int `yaml:"port" json:"port"`
}

// PostgresSinkConfig describes the optional Postgres result sink.
type PostgresSinkConfig struct {
	// DSN is the Postgres connection string. Empty disables the sink.
	DSN string `yaml:"dsn" json:"dsn"`

	// Table overrides the destination table name. Default "analysis_results".
	Table string `yaml:"table" json:"table"`
}

// ObjectSinkConfig describes the optional S3-compatible result sink.
type ObjectSinkConfig struct {
	// Endpoint is the object store host:port. Empty disables the sink.
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// AccessKey and SecretKey are the static credentials.
	AccessKey string `yaml:"access-key" json:"access-key"`
	SecretKey string `yaml:"secret-key" json:"secret-key"`

	// Bucket receives the uploaded result objects.
	Bucket string `yaml:"bucket" json:"bucket"`

	// Region is optional and passed through to the client.
	Region string `yaml:"region" json:"region"`

	// Secure enables TLS for the object-store connection.
	Secure bool `yaml:"secure" json:"secure"`

	// Prefix is prepended to object keys. Default "modalyze/".
	Prefix string `yaml:"prefix" json:"prefix"`
}

// DefaultConfig returns a Config populated with the library defaults.
func DefaultConfig() *Config {
	return &Config{
		Model:           "gemini/gemini-2.5-flash",
		WordCount:       100,
		Prompt:          "Describe this image in detail.",
		MaxConcurrency:  20,
		MaxFileSizeMB:   10,
		MaxAudioSizeMB:  100,
		MaxVideoSizeMB:  2048,
		RetryAttempts:   3,
		TimeoutSeconds:  30,
		AuthDir:         "~/.modalyze",
		LogLevel:        "info",
		AzureAPIVersion: "2024-02-15-preview",
		Callback: CallbackConfig{
			Host: "localhost",
		},
	}
}

// LoadConfig reads the YAML file at configFile, overlays environment
// variables, and returns the resulting configuration. The file must exist.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional behaves like LoadConfig but, when optional is true,
// a missing file is not an error and defaults plus environment apply.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", configFile, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", configFile, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// envString overrides dst with the named environment variable when set.
func envString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// envInt overrides dst with the named environment variable when it parses as an integer.
func envInt(dst *int, name string) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv() {
	envString(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	envString(&c.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	envString(&c.AzureOpenAIKey, "AZURE_OPENAI_KEY")
	envString(&c.AzureOpenAIEndpoint, "AZURE_OPENAI_ENDPOINT")
	envString(&c.Model, "DEFAULT_MODEL")
	envInt(&c.WordCount, "DEFAULT_WORD_COUNT")
	envString(&c.Prompt, "DEFAULT_PROMPT")
	envInt(&c.MaxConcurrency, "MAX_CONCURRENCY")
	envInt(&c.MaxFileSizeMB, "MAX_FILE_SIZE_MB")
	envInt(&c.MaxAudioSizeMB, "MAX_AUDIO_SIZE_MB")
	envInt(&c.MaxVideoSizeMB, "MAX_VIDEO_SIZE_MB")
	envInt(&c.RetryAttempts, "RETRY_ATTEMPTS")
	envInt(&c.TimeoutSeconds, "TIMEOUT_SECONDS")
	envString(&c.Callback.Host, "OAUTH_CALLBACK_HOST")
	envInt(&c.Callback.Port, "OAUTH_CALLBACK_PORT")
	envString(&c.AuthDir, "MODALYZE_AUTH_DIR")
	envString(&c.ProxyURL, "PROXY_URL")
	envString(&c.PostgresSink.DSN, "PGSINK_DSN")
	envString(&c.ObjectSink.Endpoint, "OBJECTSINK_ENDPOINT")
	envString(&c.ObjectSink.AccessKey, "OBJECTSINK_ACCESS_KEY")
	envString(&c.ObjectSink.SecretKey, "OBJECTSINK_SECRET_KEY")
	envString(&c.ObjectSink.Bucket, "OBJECTSINK_BUCKET")
}

// Validate checks configuration bounds and returns a descriptive error for
// the first violated constraint.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("config: max-concurrency must be at least 1")
	}
	if c.MaxConcurrency > ConcurrencyCeiling {
		return fmt.Errorf("config: max-concurrency must not exceed %d", ConcurrencyCeiling)
	}
	if c.WordCount < 1 {
		return fmt.Errorf("config: word-count must be at least 1")
	}
	if c.MaxFileSizeMB < 1 {
		return fmt.Errorf("config: max-file-size-mb must be at least 1")
	}
	if c.MaxAudioSizeMB < 1 {
		return fmt.Errorf("config: max-audio-size-mb must be at least 1")
	}
	if c.MaxVideoSizeMB < 1 {
		return fmt.Errorf("config: max-video-size-mb must be at least 1")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("config: retry-attempts must not be negative")
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("config: timeout-seconds must be at least 1")
	}
	if c.Callback.Port < 0 || c.Callback.Port > 65535 {
		return fmt.Errorf("config: oauth-callback port %d out of range", c.Callback.Port)
	}
	return nil
}

// ClampConcurrency bounds a requested concurrency to [1, MaxConcurrency].
func (c *Config) ClampConcurrency(requested int) int {
	limit := requested
	if limit < 1 {
		limit = 1
	}
	if c.MaxConcurrency > 0 && limit > c.MaxConcurrency {
		limit = c.MaxConcurrency
	}
	return limit
}

// ObjectSinkEnabled reports whether the object sink has enough settings to run.
func (c *Config) ObjectSinkEnabled() bool {
	return strings.TrimSpace(c.ObjectSink.Endpoint) != "" && strings.TrimSpace(c.ObjectSink.Bucket) != ""
}

// PostgresSinkEnabled reports whether the Postgres sink is configured.
func (c *Config) PostgresSinkEnabled() bool {
	return strings.TrimSpace(c.PostgresSink.DSN) != ""
}
