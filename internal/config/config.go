package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Dataset and artifacts
	DatasetPath string   `mapstructure:"dataset_path" yaml:"dataset_path"`
	XLSXSheet   string   `mapstructure:"xlsx_sheet" yaml:"xlsx_sheet"`
	PlotPath    string   `mapstructure:"plot_path" yaml:"plot_path"`
	PlotColumns []string `mapstructure:"plot_columns" yaml:"plot_columns"`
	PlotCache   int      `mapstructure:"plot_cache_size" yaml:"plot_cache_size"`

	// UI
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Model service
	Provider      string  `mapstructure:"provider" yaml:"provider"`
	Model         string  `mapstructure:"model" yaml:"model"`
	OllamaHost    string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIBaseURL string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	OpenAIAPIKey  string  `mapstructure:"openai_api_key" yaml:"openai_api_key"`
	GeminiAPIKey  string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`

	// Prompt size policy
	PromptMaxRows   int `mapstructure:"prompt_max_rows" yaml:"prompt_max_rows"`
	PromptMaxTokens int `mapstructure:"prompt_max_tokens" yaml:"prompt_max_tokens"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	QueryTimeoutSec  int `mapstructure:"query_timeout_sec" yaml:"query_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Execution
	Workers    int     `mapstructure:"workers" yaml:"workers"`
	QueryRPS   float64 `mapstructure:"query_rps" yaml:"query_rps"`
	QueryBurst int     `mapstructure:"query_burst" yaml:"query_burst"`

	// Observability
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	SentryDSN string `mapstructure:"sentry_dsn" yaml:"sentry_dsn"`

	// Optional mirror of rendered plots to S3-compatible storage
	ArtifactS3 S3 `mapstructure:"artifact_s3" yaml:"artifact_s3"`
}

// S3 configures the plot mirror. Disabled unless Endpoint and Bucket are set.
type S3 struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

// Enabled reports whether the mirror has enough settings to run.
func (s S3) Enabled() bool {
	return strings.TrimSpace(s.Endpoint) != "" && strings.TrimSpace(s.Bucket) != ""
}

// HTTPTimeout returns the per-request HTTP client timeout.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// QueryTimeout returns the deadline applied to one question end to end.
func (c *Global) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSec) * time.Second
}

var validProviders = map[string]bool{"ollama": true, "openai": true, "gemini": true}

// Validate reports configuration that cannot work.
func (c *Global) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DatasetPath) == "" {
		errs = append(errs, errors.New("dataset_path is required"))
	}
	if strings.TrimSpace(c.PlotPath) == "" {
		errs = append(errs, errors.New("plot_path is required"))
	}
	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model is required"))
	}
	if !validProviders[c.Provider] {
		errs = append(errs, fmt.Errorf("invalid provider: %q (use ollama, openai or gemini)", c.Provider))
	}
	if c.HTTPTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout_sec must be positive, got %d", c.HTTPTimeoutSec))
	}
	if c.QueryTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("query_timeout_sec must be positive, got %d", c.QueryTimeoutSec))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.PromptMaxRows < 0 || c.PromptMaxTokens < 0 {
		errs = append(errs, errors.New("prompt limits cannot be negative"))
	}
	return errors.Join(errs...)
}

// Dir returns the default configuration directory (~/.tabletalk).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabletalk"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabletalk/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) (string, error) {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return path, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dataset_path", "./Housing.csv")
	v.SetDefault("xlsx_sheet", "")
	v.SetDefault("plot_path", "./plot.png")
	v.SetDefault("plot_columns", []string{})
	v.SetDefault("plot_cache_size", 16)
	v.SetDefault("listen_addr", "127.0.0.1:7860")
	v.SetDefault("provider", "ollama")
	v.SetDefault("model", "llama3.2")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("openai_base_url", "http://127.0.0.1:11434/v1")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("prompt_max_rows", 500)
	v.SetDefault("prompt_max_tokens", 0)
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("query_timeout_sec", 120)
	// single attempt: model calls are not retried unless configured
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("workers", 1)
	v.SetDefault("query_rps", 0.0)
	v.SetDefault("query_burst", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("artifact_s3.endpoint", "")
	v.SetDefault("artifact_s3.region", "us-east-1")
	v.SetDefault("artifact_s3.access_key", "")
	v.SetDefault("artifact_s3.secret_key", "")
	v.SetDefault("artifact_s3.bucket", "")
	v.SetDefault("artifact_s3.use_ssl", false)
}

// Defaults returns the built-in configuration, ignoring files and environment.
func Defaults() (*Global, error) {
	v := viper.New()
	setDefaults(v)
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal defaults: %w", err)
	}
	return &c, nil
}

// Load loads configuration from .env, env, config file and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TABLETALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if !errors.As(err, &nf) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "local" {
		c.Provider = "ollama"
	}
	return &c, nil
}
