package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	cfgpkg "github.com/KaramelBytes/tabletalk/internal/config"
	"github.com/spf13/cobra"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set tabletalk configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func printConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "dataset_path: %s\n", c.DatasetPath)
	if c.XLSXSheet != "" {
		fmt.Fprintf(w, "xlsx_sheet: %s\n", c.XLSXSheet)
	}
	fmt.Fprintf(w, "plot_path: %s\n", c.PlotPath)
	if len(c.PlotColumns) > 0 {
		fmt.Fprintf(w, "plot_columns: %s\n", strings.Join(c.PlotColumns, ","))
	}
	fmt.Fprintf(w, "plot_cache_size: %d\n", c.PlotCache)
	fmt.Fprintf(w, "listen_addr: %s\n", c.ListenAddr)
	fmt.Fprintf(w, "provider: %s\n", c.Provider)
	fmt.Fprintf(w, "model: %s\n", c.Model)
	fmt.Fprintf(w, "ollama_host: %s\n", c.OllamaHost)
	fmt.Fprintf(w, "openai_base_url: %s\n", c.OpenAIBaseURL)
	fmt.Fprintf(w, "openai_api_key: %s\n", mask(c.OpenAIAPIKey))
	fmt.Fprintf(w, "gemini_api_key: %s\n", mask(c.GeminiAPIKey))
	fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
	fmt.Fprintf(w, "prompt_max_rows: %d\n", c.PromptMaxRows)
	fmt.Fprintf(w, "prompt_max_tokens: %d\n", c.PromptMaxTokens)
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "query_timeout_sec: %d\n", c.QueryTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "retry_max_delay_ms: %d\n", c.RetryMaxDelayMs)
	fmt.Fprintf(w, "workers: %d\n", c.Workers)
	fmt.Fprintf(w, "query_rps: %.2f\n", c.QueryRPS)
	fmt.Fprintf(w, "query_burst: %d\n", c.QueryBurst)
	fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
	fmt.Fprintf(w, "log_format: %s\n", c.LogFormat)
	if c.SentryDSN != "" {
		fmt.Fprintf(w, "sentry_dsn: %s\n", mask(c.SentryDSN))
	}
	if c.ArtifactS3.Enabled() {
		fmt.Fprintf(w, "artifact_s3.endpoint: %s\n", c.ArtifactS3.Endpoint)
		fmt.Fprintf(w, "artifact_s3.bucket: %s\n", c.ArtifactS3.Bucket)
		fmt.Fprintf(w, "artifact_s3.access_key: %s\n", mask(c.ArtifactS3.AccessKey))
		fmt.Fprintf(w, "artifact_s3.secret_key: %s\n", mask(c.ArtifactS3.SecretKey))
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		path, err := cfgpkg.Save(cfg, cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved %s to %s\n", key, path)
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "dataset_path":
		c.DatasetPath = val
	case "xlsx_sheet":
		c.XLSXSheet = val
	case "plot_path":
		c.PlotPath = val
	case "plot_columns":
		c.PlotColumns = nil
		for _, p := range strings.Split(val, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.PlotColumns = append(c.PlotColumns, p)
			}
		}
	case "plot_cache_size":
		c.PlotCache, err = atoi()
	case "listen_addr":
		c.ListenAddr = val
	case "provider":
		p := ai.NormalizeProvider(strings.ToLower(strings.TrimSpace(val)))
		switch p {
		case ai.ProviderOllama, ai.ProviderOpenAI, ai.ProviderGemini:
			c.Provider = p
		default:
			return fmt.Errorf("invalid provider: %s (use ollama, openai or gemini)", val)
		}
	case "model":
		c.Model = val
	case "ollama_host":
		c.OllamaHost = val
	case "openai_base_url":
		c.OpenAIBaseURL = val
	case "openai_api_key":
		c.OpenAIAPIKey = val
	case "gemini_api_key":
		c.GeminiAPIKey = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "prompt_max_rows":
		c.PromptMaxRows, err = atoi()
	case "prompt_max_tokens":
		c.PromptMaxTokens, err = atoi()
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "query_timeout_sec":
		c.QueryTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "retry_max_delay_ms":
		c.RetryMaxDelayMs, err = atoi()
	case "workers":
		c.Workers, err = atoi()
	case "query_rps":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for query_rps: %v", val)
		}
		c.QueryRPS = f
	case "query_burst":
		c.QueryBurst, err = atoi()
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	case "sentry_dsn":
		c.SentryDSN = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	return c.Validate()
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			dir, err := cfgpkg.Dir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		// Defaults only: a pre-existing file or env must not leak into the template.
		c, err := cfgpkg.Defaults()
		if err != nil {
			return err
		}
		written, err := cfgpkg.Save(c, cfgFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default config to %s\n", written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing config file")
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
