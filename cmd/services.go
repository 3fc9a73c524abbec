package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/tabletalk/internal/ai"
	"github.com/KaramelBytes/tabletalk/internal/artifact"
	cfgpkg "github.com/KaramelBytes/tabletalk/internal/config"
	"github.com/KaramelBytes/tabletalk/internal/dataset"
	"github.com/KaramelBytes/tabletalk/internal/logging"
	"github.com/KaramelBytes/tabletalk/internal/plot"
	"github.com/KaramelBytes/tabletalk/internal/prompt"
	"github.com/KaramelBytes/tabletalk/internal/qa"
	"github.com/KaramelBytes/tabletalk/internal/worker"
	"github.com/sirupsen/logrus"
)

// requireConfig returns the loaded configuration after validating it.
func requireConfig() (*cfgpkg.Global, error) {
	if cfg == nil {
		if cfgErr != nil {
			return nil, fmt.Errorf("configuration not loaded: %w", cfgErr)
		}
		return nil, errors.New("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func currentLogger() logrus.FieldLogger {
	if logger == nil {
		return logging.Discard()
	}
	return logger
}

func runtimeConfig(c *cfgpkg.Global) ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		Host:        c.OllamaHost,
		BaseURL:     c.OpenAIBaseURL,
	}
	switch c.Provider {
	case ai.ProviderOpenAI:
		rc.APIKey = c.OpenAIAPIKey
	case ai.ProviderGemini:
		rc.APIKey = c.GeminiAPIKey
	}
	return rc
}

// buildRuntime creates the configured model runtime, rate limited when query_rps is set.
func buildRuntime(ctx context.Context, c *cfgpkg.Global) (ai.Runtime, error) {
	rt, err := ai.NewRuntime(ctx, c.Provider, runtimeConfig(c))
	if err != nil {
		return nil, err
	}
	return ai.RateLimit(rt, c.QueryRPS, c.QueryBurst), nil
}

func promptPolicy(c *cfgpkg.Global) prompt.Policy {
	maxTokens := c.PromptMaxTokens
	if maxTokens == 0 {
		maxTokens = ai.PromptBudget(c.Model, c.MaxTokens)
	}
	return prompt.Policy{MaxRows: c.PromptMaxRows, MaxTokens: maxTokens}
}

func qaOptions(c *cfgpkg.Global) qa.Options {
	return qa.Options{
		Provider:    c.Provider,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.QueryTimeout(),
	}
}

func newLoader(c *cfgpkg.Global, log logrus.FieldLogger) *dataset.Loader {
	return dataset.NewLoader(c.DatasetPath, c.XLSXSheet, log)
}

// buildStore returns the in-memory image cache, mirrored to S3 when artifact_s3 is configured.
func buildStore(c *cfgpkg.Global) (artifact.Store, error) {
	mem, err := artifact.NewMemoryStore(c.PlotCache)
	if err != nil {
		return nil, err
	}
	if !c.ArtifactS3.Enabled() {
		return mem, nil
	}
	s3, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  c.ArtifactS3.Endpoint,
		Region:    c.ArtifactS3.Region,
		AccessKey: c.ArtifactS3.AccessKey,
		SecretKey: c.ArtifactS3.SecretKey,
		Bucket:    c.ArtifactS3.Bucket,
		UseSSL:    c.ArtifactS3.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("plot mirror: %w", err)
	}
	return artifact.NewTiered(mem, s3), nil
}

// services bundles what the ask, plot and serve commands share.
type services struct {
	loader *dataset.Loader
	qa     *qa.Service
	plots  *plot.Service
}

// buildServices wires loader, prompt builder, runtime and renderer.
// A nil pool runs questions on the calling goroutine.
func buildServices(ctx context.Context, c *cfgpkg.Global, pool *worker.Pool) (*services, error) {
	log := currentLogger()
	rt, err := buildRuntime(ctx, c)
	if err != nil {
		return nil, err
	}
	loader := newLoader(c, log)
	plots, err := buildPlotService(c, loader, log)
	if err != nil {
		return nil, err
	}
	return &services{
		loader: loader,
		qa:     qa.New(loader, prompt.NewBuilder(promptPolicy(c)), rt, pool, qaOptions(c), log),
		plots:  plots,
	}, nil
}

// buildPlotService needs no model runtime, so plotting works without provider credentials.
func buildPlotService(c *cfgpkg.Global, loader *dataset.Loader, log logrus.FieldLogger) (*plot.Service, error) {
	store, err := buildStore(c)
	if err != nil {
		return nil, err
	}
	return plot.NewService(loader, plot.NewRenderer(c.PlotPath), store, log), nil
}
