package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sift/internal/breaker"
	"sift/internal/config"
	"sift/internal/logging"
	"sift/internal/pipeline"
	"sift/internal/services/gemini"
	"sift/internal/services/llm"
	"sift/internal/store"
)

// modelClient is what the CLI needs from a provider: completions for the
// pipeline plus identity and a health probe.
type modelClient interface {
	pipeline.ModelClient
	Model() string
	HealthCheck(ctx context.Context) error
}

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	breakersOnce sync.Once
	breakers     *breaker.Registry

	// newModel builds the provider client; tests replace it.
	newModel func(cfg *config.Config) (modelClient, error)
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		newModel:   newModelClient,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = &pipeline.Error{Kind: pipeline.KindConfiguration, Message: "load config", Err: err}
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = &pipeline.Error{Kind: pipeline.KindConfiguration, Message: "ensure directories", Err: err}
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("init logger: %w", err)
			return
		}
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) breakerRegistry(cfg *config.Config) *breaker.Registry {
	c.breakersOnce.Do(func() {
		c.breakers = breaker.NewRegistry(breaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			ResetTimeout:     cfg.BreakerReset(),
		})
	})
	return c.breakers
}

// pipelineOptions resolves every collaborator a pipeline needs. A missing
// API key surfaces here as a ConfigurationError.
func (c *commandContext) pipelineOptions(st pipeline.Persister) (*config.Config, pipeline.Options, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	model, err := c.newModel(cfg)
	if err != nil {
		return nil, pipeline.Options{}, err
	}
	return cfg, pipeline.Options{
		Model:           model,
		Breakers:        c.breakerRegistry(cfg),
		Logger:          logger,
		CallTimeout:     cfg.CallTimeout(),
		MaxProblemAreas: cfg.Analysis.MaxProblemAreas,
		Store:           st,
	}, nil
}

func (c *commandContext) openStore() (*store.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindStorage, Message: "open analysis store", Err: err}
	}
	return st, nil
}

func newModelClient(cfg *config.Config) (modelClient, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, &pipeline.Error{Kind: pipeline.KindConfiguration, Message: err.Error()}
	}
	switch cfg.LLM.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}), nil
	case config.ProviderOpenRouter:
		return llm.NewClient(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Referer:        cfg.LLM.Referer,
			Title:          cfg.LLM.Title,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		}, llm.WithRetryMaxAttempts(cfg.LLM.RetryAttempts)), nil
	default:
		return nil, &pipeline.Error{Kind: pipeline.KindConfiguration, Message: fmt.Sprintf("unsupported llm provider %q", cfg.LLM.Provider)}
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
