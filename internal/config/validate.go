package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. A missing API key is not a
// validation failure here; it is reported when the pipeline is built so that
// `sift config` commands work without credentials.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateBreaker(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenRouter, ProviderGemini, c.LLM.Provider)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	if c.LLM.RetryAttempts < 1 || c.LLM.RetryAttempts > 10 {
		return errors.New("llm.retry_attempts must be between 1 and 10")
	}
	return nil
}

func (c *Config) validateBreaker() error {
	if c.Breaker.FailureThreshold <= 0 {
		return errors.New("breaker.failure_threshold must be positive")
	}
	if c.Breaker.ResetSeconds <= 0 {
		return errors.New("breaker.reset_seconds must be positive")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxProblemAreas < 1 || c.Analysis.MaxProblemAreas > 50 {
		return errors.New("analysis.max_problem_areas must be between 1 and 50")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

// RequireAPIKey reports a missing model provider credential.
func (c *Config) RequireAPIKey() error {
	if c.LLM.APIKey != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = defaultConfigPath
	}
	return fmt.Errorf("llm.api_key is required. Set %s env var or edit %s (create with 'sift config init')", apiKeyEnv(c.LLM.Provider), defaultPath)
}
