package testsupport

import (
	"path/filepath"
	"testing"

	"sift/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.InboxDir = filepath.Join(base, "inbox")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithAPIKey sets the model provider API key on the test config.
func WithAPIKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.APIKey = key
	}
}

// WithProvider selects the model provider and points it at baseURL.
func WithProvider(provider, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Provider = provider
		b.cfg.LLM.BaseURL = baseURL
		b.cfg.LLM.Model = "test-model"
	}
}

// WithBreaker overrides the breaker threshold and reset window.
func WithBreaker(threshold, resetSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Breaker.FailureThreshold = threshold
		b.cfg.Breaker.ResetSeconds = resetSeconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
