package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"sift/internal/config"
)

func TestLoadDefaultConfigUsesEnvAPIKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved != filepath.Join(tempHome, ".config", "sift", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "sift")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.InboxDir != filepath.Join(wantData, "inbox") {
		t.Fatalf("unexpected inbox dir: %q", cfg.Paths.InboxDir)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "sift.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.Provider != config.ProviderOpenRouter {
		t.Fatalf("unexpected provider %q", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL == "" || cfg.LLM.Model == "" {
		t.Fatalf("expected openrouter defaults, got %+v", cfg.LLM)
	}
	if cfg.CallTimeout() != 60*time.Second {
		t.Fatalf("unexpected call timeout %s", cfg.CallTimeout())
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.BreakerReset() != 30*time.Second {
		t.Fatalf("unexpected breaker defaults %+v", cfg.Breaker)
	}
	if cfg.Analysis.MaxProblemAreas != 10 || !cfg.Analysis.PersonaEnabled {
		t.Fatalf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if err := cfg.RequireAPIKey(); err != nil {
		t.Fatalf("RequireAPIKey returned error: %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("GEMINI_API_KEY", "gem-key")

	configPath := filepath.Join(t.TempDir(), "sift.toml")
	content := `
[paths]
data_dir = "~/research/sift"

[llm]
provider = "Gemini"

[breaker]
failure_threshold = 2

[analysis]
max_problem_areas = 4
persona_enabled = false

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be loaded, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "research", "sift") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.LLM.Provider != config.ProviderGemini || cfg.LLM.APIKey != "gem-key" {
		t.Fatalf("unexpected llm section %+v", cfg.LLM)
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected gemini model %q", cfg.LLM.Model)
	}
	if cfg.Breaker.FailureThreshold != 2 {
		t.Fatalf("unexpected failure threshold %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Analysis.MaxProblemAreas != 4 || cfg.Analysis.PersonaEnabled {
		t.Fatalf("unexpected analysis section %+v", cfg.Analysis)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging section %+v", cfg.Logging)
	}
}

func TestLoadPrefersProjectFileWhenDefaultMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile("sift.toml", []byte("[analysis]\nmax_problem_areas = 3\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || filepath.Base(resolved) != "sift.toml" {
		t.Fatalf("expected project config, got %q exists=%v", resolved, exists)
	}
	if cfg.Analysis.MaxProblemAreas != 3 {
		t.Fatalf("unexpected max problem areas %d", cfg.Analysis.MaxProblemAreas)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := map[string]string{
		"unknown provider": "[llm]\nprovider = \"mystery\"\n",
		"bad log format":   "[logging]\nformat = \"xml\"\n",
		"too many areas":   "[analysis]\nmax_problem_areas = 99\n",
		"unknown field":    "[analysis]\nmystery = 1\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}

func TestRequireAPIKeyNamesEnvVar(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	cfg := config.Default()
	err := cfg.RequireAPIKey()
	if err == nil || !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("expected env var hint, got %v", err)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed map[string]any
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	for _, section := range []string{"paths", "llm", "breaker", "analysis", "logging"} {
		if _, ok := parsed[section]; !ok {
			t.Fatalf("sample missing [%s] section", section)
		}
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q: %v", dir, err)
		}
	}
}
