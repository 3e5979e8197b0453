package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"sift/internal/config"
	"sift/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	server     *httptest.Server
	mu         sync.Mutex
	responses  []string
	calls      int
}

// setupCLITestEnv writes a config pointing the OpenRouter client at a local
// server that replays responses in order.
func setupCLITestEnv(t *testing.T, responses ...string) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	env := &cliTestEnv{responses: responses}
	env.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.mu.Lock()
		call := env.calls
		env.calls++
		env.mu.Unlock()
		if call >= len(env.responses) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		payload := map[string]any{"choices": []any{map[string]any{
			"finish_reason": "stop",
			"message":       map[string]any{"content": env.responses[call]},
		}}}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(env.server.Close)

	env.cfg = testsupport.NewConfig(t, testsupport.WithProvider(config.ProviderOpenRouter, env.server.URL))
	env.configPath = filepath.Join(testsupport.BaseDir(env.cfg), "config.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func (e *cliTestEnv) modelCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func TestAnalyzeStoresAndLists(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.AnalysisResponses()...)
	transcript := filepath.Join(testsupport.BaseDir(env.cfg), "call.vtt")
	testsupport.WriteFile(t, transcript, testsupport.SampleCaptions)

	out, _, err := runCLI(t, []string{"analyze", transcript, "--project", "p1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var created struct {
		ID     string `json:"id"`
		Result struct {
			ProblemAreas []struct {
				Title    string `json:"title"`
				Excerpts []struct {
					Quote string `json:"quote"`
				} `json:"excerpts"`
			} `json:"problemAreas"`
		} `json:"result"`
	}
	if err := json.Unmarshal([]byte(out), &created); err != nil {
		t.Fatalf("decode analyze output: %v\n%s", err, out)
	}
	if created.ID == "" || len(created.Result.ProblemAreas) != 1 {
		t.Fatalf("unexpected analyze output %s", out)
	}
	if got := created.Result.ProblemAreas[0].Excerpts[0].Quote; !strings.Contains(got, "spreadsheet") {
		t.Fatalf("expected quote backfilled from chunk text, got %q", got)
	}
	if env.modelCalls() != 3 {
		t.Fatalf("expected 3 model calls, got %d", env.modelCalls())
	}

	out, _, err = runCLI(t, []string{"list", "--format", "json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, created.ID)
	requireContains(t, out, `"source_name": "call.vtt"`)

	out, _, err = runCLI(t, []string{"list"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list table: %v", err)
	}
	requireContains(t, out, "call.vtt")

	out, _, err = runCLI(t, []string{"show", created.ID, "--format", "yaml"}, env.configPath, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "id: "+created.ID)
	requireContains(t, out, "problemAreas:")

	out, _, err = runCLI(t, []string{"show", created.ID}, env.configPath, "")
	if err != nil {
		t.Fatalf("show table: %v", err)
	}
	requireContains(t, out, "Manual invoice tracking")

	out, _, err = runCLI(t, []string{"delete", created.ID}, env.configPath, "")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	requireContains(t, out, "Deleted analysis")

	if _, _, err := runCLI(t, []string{"show", created.ID}, env.configPath, ""); err == nil {
		t.Fatal("expected show to fail after delete")
	}
}

func TestAnalyzeFromStdinWithoutStore(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.AnalysisResponses()...)

	out, _, err := runCLI(t, []string{"analyze", "-", "--no-store", "--format", "table"}, env.configPath, testsupport.SampleCaptions)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Manual invoice tracking")
	requireContains(t, out, "Pain Point")
	requireContains(t, out, "Repaired responses:")

	out, _, err = runCLI(t, []string{"list", "--format", "json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, `"analyses": []`)
}

func TestAnalyzeExitCodes(t *testing.T) {
	t.Run("no content", func(t *testing.T) {
		env := setupCLITestEnv(t)
		_, _, err := runCLI(t, []string{"analyze", "-"}, env.configPath, "WEBVTT\n\nno cues here\n")
		if code := exitCode(err); code != 3 {
			t.Fatalf("expected exit code 3, got %d (%v)", code, err)
		}
		if env.modelCalls() != 0 {
			t.Fatalf("expected no model calls, got %d", env.modelCalls())
		}
	})

	t.Run("parse error", func(t *testing.T) {
		env := setupCLITestEnv(t, "no json at all")
		_, _, err := runCLI(t, []string{"analyze", "-"}, env.configPath, testsupport.SampleCaptions)
		if code := exitCode(err); code != 5 {
			t.Fatalf("expected exit code 5, got %d (%v)", code, err)
		}
		requireContains(t, formatCLIError(err), "ParseError")
	})

	t.Run("call error", func(t *testing.T) {
		env := setupCLITestEnv(t)
		_, _, err := runCLI(t, []string{"analyze", "-"}, env.configPath, testsupport.SampleCaptions)
		if code := exitCode(err); code != 6 {
			t.Fatalf("expected exit code 6, got %d (%v)", code, err)
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		env := setupCLITestEnv(t)
		env.cfg.LLM.APIKey = ""
		writeTestConfig(t, env.configPath, env.cfg)
		_, _, err := runCLI(t, []string{"analyze", "-"}, env.configPath, testsupport.SampleCaptions)
		if code := exitCode(err); code != 4 {
			t.Fatalf("expected exit code 4, got %d (%v)", code, err)
		}
		requireContains(t, err.Error(), "OPENROUTER_API_KEY")
	})
}

func TestPersonasCommand(t *testing.T) {
	env := setupCLITestEnv(t,
		`{"personas":[{"id":"p1","name":"Dana","role":"Finance lead","goals":["close books faster"],"frustrations":["manual exports"],"chunkNumbers":[2]}]}`,
		`{"title":"Finance operators","narrative":"Dana wants approvals without spreadsheets."}`,
	)

	out, _, err := runCLI(t, []string{"personas", "-", "--format", "table"}, env.configPath, testsupport.SampleCaptions)
	if err != nil {
		t.Fatalf("personas: %v", err)
	}
	requireContains(t, out, "Finance lead")
	requireContains(t, out, "Finance operators")

	env.cfg.Analysis.PersonaEnabled = false
	writeTestConfig(t, env.configPath, env.cfg)
	_, _, err = runCLI(t, []string{"personas", "-"}, env.configPath, testsupport.SampleCaptions)
	if code := exitCode(err); code != 4 {
		t.Fatalf("expected configuration exit code when disabled, got %d (%v)", code, err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target, "")
	if err != nil {
		t.Fatalf("validate sample: %v", err)
	}
	requireContains(t, out, "Warning: llm.api_key is required")
}

func TestLLMHealth(t *testing.T) {
	env := setupCLITestEnv(t, `{"ok":true}`)

	out, _, err := runCLI(t, []string{"llm", "health"}, env.configPath, "")
	if err != nil {
		t.Fatalf("llm health: %v", err)
	}
	requireContains(t, out, "[OK]")
	requireContains(t, out, "openrouter (test-model)")

	env2 := setupCLITestEnv(t)
	out, _, err = runCLI(t, []string{"llm", "health"}, env2.configPath, "")
	if err == nil {
		t.Fatal("expected health check to fail against an unavailable provider")
	}
	requireContains(t, out, "[ERROR]")
}

func TestUnsupportedFormat(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"list", "--format", "xml"}, env.configPath, ""); err == nil {
		t.Fatal("expected unsupported format error")
	}
}
