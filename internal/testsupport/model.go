package testsupport

import (
	"context"
	"errors"
	"sync"
)

// ProblemAreasResponse, ExcerptsResponse and SynthesisResponse script a
// successful analysis of SampleCaptions.
const (
	ProblemAreasResponse = `{"problemAreas":[{"id":"1","title":"Manual invoice tracking","description":"Invoices are reconciled by hand in spreadsheets."}]}`
	ExcerptsResponse     = "```json\n" + `{"problemAreas":[{"id":"1","excerpts":[{"quote":"","categories":["PainPoint"],"insight":"Weekly manual effort","chunkNumber":2}]}]}` + "\n```"
	SynthesisResponse    = `{"text":"Dana spends hours each week reconciling invoices by hand."}`
)

// AnalysisResponses returns the three scripted responses in stage order.
func AnalysisResponses() []string {
	return []string{ProblemAreasResponse, ExcerptsResponse, SynthesisResponse}
}

// ErrScriptExhausted is returned when StubModel runs out of responses.
var ErrScriptExhausted = errors.New("stub model: no scripted response left")

// StubModel replays scripted responses in order and records every prompt.
type StubModel struct {
	mu        sync.Mutex
	name      string
	responses []string
	errs      map[int]error
	prompts   []string
}

// NewStubModel returns a model client that answers with responses in order.
func NewStubModel(responses ...string) *StubModel {
	return &StubModel{name: "stub", responses: responses, errs: map[int]error{}}
}

// FailOn makes the call with the given zero-based index return err.
func (m *StubModel) FailOn(call int, err error) *StubModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[call] = err
	return m
}

// Named overrides the provider name reported to breakers and logs.
func (m *StubModel) Named(name string) *StubModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	return m
}

// Complete implements the pipeline model client.
func (m *StubModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	if err, ok := m.errs[call]; ok {
		return "", err
	}
	if call >= len(m.responses) {
		return "", ErrScriptExhausted
	}
	return m.responses[call], nil
}

// Name implements the pipeline model client.
func (m *StubModel) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Calls reports how many completions were requested.
func (m *StubModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns a copy of the prompts received so far.
func (m *StubModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
