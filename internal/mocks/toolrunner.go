package mocks

import (
	"context"
	"strings"

	"github.com/mcdonaldj/genbak/internal/ports"
)

// MockToolRunner implements ports.ToolRunner for testing.
type MockToolRunner struct {
	// Calls records every invocation in order.
	Calls []ToolCall
	// Results maps tool names to the result returned for them.
	Results map[string]ports.ToolResult
	// Errors maps tool names to start failures.
	Errors map[string]error
	// OnRun, when set, is called for every invocation before the result
	// is returned. Tests use it to simulate the tool's side effects.
	OnRun func(name string, args []string)
}

// ToolCall records parameters of a Run call.
type ToolCall struct {
	Name string
	Args []string
}

// String renders the call as a command line.
func (c ToolCall) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// NewMockToolRunner creates a runner where every tool exits 0.
func NewMockToolRunner() *MockToolRunner {
	return &MockToolRunner{
		Results: make(map[string]ports.ToolResult),
		Errors:  make(map[string]error),
	}
}

// Run records the call and returns the configured result.
func (m *MockToolRunner) Run(ctx context.Context, name string, args ...string) (ports.ToolResult, error) {
	m.Calls = append(m.Calls, ToolCall{Name: name, Args: append([]string(nil), args...)})
	if err, ok := m.Errors[name]; ok {
		return ports.ToolResult{}, err
	}
	if m.OnRun != nil {
		m.OnRun(name, args)
	}
	return m.Results[name], nil
}

// Compile-time check that MockToolRunner implements ports.ToolRunner.
var _ ports.ToolRunner = (*MockToolRunner)(nil)
