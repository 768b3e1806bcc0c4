package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/courseloom/tutor/internal/llm"
)

type stubTool struct {
	name    string
	result  string
	err     error
	sources []Source

	executed bool
	reset    bool
	lastArgs json.RawMessage
}

func (s *stubTool) Definition() llm.Tool {
	return llm.Tool{Name: s.name, InputSchema: toolSchema(map[string]any{}, nil)}
}

func (s *stubTool) Execute(_ context.Context, args json.RawMessage) (string, error) {
	s.executed = true
	s.lastArgs = args
	return s.result, s.err
}

func (s *stubTool) Sources() []Source { return s.sources }

func (s *stubTool) ResetSources() {
	s.reset = true
	s.sources = nil
}

func TestRegistryDefinitionsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"charlie", "alpha", "bravo"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	defs := r.Definitions()
	got := []string{defs[0].Name, defs[1].Name, defs[2].Name}
	want := []string{"charlie", "alpha", "bravo"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("definition order = %v, want %v", got, want)
		}
	}
}

func TestRegistryReplacementKeepsPosition(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "alpha", result: "old"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubTool{name: "bravo"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&stubTool{name: "alpha", result: "new"}); err != nil {
		t.Fatal(err)
	}

	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "alpha" || defs[1].Name != "bravo" {
		t.Fatalf("unexpected definitions after replacement: %v", defs)
	}
	out, err := r.Invoke(context.Background(), "alpha", json.RawMessage(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	if out != "new" {
		t.Errorf("replacement did not take effect, got %q", out)
	}
}

func TestRegistryRejectsNamelessTool(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: ""}); err == nil {
		t.Error("expected error for nameless tool")
	}
}

func TestRegistryInvokeUnknownTool(t *testing.T) {
	r := NewRegistry()
	out, err := r.Invoke(context.Background(), "missing", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("unknown tool must not produce an error, got %v", err)
	}
	if out != "Tool 'missing' not found" {
		t.Errorf("got %q", out)
	}
}

func TestRegistryInvokePropagatesToolError(t *testing.T) {
	r := NewRegistry()
	wantErr := errors.New("boom")
	if err := r.Register(&stubTool{name: "alpha", err: wantErr}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Invoke(context.Background(), "alpha", json.RawMessage(`{}`)); !errors.Is(err, wantErr) {
		t.Errorf("expected tool error to propagate, got %v", err)
	}
}

func TestRegistryCollectSourcesFirstNonEmptyWins(t *testing.T) {
	r := NewRegistry()
	empty := &stubTool{name: "empty"}
	first := &stubTool{name: "first", sources: []Source{{Title: "A"}}}
	second := &stubTool{name: "second", sources: []Source{{Title: "B"}}}
	for _, tool := range []Tool{empty, first, second} {
		if err := r.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	sources := r.CollectSources()
	if len(sources) != 1 || sources[0].Title != "A" {
		t.Errorf("expected first non-empty list to win, got %v", sources)
	}
}

func TestRegistryCollectSourcesEmpty(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "alpha"}); err != nil {
		t.Fatal(err)
	}
	if sources := r.CollectSources(); sources != nil {
		t.Errorf("expected nil for no sources, got %v", sources)
	}
}

func TestRegistryResetSourcesClearsAll(t *testing.T) {
	r := NewRegistry()
	a := &stubTool{name: "alpha", sources: []Source{{Title: "A"}}}
	b := &stubTool{name: "bravo", sources: []Source{{Title: "B"}}}
	for _, tool := range []Tool{a, b} {
		if err := r.Register(tool); err != nil {
			t.Fatal(err)
		}
	}

	r.ResetSources()
	if !a.reset || !b.reset {
		t.Error("reset must reach every registered tool")
	}
	if sources := r.CollectSources(); sources != nil {
		t.Errorf("expected no sources after reset, got %v", sources)
	}
}
