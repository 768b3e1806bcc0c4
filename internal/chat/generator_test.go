package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/courseloom/tutor/internal/llm"
	"github.com/courseloom/tutor/internal/logging"
)

// fakeClient replays scripted responses and records every request.
type fakeClient struct {
	responses []*llm.MessageResponse
	err       error
	requests  []llm.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.requests) > len(f.responses) {
		return nil, errors.New("no scripted response left")
	}
	return f.responses[len(f.requests)-1], nil
}

func textResponse(text string) *llm.MessageResponse {
	return &llm.MessageResponse{
		Content:    []llm.ContentBlock{{Type: llm.BlockTypeText, Text: text}},
		StopReason: llm.StopReasonEndTurn,
	}
}

func toolUseResponse(blocks ...llm.ContentBlock) *llm.MessageResponse {
	return &llm.MessageResponse{
		Content:    blocks,
		StopReason: llm.StopReasonToolUse,
	}
}

func newTestGenerator(client llm.Client) *Generator {
	return NewGenerator(client, logging.NewLogger())
}

func TestGenerateDirectAnswer(t *testing.T) {
	client := &fakeClient{responses: []*llm.MessageResponse{textResponse("hello")}}
	g := newTestGenerator(client)

	answer, err := g.Generate(context.Background(), "hi", "", nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "hello" {
		t.Errorf("got %q", answer)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected one call, got %d", len(client.requests))
	}
	req := client.requests[0]
	if len(req.Tools) != 0 || req.ToolChoice != "" {
		t.Errorf("no tools supplied, request must carry none: %+v", req)
	}
	if req.System != SystemPrompt {
		t.Errorf("empty history must leave the system prompt bare")
	}
}

func TestGenerateAppendsHistoryToSystem(t *testing.T) {
	client := &fakeClient{responses: []*llm.MessageResponse{textResponse("ok")}}
	g := newTestGenerator(client)

	if _, err := g.Generate(context.Background(), "next", "User: a\nAssistant: b", nil, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	system := client.requests[0].System
	if !strings.HasPrefix(system, SystemPrompt) {
		t.Error("system must start with the base prompt")
	}
	if !strings.Contains(system, "Previous conversation:\nUser: a\nAssistant: b") {
		t.Errorf("history missing from system: %q", system)
	}
}

func TestGenerateToolRound(t *testing.T) {
	toolUse := llm.ContentBlock{
		Type:  llm.BlockTypeToolUse,
		ID:    "tu_1",
		Name:  "search_course_content",
		Input: json.RawMessage(`{"query":"variables"}`),
	}
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(toolUse),
		textResponse("final answer"),
	}}
	g := newTestGenerator(client)

	registry := NewRegistry()
	tool := &stubTool{name: "search_course_content", result: "chunk text"}
	if err := registry.Register(tool); err != nil {
		t.Fatal(err)
	}

	answer, err := g.Generate(context.Background(), "what are variables?", "", registry.Definitions(), registry)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "final answer" {
		t.Errorf("got %q", answer)
	}
	if !tool.executed {
		t.Fatal("tool was never executed")
	}
	if string(tool.lastArgs) != `{"query":"variables"}` {
		t.Errorf("tool received wrong args: %s", tool.lastArgs)
	}

	if len(client.requests) != 2 {
		t.Fatalf("expected two calls, got %d", len(client.requests))
	}
	first, followUp := client.requests[0], client.requests[1]

	if len(first.Tools) != 1 || first.ToolChoice != "auto" {
		t.Errorf("initial request must offer tools with auto choice: %+v", first)
	}
	if len(followUp.Tools) != 0 || followUp.ToolChoice != "" {
		t.Error("follow-up must not carry tools or tool_choice")
	}
	if followUp.System != first.System {
		t.Error("follow-up must reuse the original system prompt")
	}

	if len(followUp.Messages) != 3 {
		t.Fatalf("follow-up must have 3 messages, got %d", len(followUp.Messages))
	}
	if followUp.Messages[0].Role != "user" || followUp.Messages[0].Content[0].Text != "what are variables?" {
		t.Errorf("first follow-up message must be the original query: %+v", followUp.Messages[0])
	}
	if followUp.Messages[1].Role != "assistant" {
		t.Errorf("second message must be the assistant turn: %+v", followUp.Messages[1])
	}
	if followUp.Messages[1].Content[0].ID != "tu_1" {
		t.Error("assistant content must be carried verbatim")
	}
	result := followUp.Messages[2]
	if result.Role != "user" {
		t.Errorf("third message must be a user turn: %+v", result)
	}
	block := result.Content[0]
	if block.Type != llm.BlockTypeToolResult || block.ToolUseID != "tu_1" || block.Content != "chunk text" {
		t.Errorf("unexpected tool result block: %+v", block)
	}
}

func TestGenerateMultipleToolUsesInOrder(t *testing.T) {
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(
			llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_1", Name: "first", Input: json.RawMessage(`{}`)},
			llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_2", Name: "second", Input: json.RawMessage(`{}`)},
		),
		textResponse("done"),
	}}
	g := newTestGenerator(client)

	registry := NewRegistry()
	if err := registry.Register(&stubTool{name: "first", result: "one"}); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register(&stubTool{name: "second", result: "two"}); err != nil {
		t.Fatal(err)
	}

	if _, err := g.Generate(context.Background(), "q", "", registry.Definitions(), registry); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	results := client.requests[1].Messages[2].Content
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}
	if results[0].ToolUseID != "tu_1" || results[0].Content != "one" {
		t.Errorf("first result out of order: %+v", results[0])
	}
	if results[1].ToolUseID != "tu_2" || results[1].Content != "two" {
		t.Errorf("second result out of order: %+v", results[1])
	}
}

func TestGenerateUnknownToolDegradesInBand(t *testing.T) {
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_1", Name: "ghost", Input: json.RawMessage(`{}`)}),
		textResponse("recovered"),
	}}
	g := newTestGenerator(client)

	answer, err := g.Generate(context.Background(), "q", "", nil, NewRegistry())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("got %q", answer)
	}
	block := client.requests[1].Messages[2].Content[0]
	if block.Content != "Tool 'ghost' not found" {
		t.Errorf("got %q", block.Content)
	}
}

func TestGenerateToolFailureDegradesInBand(t *testing.T) {
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_1", Name: "broken", Input: json.RawMessage(`{}`)}),
		textResponse("recovered"),
	}}
	g := newTestGenerator(client)

	registry := NewRegistry()
	if err := registry.Register(&stubTool{name: "broken", err: errors.New("db down")}); err != nil {
		t.Fatal(err)
	}

	answer, err := g.Generate(context.Background(), "q", "", registry.Definitions(), registry)
	if err != nil {
		t.Fatalf("tool failure must not fail the turn: %v", err)
	}
	if answer != "recovered" {
		t.Errorf("got %q", answer)
	}
	block := client.requests[1].Messages[2].Content[0]
	if block.Content != "Tool 'broken' failed: db down" {
		t.Errorf("got %q", block.Content)
	}
}

func TestGenerateToolUseWithoutRegistry(t *testing.T) {
	// With no registry, a tool_use stop is treated as a final answer.
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(
			llm.ContentBlock{Type: llm.BlockTypeText, Text: "partial thought"},
			llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_1", Name: "x", Input: json.RawMessage(`{}`)},
		),
	}}
	g := newTestGenerator(client)

	answer, err := g.Generate(context.Background(), "q", "", nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "partial thought" {
		t.Errorf("got %q", answer)
	}
	if len(client.requests) != 1 {
		t.Errorf("expected a single call, got %d", len(client.requests))
	}
}

func TestGenerateSingleToolRoundOnly(t *testing.T) {
	// Even if the follow-up stops with tool_use again, no further tools run.
	client := &fakeClient{responses: []*llm.MessageResponse{
		toolUseResponse(llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_1", Name: "alpha", Input: json.RawMessage(`{}`)}),
		toolUseResponse(
			llm.ContentBlock{Type: llm.BlockTypeText, Text: "settled"},
			llm.ContentBlock{Type: llm.BlockTypeToolUse, ID: "tu_2", Name: "alpha", Input: json.RawMessage(`{}`)},
		),
	}}
	g := newTestGenerator(client)

	registry := NewRegistry()
	tool := &stubTool{name: "alpha", result: "once"}
	if err := registry.Register(tool); err != nil {
		t.Fatal(err)
	}

	answer, err := g.Generate(context.Background(), "q", "", registry.Definitions(), registry)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "settled" {
		t.Errorf("got %q", answer)
	}
	if len(client.requests) != 2 {
		t.Errorf("expected exactly two calls, got %d", len(client.requests))
	}
}

func TestGenerateTransportError(t *testing.T) {
	client := &fakeClient{err: errors.New("connection refused")}
	g := newTestGenerator(client)

	if _, err := g.Generate(context.Background(), "q", "", nil, nil); err == nil {
		t.Error("transport failure must surface as an error")
	}
}
