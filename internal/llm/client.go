package llm

import (
	"context"
	"encoding/json"
)

// Content block types as they appear on the Anthropic Messages wire.
const (
	BlockTypeText       = "text"
	BlockTypeToolUse    = "tool_use"
	BlockTypeToolResult = "tool_result"
)

// Stop reasons signalled by the model.
const (
	StopReasonEndTurn = "end_turn"
	StopReasonToolUse = "tool_use"
)

// Tool describes a callable tool in the shape the Messages API expects.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// ContentBlock is one block of a message. Text blocks carry Text; tool_use
// blocks carry ID, Name and Input; tool_result blocks carry ToolUseID and
// Content.
type ContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// Message is a single conversation turn made of content blocks.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a message with a single text block.
func TextMessage(role, text string) Message {
	return Message{
		Role:    role,
		Content: []ContentBlock{{Type: BlockTypeText, Text: text}},
	}
}

// MessageRequest is a provider-independent completion request. Model,
// max_tokens and temperature are client-level settings.
type MessageRequest struct {
	System     string
	Messages   []Message
	Tools      []Tool
	ToolChoice string // "auto" to let the model decide; empty omits tool_choice
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// MessageResponse is the decoded model reply.
type MessageResponse struct {
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// FirstText returns the content of the first text block, or "" when the
// reply carries none.
func (r *MessageResponse) FirstText() string {
	for _, block := range r.Content {
		if block.Type == BlockTypeText {
			return block.Text
		}
	}
	return ""
}

// ToolUses returns the tool_use blocks in the order they appear.
func (r *MessageResponse) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, block := range r.Content {
		if block.Type == BlockTypeToolUse {
			uses = append(uses, block)
		}
	}
	return uses
}

// Client completes conversations against an LLM vendor.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}
