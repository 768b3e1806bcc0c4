package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/courseloom/tutor/internal/llm"
	"github.com/courseloom/tutor/internal/logging"
)

// loopState tracks where a single generation turn stands. The loop is
// deliberately two-state: at most one round of tool execution happens
// per query, then the follow-up response is final.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateExecutingTools
	stateDone
)

// Generator drives one model turn, including the optional tool round.
type Generator struct {
	client llm.Client
	logger logging.Logger
}

func NewGenerator(client llm.Client, logger logging.Logger) *Generator {
	return &Generator{client: client, logger: logger}
}

// Generate answers a single user query. When history is non-empty it is
// appended to the system prompt; when tools are supplied the model may
// request one round of tool calls, whose results are fed back in a
// follow-up request that carries no tool definitions.
//
// Tool execution failures are degraded to in-band result text so the
// model can acknowledge them; only transport-level LLM failures return
// an error.
func (g *Generator) Generate(ctx context.Context, query, history string, tools []llm.Tool, registry *Registry) (string, error) {
	system := SystemPrompt
	if history != "" {
		system += "\n\nPrevious conversation:\n" + history
	}

	userMsg := llm.TextMessage("user", query)
	req := llm.MessageRequest{
		System:   system,
		Messages: []llm.Message{userMsg},
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = "auto"
	}

	state := stateAwaitingModel
	var answer string

	for state != stateDone {
		switch state {
		case stateAwaitingModel:
			resp, err := g.createMessage(ctx, req)
			if err != nil {
				return "", err
			}
			if resp.StopReason == llm.StopReasonToolUse && registry != nil {
				req = g.buildFollowUp(ctx, system, userMsg, resp, registry)
				state = stateExecutingTools
				continue
			}
			answer = resp.FirstText()
			state = stateDone

		case stateExecutingTools:
			resp, err := g.createMessage(ctx, req)
			if err != nil {
				return "", err
			}
			answer = resp.FirstText()
			state = stateDone
		}
	}
	return answer, nil
}

func (g *Generator) createMessage(ctx context.Context, req llm.MessageRequest) (*llm.MessageResponse, error) {
	start := time.Now()
	resp, err := g.client.CreateMessage(ctx, req)
	llmCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		llmCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	llmCallsTotal.WithLabelValues("ok").Inc()
	return resp, nil
}

// buildFollowUp executes every tool_use block in order and assembles
// the three-message follow-up: the original user message, the
// assistant's content verbatim, and a user message of tool results.
// The follow-up intentionally omits Tools and ToolChoice so the model
// must produce a final text answer.
func (g *Generator) buildFollowUp(ctx context.Context, system string, userMsg llm.Message, resp *llm.MessageResponse, registry *Registry) llm.MessageRequest {
	var results []llm.ContentBlock
	for _, use := range resp.ToolUses() {
		content, err := registry.Invoke(ctx, use.Name, use.Input)
		if err != nil {
			toolCallsTotal.WithLabelValues(use.Name, "error").Inc()
			g.logger.WithFields(logging.Fields{
				"tool":  use.Name,
				"error": err.Error(),
			}).Warn("Tool execution failed")
			content = fmt.Sprintf("Tool '%s' failed: %v", use.Name, err)
		} else {
			toolCallsTotal.WithLabelValues(use.Name, "ok").Inc()
		}
		results = append(results, llm.ContentBlock{
			Type:      llm.BlockTypeToolResult,
			ToolUseID: use.ID,
			Content:   content,
		})
	}

	return llm.MessageRequest{
		System:   system,
		Messages: []llm.Message{
			userMsg,
			{Role: "assistant", Content: resp.Content},
			{Role: "user", Content: results},
		},
	}
}
