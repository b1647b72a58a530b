// Package anthropic implements the Anthropic Messages dialect: a
// top-level system field, tool_use/tool_result content parts, optional
// thinking blocks, and an event-typed SSE streaming envelope
// (message_start, content_block_*, message_delta, message_stop).
package anthropic

import (
	"encoding/json"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

// wireRequest is the native Anthropic Messages API request shape,
// decoded by hand (rather than via the SDK's param types, which are
// write-only helpers meant for building outbound requests).
type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []wireMessage   `json:"messages"`
	System      json.RawMessage `json:"system,omitempty"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	TopK        *int            `json:"top_k,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	StopSeqs    []string        `json:"stop_sequences,omitempty"`
	Tools       []wireTool      `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
	Thinking    *wireThinking   `json:"thinking,omitempty"`
}

type wireThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// wireBlock is a tagged union over the content block shapes Anthropic
// messages carry: text, image, tool_use, tool_result, thinking.
type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *wireImageSrc   `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
}

type wireImageSrc struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

// wireResponse is the native Anthropic Messages API response shape.
type wireResponse struct {
	ID         string      `json:"id"`
	Model      string      `json:"model"`
	StopReason string      `json:"stop_reason"`
	Content    []wireBlock `json:"content"`
	Usage      wireUsage   `json:"usage"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}

// wireErrorPayload is the `{"type":"error","error":{...}}` envelope.
type wireErrorPayload struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func mapStopReason(r string) ir.FinishReason {
	switch r {
	case "end_turn":
		return ir.FinishEndTurn
	case "max_tokens":
		return ir.FinishLength
	case "tool_use":
		return ir.FinishToolCalls
	case "stop_sequence":
		return ir.FinishStop
	default:
		return ir.FinishStop
	}
}

func unmapFinishReason(r ir.FinishReason) string {
	switch r {
	case ir.FinishToolCalls:
		return "tool_use"
	case ir.FinishLength:
		return "max_tokens"
	case ir.FinishEndTurn, ir.FinishStop, "":
		return "end_turn"
	default:
		return "end_turn"
	}
}
