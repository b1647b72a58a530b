// Package openai implements the OpenAI chat-completions dialect adapter.
// It doubles as the shared implementation the DeepSeek, Moonshot, Qwen,
// and Zhipu dialects wrap, since spec §4.3 documents all four as
// structurally identical to OpenAI (messages, tool-call encoding,
// streaming envelope); only the reasoning-surface field and endpoint
// defaults differ.
package openai

import (
	"encoding/json"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

// ReasoningField names the dialect-specific field carrying hidden
// chain-of-thought text, when the dialect surfaces one (spec §4.3):
// DeepSeek and Moonshot/Qwen use "reasoning_content" on both the message
// and the stream delta; plain OpenAI and Zhipu have none.
type ReasoningField string

const NoReasoningField ReasoningField = ""

// wireMessage describes the message-level reasoning_content extension
// some OpenAI-compatible dialects add. Messages are decoded into the SDK
// type only and convertMessageIn does not read this field, so a unary
// message's reasoning_content is not carried into IR; only the stream
// delta's is (see streamChunk).
type wireMessage struct {
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// wireRequest mirrors the request body's top-level JSON shape for the
// fields the OpenAI SDK type doesn't carry but OpenAI-compatible
// dialects sometimes add alongside it (e.g. Qwen's enable_thinking,
// DeepSeek has none beyond reasoning_content).
type wireRequest struct {
	EnableThinking *bool `json:"enable_thinking,omitempty"`
}

// decodeRequest unmarshals body into the SDK request type plus the
// enable_thinking extension field (wireRequest).
func decodeRequest(body []byte) (openaisdk.ChatCompletionRequest, wireRequest, error) {
	var req openaisdk.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return req, wireRequest{}, &ir.Error{Type: ir.ErrValidation, Message: "malformed request body: " + err.Error(), Cause: err}
	}
	var extra wireRequest
	_ = json.Unmarshal(body, &extra) // best-effort; absent fields are fine
	return req, extra, nil
}

// streamChunk mirrors openaisdk.ChatCompletionStreamResponse's JSON
// shape, hand-decoded (rather than via the SDK's streaming client)
// since the proxy reads raw upstream SSE frames through its own
// transport layer, plus the reasoning_content delta extension.
type streamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Created int64  `json:"created"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role             string               `json:"role,omitempty"`
			Content          string               `json:"content,omitempty"`
			ReasoningContent string               `json:"reasoning_content,omitempty"`
			ToolCalls        []openaisdk.ToolCall `json:"tool_calls,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *openaisdk.Usage `json:"usage,omitempty"`
}

// wireError mirrors OpenAI's `{"error": {...}}` envelope, which every
// OpenAI-compatible dialect also uses for error bodies.
type wireError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func mapFinishReason(s string) ir.FinishReason {
	switch s {
	case "stop":
		return ir.FinishStop
	case "length":
		return ir.FinishLength
	case "tool_calls", "function_call":
		return ir.FinishToolCalls
	case "content_filter":
		return ir.FinishContentFilter
	default:
		return ir.FinishStop
	}
}

func unmapFinishReason(r ir.FinishReason) string {
	switch r {
	case ir.FinishStop, ir.FinishEndTurn:
		return "stop"
	case ir.FinishLength:
		return "length"
	case ir.FinishToolCalls:
		return "tool_calls"
	case ir.FinishContentFilter:
		return "content_filter"
	default:
		return "stop"
	}
}
