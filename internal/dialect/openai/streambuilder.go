package openai

import (
	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

// builder reconstructs OpenAI's streaming envelope: a run of
// `data: {...}` chunks each carrying a `delta`, terminated by `data:
// [DONE]`. The opening chunk carries `delta.role = "assistant"`;
// subsequent chunks carry only the incremental fields.
type builder struct {
	fsm streambuilder.FSM

	// toolIndexSeen records which tool-call indices already had their
	// id/name emitted, so later fragments only carry argument deltas
	// (spec §4.4).
	toolIndexSeen map[int]bool
}

func newStreamBuilder() *builder {
	return &builder{fsm: streambuilder.NewFSM(), toolIndexSeen: make(map[int]bool)}
}

func (b *builder) Process(event ir.StreamEvent) ([]streambuilder.Frame, error) {
	switch event.Kind {
	case ir.EventStart:
		if b.fsm.State != streambuilder.Idle {
			return nil, nil
		}
		b.fsm.Start(event.StartID, event.StartModel)
		return []streambuilder.Frame{b.chunk(chunkDelta{Role: "assistant"}, "")}, nil

	case ir.EventContent:
		b.fsm.EnsureStarted()
		return []streambuilder.Frame{b.chunk(chunkDelta{Content: event.ContentDelta}, "")}, nil

	case ir.EventReasoning:
		b.fsm.EnsureStarted()
		return []streambuilder.Frame{b.chunk(chunkDelta{ReasoningContent: event.ReasoningDelta}, "")}, nil

	case ir.EventToolCall:
		b.fsm.EnsureStarted()
		first := !b.toolIndexSeen[event.ToolCallIndex]
		b.toolIndexSeen[event.ToolCallIndex] = true
		delta := chunkDelta{}
		tc := chunkToolCallDelta{Index: event.ToolCallIndex}
		if first {
			id := event.ToolCallID
			if id == "" {
				id = b.fsm.NextToolCallID(event.ToolCallName)
			}
			tc.ID = id
			tc.Type = "function"
			tc.Function.Name = event.ToolCallName
		}
		tc.Function.Arguments = event.ToolCallArguments
		delta.ToolCalls = []chunkToolCallDelta{tc}
		return []streambuilder.Frame{b.chunk(delta, "")}, nil

	case ir.EventEnd:
		b.fsm.Finish()
		return []streambuilder.Frame{b.chunk(chunkDelta{}, unmapFinishReason(event.EndFinishReason), event.EndUsage)}, nil

	case ir.EventError:
		b.fsm.Finish()
		return []streambuilder.Frame{{Data: errorFrame(event.Err)}}, nil

	default:
		return nil, nil
	}
}

func (b *builder) Finalize() []streambuilder.Frame {
	if b.fsm.State == streambuilder.Done {
		return []streambuilder.Frame{{Data: streambuilder.DoneSentinel}}
	}
	// Cancelled mid-stream: no further content frames, but the client
	// still needs the sentinel to close its own SSE parser cleanly.
	b.fsm.Finish()
	return []streambuilder.Frame{{Data: streambuilder.DoneSentinel}}
}

type chunkDelta struct {
	Role             string               `json:"role,omitempty"`
	Content          string               `json:"content,omitempty"`
	ReasoningContent string               `json:"reasoning_content,omitempty"`
	ToolCalls        []chunkToolCallDelta `json:"tool_calls,omitempty"`
}

type chunkToolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

func (b *builder) chunk(delta chunkDelta, finishReason string, usage ...*ir.Usage) streambuilder.Frame {
	choice := map[string]any{
		"index": 0,
		"delta": delta,
	}
	if finishReason != "" {
		choice["finish_reason"] = finishReason
	} else {
		choice["finish_reason"] = nil
	}
	out := map[string]any{
		"id":      b.fsm.ID,
		"object":  "chat.completion.chunk",
		"model":   b.fsm.Model,
		"choices": []any{choice},
	}
	if len(usage) > 0 && usage[0] != nil {
		out["usage"] = map[string]any{
			"prompt_tokens":     usage[0].PromptTokens,
			"completion_tokens": usage[0].CompletionTokens,
			"total_tokens":      usage[0].TotalTokens,
		}
	}
	return streambuilder.Frame{Data: out}
}

func errorFrame(err *ir.Error) map[string]any {
	if err == nil {
		err = &ir.Error{Type: ir.ErrUnknown}
	}
	return map[string]any{
		"error": map[string]any{
			"message": err.Message,
			"type":    string(err.Type),
			"code":    err.Code,
		},
	}
}
