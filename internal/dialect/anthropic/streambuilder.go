package anthropic

import (
	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

// builder reconstructs Anthropic's event-typed streaming envelope:
// message_start, a content_block_start/delta/stop run per block, a
// closing message_delta carrying stop_reason and usage, then
// message_stop. Each tool call and each reasoning run gets its own
// content block with an explicit index, unlike OpenAI's single
// implicit delta stream (spec §4.4).
type builder struct {
	fsm streambuilder.FSM

	textIndex      int
	textOpen       bool
	thinkingIndex  int
	thinkingOpen   bool
	nextBlockIndex int
	toolIndexSeen  map[int]bool
	toolBlockIndex map[int]int
	toolBlockOrder []int
}

func newStreamBuilder() *builder {
	return &builder{
		fsm:            streambuilder.NewFSM(),
		toolIndexSeen:  make(map[int]bool),
		toolBlockIndex: make(map[int]int),
	}
}

func (b *builder) Process(event ir.StreamEvent) ([]streambuilder.Frame, error) {
	switch event.Kind {
	case ir.EventStart:
		if b.fsm.State != streambuilder.Idle {
			return nil, nil
		}
		b.fsm.Start(event.StartID, event.StartModel)
		return []streambuilder.Frame{b.event("message_start", map[string]any{
			"type": "message_start",
			"message": map[string]any{
				"id":      b.fsm.ID,
				"type":    "message",
				"role":    "assistant",
				"model":   b.fsm.Model,
				"content": []any{},
				"usage":   map[string]any{"input_tokens": 0, "output_tokens": 0},
			},
		})}, nil

	case ir.EventContent:
		b.fsm.EnsureStarted()
		var frames []streambuilder.Frame
		if !b.textOpen {
			b.textIndex = b.allocBlockIndex()
			b.textOpen = true
			frames = append(frames, b.blockStart(b.textIndex, map[string]any{"type": "text", "text": ""}))
		}
		frames = append(frames, b.event("content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": b.textIndex,
			"delta": map[string]any{"type": "text_delta", "text": event.ContentDelta},
		}))
		return frames, nil

	case ir.EventReasoning:
		b.fsm.EnsureStarted()
		var frames []streambuilder.Frame
		if !b.thinkingOpen {
			b.thinkingIndex = b.allocBlockIndex()
			b.thinkingOpen = true
			frames = append(frames, b.blockStart(b.thinkingIndex, map[string]any{"type": "thinking", "thinking": ""}))
		}
		frames = append(frames, b.event("content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": b.thinkingIndex,
			"delta": map[string]any{"type": "thinking_delta", "thinking": event.ReasoningDelta},
		}))
		return frames, nil

	case ir.EventToolCall:
		b.fsm.EnsureStarted()
		var frames []streambuilder.Frame
		if !b.toolIndexSeen[event.ToolCallIndex] {
			b.toolIndexSeen[event.ToolCallIndex] = true
			blockIdx := b.allocBlockIndex()
			b.toolBlockIndex[event.ToolCallIndex] = blockIdx
			b.toolBlockOrder = append(b.toolBlockOrder, blockIdx)
			id := event.ToolCallID
			if id == "" {
				id = b.fsm.NextToolCallID(event.ToolCallName)
			}
			frames = append(frames, b.blockStart(blockIdx, map[string]any{
				"type":  "tool_use",
				"id":    id,
				"name":  event.ToolCallName,
				"input": map[string]any{},
			}))
		}
		blockIdx, ok := b.toolBlockIndex[event.ToolCallIndex]
		if !ok {
			return nil, &ir.Error{Type: ir.ErrValidation, Message: "tool_call fragment for unopened index"}
		}
		frames = append(frames, b.event("content_block_delta", map[string]any{
			"type":  "content_block_delta",
			"index": blockIdx,
			"delta": map[string]any{"type": "input_json_delta", "partial_json": event.ToolCallArguments},
		}))
		return frames, nil

	case ir.EventEnd:
		var frames []streambuilder.Frame
		frames = append(frames, b.closeOpenBlocks()...)
		frames = append(frames, b.event("message_delta", map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": unmapFinishReason(event.EndFinishReason)},
			"usage": usagePayload(event.EndUsage),
		}))
		frames = append(frames, b.event("message_stop", map[string]any{"type": "message_stop"}))
		b.fsm.Finish()
		return frames, nil

	case ir.EventError:
		b.fsm.Finish()
		return []streambuilder.Frame{b.event("error", map[string]any{
			"type": "error",
			"error": map[string]any{
				"type":    anthropicErrorCode(errType(event.Err)),
				"message": errMessage(event.Err),
			},
		})}, nil

	default:
		return nil, nil
	}
}

// Finalize is a no-op for Anthropic: message_stop is already emitted by
// Process on the end event, and there is no trailing sentinel frame
// like OpenAI's [DONE].
func (b *builder) Finalize() []streambuilder.Frame {
	if b.fsm.State == streambuilder.Done {
		return nil
	}
	b.fsm.Finish()
	return nil
}

func (b *builder) allocBlockIndex() int {
	idx := b.nextBlockIndex
	b.nextBlockIndex++
	return idx
}

func (b *builder) closeOpenBlocks() []streambuilder.Frame {
	var frames []streambuilder.Frame
	if b.textOpen {
		frames = append(frames, b.event("content_block_stop", map[string]any{"type": "content_block_stop", "index": b.textIndex}))
		b.textOpen = false
	}
	if b.thinkingOpen {
		frames = append(frames, b.event("content_block_stop", map[string]any{"type": "content_block_stop", "index": b.thinkingIndex}))
		b.thinkingOpen = false
	}
	// Iterate toolBlockOrder, not the map directly: block indices must
	// close in the order they opened so the same input stream always
	// produces the same wire output.
	for _, idx := range b.toolBlockOrder {
		frames = append(frames, b.event("content_block_stop", map[string]any{"type": "content_block_stop", "index": idx}))
	}
	return frames
}

func (b *builder) blockStart(index int, block map[string]any) streambuilder.Frame {
	return b.event("content_block_start", map[string]any{
		"type":          "content_block_start",
		"index":         index,
		"content_block": block,
	})
}

func (b *builder) event(name string, data any) streambuilder.Frame {
	return streambuilder.Frame{Event: name, Data: data}
}

func usagePayload(u *ir.Usage) map[string]any {
	if u == nil {
		return map[string]any{"output_tokens": 0}
	}
	return map[string]any{"output_tokens": u.CompletionTokens}
}

func errType(err *ir.Error) ir.ErrorType {
	if err == nil {
		return ir.ErrUnknown
	}
	return err.Type
}

func errMessage(err *ir.Error) string {
	if err == nil {
		return ""
	}
	return err.Message
}
