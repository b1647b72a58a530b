package gemini

import (
	"encoding/json"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

// builder reconstructs Gemini's streamGenerateContent envelope: a bare
// JSON GenerateContentResponse object per chunk, with no named SSE
// event and no explicit opener (spec §4.4). Each IR event maps to one
// candidate carrying the delta that arrived since the last chunk; the
// final chunk folds in finishReason and usageMetadata.
type builder struct {
	fsm streambuilder.FSM

	toolCallSeen map[int]string
}

func newStreamBuilder() *builder {
	return &builder{toolCallSeen: make(map[int]string)}
}

func (b *builder) Process(event ir.StreamEvent) ([]streambuilder.Frame, error) {
	switch event.Kind {
	case ir.EventStart:
		b.fsm.Start(event.StartID, event.StartModel)
		return nil, nil

	case ir.EventContent:
		b.fsm.EnsureStarted()
		return []streambuilder.Frame{b.frame(wireResponse{
			Candidates: []wireCandidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{{Text: event.ContentDelta}}},
				Index:   event.ContentIndex,
			}},
		})}, nil

	case ir.EventReasoning:
		b.fsm.EnsureStarted()
		return []streambuilder.Frame{b.frame(wireResponse{
			Candidates: []wireCandidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{{Text: event.ReasoningDelta, Thought: true}}},
			}},
		})}, nil

	case ir.EventToolCall:
		b.fsm.EnsureStarted()
		name := event.ToolCallName
		if name == "" {
			name = b.toolCallSeen[event.ToolCallIndex]
		} else {
			b.toolCallSeen[event.ToolCallIndex] = name
		}
		var args map[string]any
		if event.ToolCallArguments != "" {
			args = decodeArgsLoose(event.ToolCallArguments)
		}
		return []streambuilder.Frame{b.frame(wireResponse{
			Candidates: []wireCandidate{{
				Content: wireContent{Role: "model", Parts: []wirePart{{
					FunctionCall: &wireFunctionCall{Name: name, Args: args},
				}}},
				Index: event.ToolCallIndex,
			}},
		})}, nil

	case ir.EventEnd:
		b.fsm.Finish()
		return []streambuilder.Frame{b.frame(wireResponse{
			Candidates: []wireCandidate{{
				FinishReason: unmapFinishReason(event.EndFinishReason),
			}},
			UsageMetadata: usageOut(event.EndUsage),
		})}, nil

	case ir.EventError:
		b.fsm.Finish()
		return []streambuilder.Frame{b.frame(wireErrorPayload{
			Error: wireErrorBody{
				Message: errMessage(event.Err),
				Status:  geminiStatusCode(errType(event.Err)),
				Code:    errStatusCode(event.Err),
			},
		})}, nil

	default:
		return nil, nil
	}
}

// Finalize is a no-op: Gemini has no closing sentinel analogous to
// OpenAI's [DONE], and the terminal chunk is already emitted by
// Process on the end/error event.
func (b *builder) Finalize() []streambuilder.Frame {
	if b.fsm.State != streambuilder.Done {
		b.fsm.Finish()
	}
	return nil
}

func (b *builder) frame(data any) streambuilder.Frame {
	return streambuilder.Frame{Data: data}
}

// decodeArgsLoose best-effort parses a (possibly partial, mid-stream)
// JSON argument fragment; callers treat a failed parse as "not yet
// representable" rather than an error, since Gemini tool-call
// arguments arrive whole rather than incrementally in practice.
func decodeArgsLoose(s string) map[string]any {
	var m map[string]any
	if json.Unmarshal([]byte(s), &m) == nil {
		return m
	}
	return nil
}

func usageOut(u *ir.Usage) *wireUsage {
	if u == nil {
		return nil
	}
	return &wireUsage{CandidatesTokenCount: u.CompletionTokens, PromptTokenCount: u.PromptTokens, TotalTokenCount: u.TotalTokens}
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

func errStatusCode(err *ir.Error) int {
	if err == nil {
		return 500
	}
	return err.Type.StatusCode()
}
