package ir

// StreamEventKind discriminates the LLMStreamEvent tagged union. A single
// response's event sequence obeys the regular language
// start (content | reasoning | tool_call)* (end | error).
type StreamEventKind string

const (
	EventStart     StreamEventKind = "start"
	EventContent   StreamEventKind = "content"
	EventReasoning StreamEventKind = "reasoning"
	EventToolCall  StreamEventKind = "tool_call"
	EventEnd       StreamEventKind = "end"
	EventError     StreamEventKind = "error"
)

// StreamEvent is the tagged union of events a dialect stream parser emits
// and a stream builder consumes. Only the fields matching Kind are
// meaningful.
type StreamEvent struct {
	Kind StreamEventKind

	// EventStart
	StartID    string
	StartModel string

	// EventContent
	ContentDelta string
	ContentIndex int

	// EventReasoning
	ReasoningDelta string

	// EventToolCall
	ToolCallIndex     int
	ToolCallID        string // present only on the first fragment for Index
	ToolCallName      string // present only on the first fragment for Index
	ToolCallArguments string // argument-fragment delta, appended by the builder

	// EventEnd
	EndFinishReason FinishReason
	EndUsage        *Usage

	// EventError
	Err *Error
}

// Start builds a start event.
func Start(id, model string) StreamEvent {
	return StreamEvent{Kind: EventStart, StartID: id, StartModel: model}
}

// Content builds a content-delta event.
func Content(delta string, index int) StreamEvent {
	return StreamEvent{Kind: EventContent, ContentDelta: delta, ContentIndex: index}
}

// Reasoning builds a reasoning-delta event.
func Reasoning(delta string) StreamEvent {
	return StreamEvent{Kind: EventReasoning, ReasoningDelta: delta}
}

// ToolCallFragment builds a tool-call assembly event.
func ToolCallFragment(index int, id, name, argsDelta string) StreamEvent {
	return StreamEvent{
		Kind:              EventToolCall,
		ToolCallIndex:     index,
		ToolCallID:        id,
		ToolCallName:      name,
		ToolCallArguments: argsDelta,
	}
}

// End builds a terminal end event.
func End(reason FinishReason, usage *Usage) StreamEvent {
	return StreamEvent{Kind: EventEnd, EndFinishReason: reason, EndUsage: usage}
}

// ErrorEvent builds a terminal error event.
func ErrorEvent(err *Error) StreamEvent {
	return StreamEvent{Kind: EventError, Err: err}
}

// Terminal reports whether this event ends a response's event sequence.
func (e StreamEvent) Terminal() bool {
	return e.Kind == EventEnd || e.Kind == EventError
}
