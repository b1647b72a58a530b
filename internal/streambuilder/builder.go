// Package streambuilder implements the per-response stateful reconstructor
// that turns a sequence of IR stream events into a dialect's native
// streamed envelope. One Builder is allocated per HTTP response and
// discarded afterward; state is never shared or pooled across requests
// (spec §9).
package streambuilder

import (
	"strconv"
	"sync/atomic"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

// State is the builder's lifecycle stage.
type State int

const (
	Idle State = iota
	Streaming
	Done
)

// Frame is the neutral serialization unit the HTTP layer writes to the
// client, one per SSE `data:`/`event:` pair (or, for Gemini, one bare
// JSON object).
type Frame struct {
	Event string // empty for dialects without named SSE events
	Data  any    // marshaled to JSON by the bridge engine, or the literal "[DONE]" sentinel
}

// DoneSentinel is the frame the bridge engine writes verbatim (not JSON-encoded)
// to terminate an OpenAI-family stream.
const DoneSentinel = "[DONE]"

// BlockKind identifies what an open content-block index holds, for
// dialects (Anthropic) whose envelope tracks explicit block boundaries.
type BlockKind string

const (
	BlockText     BlockKind = "text"
	BlockThinking BlockKind = "thinking"
	BlockToolUse  BlockKind = "tool_use"
)

// Builder is the interface every dialect's stream builder implements.
// Process consumes one IR event and returns the frames it produces;
// Finalize is called exactly once after the upstream stream closes
// (cleanly or by cancellation) and returns any closing frames still
// owed (e.g. `data: [DONE]`).
type Builder interface {
	Process(event ir.StreamEvent) ([]Frame, error)
	Finalize() []Frame
}

// FSM is the shared state-machine bookkeeping every dialect builder
// embeds: the Idle -> Streaming -> Done lifecycle, the id/model
// allocated at start, the map of open content-block indices to kind, and
// a monotonic counter for synthesizing tool-call ids when the dialect's
// own wire format doesn't carry one. Embedding FSM gives each dialect
// builder the shared invariants for free while leaving frame shaping to
// the embedder.
type FSM struct {
	State State

	ID    string
	Model string

	OpenBlocks    map[int]BlockKind
	NextToolIndex int

	toolCallSeq uint64
}

// NewFSM returns a zero-value FSM ready to use.
func NewFSM() FSM {
	return FSM{State: Idle, OpenBlocks: make(map[int]BlockKind)}
}

// Start transitions Idle -> Streaming, recording the allocated id/model.
// A content/reasoning/tool_call event arriving before an explicit start
// event calls this with empty id/model per the "implicit start" edge
// case in spec §4.4.
func (f *FSM) Start(id, model string) {
	if f.State != Idle {
		return
	}
	f.ID = id
	f.Model = model
	f.State = Streaming
}

// EnsureStarted is a convenience for the implicit-start edge case: any
// non-start event arriving while Idle implies an empty-id/model start.
func (f *FSM) EnsureStarted() {
	if f.State == Idle {
		f.Start("", "")
	}
}

// OpenBlock records a newly opened content block at index and returns
// whether it was already open (a protocol violation the caller should
// reject as ir.ErrValidation — spec §4.4's "concurrent tool calls at the
// same index" edge case generalizes to any block kind).
func (f *FSM) OpenBlock(index int, kind BlockKind) (alreadyOpen bool) {
	if _, ok := f.OpenBlocks[index]; ok {
		return true
	}
	f.OpenBlocks[index] = kind
	return false
}

// CloseBlock forgets an open block, returning its kind ("" if it wasn't
// open).
func (f *FSM) CloseBlock(index int) BlockKind {
	kind := f.OpenBlocks[index]
	delete(f.OpenBlocks, index)
	return kind
}

// OpenBlockKind reports the kind of the block open at index, if any.
func (f *FSM) OpenBlockKind(index int) (BlockKind, bool) {
	k, ok := f.OpenBlocks[index]
	return k, ok
}

// NextToolCallID synthesizes a tool-call id from a per-builder monotonic
// counter. This is the spec's resolved Open Question: ids must not be
// derived from wall-clock time, which is unstable for replay.
func (f *FSM) NextToolCallID(name string) string {
	seq := atomic.AddUint64(&f.toolCallSeq, 1)
	if name == "" {
		name = "tool"
	}
	return "call_" + name + "_" + strconv.FormatUint(seq, 10)
}

// Finish moves the FSM to Done from whatever state it is in. Calling it
// again once Done changes nothing, so Finalize stays idempotent when
// called after an explicit end/error event already reached Done.
func (f *FSM) Finish() {
	f.State = Done
}
