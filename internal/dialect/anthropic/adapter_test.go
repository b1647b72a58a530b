package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

func TestParseRequestTopLevelSystem(t *testing.T) {
	body := []byte(`{"model":"claude-sonnet-4-20250514","system":"be terse","max_tokens":256,"messages":[{"role":"user","content":"hi"}]}`)
	d := New()
	req, err := d.Inbound().ParseRequest(body)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.System != "be terse" {
		t.Errorf("System = %q, want %q", req.System, "be terse")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != ir.RoleUser {
		t.Errorf("Messages = %+v, want single user message", req.Messages)
	}
}

func TestParseRequestRejectsEmptyMessages(t *testing.T) {
	d := New()
	_, err := d.Inbound().ParseRequest([]byte(`{"model":"claude-sonnet-4-20250514","max_tokens":256,"messages":[]}`))
	if err == nil {
		t.Fatal("expected validation error for empty messages")
	}
	irErr, ok := err.(*ir.Error)
	if !ok || irErr.Type != ir.ErrValidation {
		t.Errorf("err = %v, want ir.ErrValidation", err)
	}
}

func TestBuildRequestSubstitutesDefaultModel(t *testing.T) {
	d := New()
	req := ir.Request{Messages: []ir.Message{{Role: ir.RoleUser, Content: "hi"}}}
	body, err := d.Outbound().BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["model"] != d.DefaultModel {
		t.Errorf("model = %v, want default %q", decoded["model"], d.DefaultModel)
	}
}

func TestStreamEventOrderingEndsWithMessageStop(t *testing.T) {
	d := New()
	b := d.Outbound().CreateStreamBuilder()

	var events []string
	emit := func(ev ir.StreamEvent) {
		frames, err := b.Process(ev)
		if err != nil {
			t.Fatalf("Process(%v) error = %v", ev.Kind, err)
		}
		for _, f := range frames {
			events = append(events, f.Event)
		}
	}

	emit(ir.Start("msg_1", "claude-sonnet-4-20250514"))
	emit(ir.Content("hello", 0))
	emit(ir.End(ir.FinishEndTurn, &ir.Usage{CompletionTokens: 1}))

	if len(events) == 0 {
		t.Fatal("no frames emitted")
	}
	last := events[len(events)-1]
	if last != "message_stop" {
		t.Errorf("last event = %q, want message_stop", last)
	}
	if events[0] != "message_start" {
		t.Errorf("first event = %q, want message_start", events[0])
	}
}

func TestStreamToolCallOpensDistinctBlock(t *testing.T) {
	d := New()
	b := d.Outbound().CreateStreamBuilder()

	if _, err := b.Process(ir.Start("msg_1", "claude-sonnet-4-20250514")); err != nil {
		t.Fatalf("start: %v", err)
	}
	frames, err := b.Process(ir.ToolCallFragment(0, "tool_1", "get_weather", ""))
	if err != nil {
		t.Fatalf("tool_call: %v", err)
	}
	if len(frames) == 0 || frames[0].Event != "content_block_start" {
		t.Fatalf("frames = %+v, want leading content_block_start", frames)
	}
}
