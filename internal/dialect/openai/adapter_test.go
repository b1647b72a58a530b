package openai

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

func TestParseRequestPromotesSystemMessage(t *testing.T) {
	body := []byte(`{"model":"gpt-4","messages":[{"role":"system","content":"be terse"},{"role":"user","content":"hi"}]}`)
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
	_, err := d.Inbound().ParseRequest([]byte(`{"model":"gpt-4","messages":[]}`))
	if err == nil {
		t.Fatal("expected validation error for empty messages")
	}
	var irErr *ir.Error
	if e, ok := err.(*ir.Error); ok {
		irErr = e
	}
	if irErr == nil || irErr.Type != ir.ErrValidation {
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

func TestStreamEventOrderingEndsWithEnd(t *testing.T) {
	d := New()
	b := d.Outbound().CreateStreamBuilder()

	var kinds []string
	emit := func(ev ir.StreamEvent) {
		frames, err := b.Process(ev)
		if err != nil {
			t.Fatalf("Process(%v) error = %v", ev.Kind, err)
		}
		if len(frames) == 0 {
			t.Fatalf("Process(%v) produced no frames", ev.Kind)
		}
		kinds = append(kinds, string(ev.Kind))
	}

	emit(ir.Start("resp_1", "gpt-4"))
	emit(ir.Content("hello", 0))
	emit(ir.End(ir.FinishStop, &ir.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}))
	final := b.Finalize()
	if len(final) == 0 {
		t.Fatal("Finalize() produced no frames")
	}

	want := []string{"start", "content", "end"}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("kinds[%d] = %q, want %q", i, kinds[i], k)
		}
	}
}
