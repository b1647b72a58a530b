package gemini

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

func TestParseRequestNativeContents(t *testing.T) {
	body := []byte(`{"systemInstruction":{"parts":[{"text":"be terse"}]},"contents":[{"role":"user","parts":[{"text":"hi"}]}]}`)
	d := New()
	req, err := d.Inbound().ParseRequest(body)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if req.System != "be terse" {
		t.Errorf("System = %q, want %q", req.System, "be terse")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != ir.RoleUser || req.Messages[0].Content != "hi" {
		t.Errorf("Messages = %+v, want single user message \"hi\"", req.Messages)
	}
}

func TestParseRequestSniffsOpenAIShapedBody(t *testing.T) {
	body := []byte(`{"model":"gemini-2.0-flash","messages":[{"role":"user","content":"hi"}]}`)
	d := New()
	req, err := d.Inbound().ParseRequest(body)
	if err != nil {
		t.Fatalf("ParseRequest() error = %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
		t.Errorf("Messages = %+v, want single user message \"hi\"", req.Messages)
	}
}

func TestParseRequestRejectsEmptyContents(t *testing.T) {
	d := New()
	_, err := d.Inbound().ParseRequest([]byte(`{"contents":[]}`))
	if err == nil {
		t.Fatal("expected validation error for empty contents")
	}
	irErr, ok := err.(*ir.Error)
	if !ok || irErr.Type != ir.ErrValidation {
		t.Errorf("err = %v, want ir.ErrValidation", err)
	}
}

func TestBuildRequestEmitsNativeContents(t *testing.T) {
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
	contents, ok := decoded["contents"].([]any)
	if !ok || len(contents) != 1 {
		t.Fatalf("contents = %+v, want one entry", decoded["contents"])
	}
}

func TestSchemaRoundTripsTypeNames(t *testing.T) {
	params := json.RawMessage(`{"type":"object","properties":{"city":{"type":"string"}},"required":["city"]}`)
	wire := convertSchemaOut(params)
	if wire.Type != "OBJECT" {
		t.Errorf("Type = %q, want OBJECT", wire.Type)
	}
	if wire.Properties["city"].Type != "STRING" {
		t.Errorf("city.Type = %q, want STRING", wire.Properties["city"].Type)
	}
	back := schemaToJSONSchema(wire)
	if back["type"] != "object" {
		t.Errorf("round-tripped type = %v, want object", back["type"])
	}
}

func TestStreamEndEmitsFinishReason(t *testing.T) {
	d := New()
	b := d.Outbound().CreateStreamBuilder()

	if _, err := b.Process(ir.Content("hello", 0)); err != nil {
		t.Fatalf("content: %v", err)
	}
	frames, err := b.Process(ir.End(ir.FinishStop, &ir.Usage{CompletionTokens: 1}))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("frames = %+v, want exactly one closing chunk", frames)
	}
	wr, ok := frames[0].Data.(wireResponse)
	if !ok || len(wr.Candidates) != 1 || wr.Candidates[0].FinishReason != "STOP" {
		t.Errorf("frame data = %+v, want finishReason STOP", frames[0].Data)
	}
}
