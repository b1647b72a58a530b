package moonshot

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

func TestNewIdentifiesAsMoonshot(t *testing.T) {
	d := New()
	if d.Name() != "moonshot" {
		t.Errorf("Name() = %q, want moonshot", d.Name())
	}
	if !d.NoRequiredToolChoice {
		t.Error("NoRequiredToolChoice = false, want true for Moonshot/Kimi")
	}
}

func TestBuildRequestDegradesRequiredToolChoiceToAuto(t *testing.T) {
	d := New()
	req := ir.Request{
		Messages:   []ir.Message{{Role: ir.RoleUser, Content: "hi"}},
		ToolChoice: ir.ToolChoice{Mode: ir.ToolChoiceRequired},
	}
	body, err := d.Outbound().BuildRequest(req)
	if err != nil {
		t.Fatalf("BuildRequest() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v, want auto (degraded from required)", decoded["tool_choice"])
	}
}

func TestFamilyCatalogMatchesContextWindowModels(t *testing.T) {
	d := New()
	var got string
	for _, f := range d.FamilyCatalog() {
		if f.Matches("moonshot-v1-128k") {
			got = f.Name
			break
		}
	}
	if got != "128k" {
		t.Errorf("matched family = %q, want 128k", got)
	}
}
