package deepseek

import (
	"encoding/json"
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

func TestNewIdentifiesAsDeepseek(t *testing.T) {
	d := New()
	if d.Name() != "deepseek" {
		t.Errorf("Name() = %q, want deepseek", d.Name())
	}
	if d.Endpoint().BaseURL != "https://api.deepseek.com" {
		t.Errorf("BaseURL = %q, want https://api.deepseek.com", d.Endpoint().BaseURL)
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

func TestFamilyCatalogMatchesReasonerModels(t *testing.T) {
	d := New()
	var got string
	for _, f := range d.FamilyCatalog() {
		if f.Matches("deepseek-reasoner") {
			got = f.Name
			break
		}
	}
	if got != "reasoner" {
		t.Errorf("matched family = %q, want reasoner", got)
	}
}
