package zhipu

import (
	"testing"
)

func TestNewIdentifiesAsZhipu(t *testing.T) {
	d := New()
	if d.Name() != "zhipu" {
		t.Errorf("Name() = %q, want zhipu", d.Name())
	}
	if !d.Caps.Vision {
		t.Error("Caps.Vision = false, want true for GLM-4")
	}
}

func TestFamilyCatalogMatchesGenerationModels(t *testing.T) {
	d := New()
	var got string
	for _, f := range d.FamilyCatalog() {
		if f.Matches("glm-3-turbo") {
			got = f.Name
			break
		}
	}
	if got != "glm-3" {
		t.Errorf("matched family = %q, want glm-3", got)
	}
}
