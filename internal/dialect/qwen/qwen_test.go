package qwen

import (
	"testing"
)

func TestNewIdentifiesAsQwen(t *testing.T) {
	d := New()
	if d.Name() != "qwen" {
		t.Errorf("Name() = %q, want qwen", d.Name())
	}
	if !d.Caps.Reasoning {
		t.Error("Caps.Reasoning = false, want true for Qwen thinking models")
	}
	if d.Endpoint().BaseURL != "https://dashscope.aliyuncs.com/compatible-mode" {
		t.Errorf("BaseURL = %q, want dashscope compatible-mode endpoint", d.Endpoint().BaseURL)
	}
}

func TestFamilyCatalogMatchesTierModels(t *testing.T) {
	d := New()
	var got string
	for _, f := range d.FamilyCatalog() {
		if f.Matches("qwen-turbo") {
			got = f.Name
			break
		}
	}
	if got != "turbo" {
		t.Errorf("matched family = %q, want turbo", got)
	}
}
