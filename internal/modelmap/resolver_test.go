package modelmap

import (
	"testing"

	"github.com/haasonsaas/nexus-bridge/internal/adapter"
)

func claudeCatalog() []adapter.Family {
	return []adapter.Family{
		{Name: "opus", Keywords: []string{"opus"}},
		{Name: "sonnet", Keywords: []string{"sonnet"}},
		{Name: "haiku", Keywords: []string{"haiku"}},
	}
}

func TestResolveExactWins(t *testing.T) {
	mappings := []Mapping{
		{Type: MappingExact, SourceModel: "gpt-4", TargetModel: "claude-3-5-sonnet-20241022"},
		{Type: MappingDefault, TargetModel: "claude-3-5-haiku-20241022"},
	}
	got := Resolve(mappings, "gpt-4", false, claudeCatalog())
	if got != "claude-3-5-sonnet-20241022" {
		t.Errorf("Resolve() = %q, want exact target", got)
	}
}

func TestResolveReasoningOnlyWhenThinkingEnabled(t *testing.T) {
	mappings := []Mapping{
		{Type: MappingReasoning, TargetModel: "claude-3-7-sonnet-thinking"},
		{Type: MappingDefault, TargetModel: "claude-3-5-haiku-20241022"},
	}
	if got := Resolve(mappings, "gpt-4", false, nil); got != "claude-3-5-haiku-20241022" {
		t.Errorf("thinking disabled: Resolve() = %q, want default target", got)
	}
	if got := Resolve(mappings, "gpt-4", true, nil); got != "claude-3-7-sonnet-thinking" {
		t.Errorf("thinking enabled: Resolve() = %q, want reasoning target", got)
	}
}

func TestResolveFamilyFirstMatchWinsByCatalogOrder(t *testing.T) {
	mappings := []Mapping{
		{Type: MappingFamily, SourceModel: "opus", TargetModel: "claude-opus-4-20250514"},
		{Type: MappingFamily, SourceModel: "sonnet", TargetModel: "claude-3-5-sonnet-20241022"},
	}
	// "claude-3-opus-20240229" contains only the "opus" keyword.
	got := Resolve(mappings, "claude-3-opus-20240229", false, claudeCatalog())
	if got != "claude-opus-4-20250514" {
		t.Errorf("Resolve() = %q, want opus family target", got)
	}
	// A model naming both families resolves to the one listed first in
	// the catalog (opus), not the one appearing first in the name.
	got = Resolve(mappings, "sonnet-distilled-from-opus", false, claudeCatalog())
	if got != "claude-opus-4-20250514" {
		t.Errorf("Resolve() = %q, want opus family target (catalog order)", got)
	}
}

func TestResolveDefaultFallback(t *testing.T) {
	mappings := []Mapping{
		{Type: MappingDefault, TargetModel: "claude-3-5-haiku-20241022"},
	}
	got := Resolve(mappings, "some-unmapped-model", false, claudeCatalog())
	if got != "claude-3-5-haiku-20241022" {
		t.Errorf("Resolve() = %q, want default target", got)
	}
}

func TestResolvePassthroughWhenNoMappingMatches(t *testing.T) {
	got := Resolve(nil, "gpt-4", false, claudeCatalog())
	if got != "gpt-4" {
		t.Errorf("Resolve() = %q, want passthrough", got)
	}
}

func TestResolveIdempotent(t *testing.T) {
	mappings := []Mapping{
		{Type: MappingExact, SourceModel: "gpt-4", TargetModel: "claude-3-5-sonnet-20241022"},
	}
	once := Resolve(mappings, "gpt-4", false, claudeCatalog())
	twice := Resolve(mappings, once, false, claudeCatalog())
	if once != twice {
		t.Errorf("Resolve() not idempotent: once=%q twice=%q", once, twice)
	}
}
