// Package moonshot wires the Moonshot/Kimi dialect: OpenAI-shaped per
// spec §4.3, with a reasoning_content field on its thinking model and a
// narrower tool_choice: the upstream rejects "required" and the adapter
// degrades it to "auto" per spec §4.2's documented degradation table.
package moonshot

import (
	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
)

// New returns the Moonshot/Kimi dialect adapter.
func New() *openai.Dialect {
	d := openai.New()
	d.DialectName = "moonshot"
	d.DefaultModel = "moonshot-v1-8k"
	d.Ep = adapter.Endpoint{
		BaseURL:    "https://api.moonshot.cn",
		ChatPath:   "/v1/chat/completions",
		ModelsPath: "/v1/models",
	}
	d.Caps.Vision = false
	d.Caps.Multimodal = false
	d.Caps.Reasoning = true
	// Kimi rejects tool_choice: required; degrade to auto (spec §4.2).
	d.NoRequiredToolChoice = true
	d.Families = []adapter.Family{
		{Name: "8k", Keywords: []string{"8k"}},
		{Name: "32k", Keywords: []string{"32k"}},
		{Name: "128k", Keywords: []string{"128k"}},
	}
	return d
}
