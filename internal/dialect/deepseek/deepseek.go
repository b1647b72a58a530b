// Package deepseek wires the DeepSeek dialect, which spec §4.3
// documents as structurally identical to OpenAI aside from its
// reasoner model's reasoning_content field and its endpoint. The openai
// dialect's stream translation carries reasoning_content deltas; a
// message-level reasoning_content in a unary body is not carried into IR.
package deepseek

import (
	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
)

// New returns the DeepSeek dialect adapter.
func New() *openai.Dialect {
	d := openai.New()
	d.DialectName = "deepseek"
	d.DefaultModel = "deepseek-chat"
	d.Ep = adapter.Endpoint{
		BaseURL:    "https://api.deepseek.com",
		ChatPath:   "/chat/completions",
		ModelsPath: "/models",
	}
	d.Caps.Vision = false
	d.Caps.Multimodal = false
	d.Caps.Reasoning = true
	d.Families = []adapter.Family{
		{Name: "reasoner", Keywords: []string{"reasoner"}},
		{Name: "chat", Keywords: []string{"chat"}},
	}
	return d
}
