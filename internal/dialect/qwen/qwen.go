// Package qwen wires the Qwen (DashScope compatible-mode) dialect:
// OpenAI-shaped per spec §4.3, with a thinking-config toggle
// (enable_thinking) and a reasoning_content streaming delta, both
// already handled generically by the openai dialect's request/stream
// translation.
package qwen

import (
	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
)

// New returns the Qwen dialect adapter.
func New() *openai.Dialect {
	d := openai.New()
	d.DialectName = "qwen"
	d.DefaultModel = "qwen-plus"
	d.Ep = adapter.Endpoint{
		BaseURL:    "https://dashscope.aliyuncs.com/compatible-mode",
		ChatPath:   "/v1/chat/completions",
		ModelsPath: "/v1/models",
	}
	d.Caps.Reasoning = true
	d.Families = []adapter.Family{
		{Name: "max", Keywords: []string{"max"}},
		{Name: "plus", Keywords: []string{"plus"}},
		{Name: "turbo", Keywords: []string{"turbo"}},
	}
	return d
}
