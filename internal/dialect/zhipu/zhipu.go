// Package zhipu wires the Zhipu/GLM dialect: OpenAI-shaped per spec
// §4.3, with no reasoning surface and no dialect-specific quirks beyond
// its endpoint and model family catalog.
package zhipu

import (
	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
)

// New returns the Zhipu/GLM dialect adapter.
func New() *openai.Dialect {
	d := openai.New()
	d.DialectName = "zhipu"
	d.DefaultModel = "glm-4"
	d.Ep = adapter.Endpoint{
		BaseURL:    "https://open.bigmodel.cn/api/paas",
		ChatPath:   "/v4/chat/completions",
		ModelsPath: "/v4/models",
	}
	d.Caps.Vision = true
	d.Families = []adapter.Family{
		{Name: "glm-4", Keywords: []string{"glm-4"}},
		{Name: "glm-3", Keywords: []string{"glm-3"}},
	}
	return d
}
