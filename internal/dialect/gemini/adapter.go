package gemini

import "github.com/haasonsaas/nexus-bridge/internal/adapter"

// Dialect is the Gemini native (generateContent) adapter.
type Dialect struct {
	DefaultModel string
}

// New returns the Gemini dialect adapter.
func New() *Dialect {
	return &Dialect{DefaultModel: "gemini-2.0-flash"}
}

func (d *Dialect) Name() string    { return "gemini" }
func (d *Dialect) Version() string { return "1" }

func (d *Dialect) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{
		Streaming:    true,
		Tools:        true,
		Vision:       true,
		Multimodal:   true,
		SystemPrompt: true,
		ToolChoice:   true,
		Reasoning:    true,
	}
}

func (d *Dialect) Endpoint() adapter.Endpoint {
	return adapter.Endpoint{
		BaseURL:    "https://generativelanguage.googleapis.com",
		ChatPath:   "/v1beta/models/{model}:generateContent",
		ModelsPath: "/v1beta/models",
	}
}

func (d *Dialect) FamilyCatalog() []adapter.Family {
	return []adapter.Family{
		{Name: "pro", Keywords: []string{"pro"}},
		{Name: "flash", Keywords: []string{"flash"}},
		{Name: "flash-lite", Keywords: []string{"flash-lite"}},
	}
}

func (d *Dialect) Inbound() adapter.Inbound   { return inbound{d: d} }
func (d *Dialect) Outbound() adapter.Outbound { return outbound{d: d} }
