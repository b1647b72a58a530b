package anthropic

import "github.com/haasonsaas/nexus-bridge/internal/adapter"

// Dialect is the Anthropic Messages API adapter.
type Dialect struct {
	DefaultModel string
}

// New returns the Anthropic dialect adapter.
func New() *Dialect {
	return &Dialect{DefaultModel: "claude-sonnet-4-20250514"}
}

func (d *Dialect) Name() string    { return "anthropic" }
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
		BaseURL:    "https://api.anthropic.com",
		ChatPath:   "/v1/messages",
		ModelsPath: "/v1/models",
	}
}

func (d *Dialect) FamilyCatalog() []adapter.Family {
	return []adapter.Family{
		{Name: "opus", Keywords: []string{"opus"}},
		{Name: "sonnet", Keywords: []string{"sonnet"}},
		{Name: "haiku", Keywords: []string{"haiku"}},
	}
}

func (d *Dialect) Inbound() adapter.Inbound   { return inbound{d: d} }
func (d *Dialect) Outbound() adapter.Outbound { return outbound{d: d} }
