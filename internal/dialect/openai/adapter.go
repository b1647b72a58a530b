package openai

import "github.com/haasonsaas/nexus-bridge/internal/adapter"

// Dialect is the OpenAI-shaped adapter. It is parameterized so DeepSeek,
// Moonshot, Qwen, and Zhipu can each construct one with their own name,
// endpoint, default model, and reasoning-field support, reusing the
// message/tool/stream translation logic verbatim (spec §4.3: all four
// are "like OpenAI").
type Dialect struct {
	DialectName    string
	DialectVersion string
	DefaultModel   string
	Caps           adapter.Capabilities
	Ep             adapter.Endpoint
	Families       []adapter.Family

	// NoRequiredToolChoice marks a dialect (Moonshot/Kimi) whose upstream
	// rejects tool_choice: required. BuildRequest degrades it to "auto"
	// instead of dropping tool_choice entirely (spec §4.2).
	NoRequiredToolChoice bool
}

// New returns the plain OpenAI dialect adapter.
func New() *Dialect {
	return &Dialect{
		DialectName:    "openai",
		DialectVersion: "1",
		DefaultModel:   "gpt-4o-mini",
		Caps: adapter.Capabilities{
			Streaming: true, Tools: true, Vision: true, Multimodal: true,
			SystemPrompt: true, ToolChoice: true, JSONMode: true,
			Logprobs: true, Seed: true,
		},
		Ep: adapter.Endpoint{
			BaseURL:    "https://api.openai.com",
			ChatPath:   "/v1/chat/completions",
			ModelsPath: "/v1/models",
		},
		Families: []adapter.Family{
			{Name: "gpt-4o", Keywords: []string{"gpt-4o"}},
			{Name: "gpt-4", Keywords: []string{"gpt-4"}},
			{Name: "gpt-3.5", Keywords: []string{"gpt-3.5"}},
			{Name: "o-series", Keywords: []string{"o1", "o3", "o4"}},
		},
	}
}

func (d *Dialect) Name() string                     { return d.DialectName }
func (d *Dialect) Version() string                  { return d.DialectVersion }
func (d *Dialect) Capabilities() adapter.Capabilities { return d.Caps }
func (d *Dialect) Endpoint() adapter.Endpoint       { return d.Ep }
func (d *Dialect) FamilyCatalog() []adapter.Family  { return d.Families }

func (d *Dialect) Inbound() adapter.Inbound   { return inbound{d: d} }
func (d *Dialect) Outbound() adapter.Outbound { return outbound{d: d} }
