// Package adapter defines the per-dialect contract: a paired set of
// inbound (parse dialect wire format to IR) and outbound (build IR to
// dialect wire format) operations, plus the capability and endpoint
// metadata the bridge engine needs to route and translate correctly.
package adapter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

// Capabilities enumerates the optional features a dialect supports.
// Outbound builders consult this to decide whether to drop an unsupported
// IR feature rather than emit invalid wire output.
type Capabilities struct {
	Streaming    bool
	Tools        bool
	Vision       bool
	Multimodal   bool
	SystemPrompt bool
	ToolChoice   bool
	Reasoning    bool
	WebSearch    bool
	JSONMode     bool
	Logprobs     bool
	Seed         bool
}

// Endpoint carries the dialect's default upstream location.
type Endpoint struct {
	BaseURL    string
	ChatPath   string
	ModelsPath string
}

// Family is one entry in a dialect's family catalog (spec §4.7): a named
// group of models matched by case-insensitive substring against the
// incoming model identifier.
type Family struct {
	Name     string
	Keywords []string
}

// Matches reports whether m contains any of the family's keywords,
// case-insensitively.
func (f Family) Matches(m string) bool {
	lower := strings.ToLower(m)
	for _, kw := range f.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Inbound is the half of an adapter that lifts this dialect's wire format
// into IR.
type Inbound interface {
	// ParseRequest lifts a request body in this dialect to IR. Structural
	// impossibilities (missing required field, wrong type) return an
	// *ir.Error of type ErrValidation.
	ParseRequest(body []byte) (ir.Request, error)

	// ParseResponse lifts a unary response body in this dialect to IR.
	ParseResponse(body []byte) (ir.Response, error)

	// ParseStream lifts one upstream wire chunk into zero, one, or more
	// IR stream events. It is stateless per invocation: a nil result
	// with a nil error means the chunk carried no observable event
	// (heartbeat, empty delta).
	ParseStream(chunk []byte) ([]ir.StreamEvent, error)

	// ParseError lifts a non-2xx response body (and its HTTP status) to
	// an *ir.Error.
	ParseError(status int, body []byte) *ir.Error
}

// Outbound is the half of an adapter that lowers IR into this dialect's
// wire format.
type Outbound interface {
	// BuildRequest lowers an IR request into this dialect's wire body.
	// If ir.Request.Model is empty, the adapter substitutes its
	// documented default model name here, never in ParseRequest.
	BuildRequest(req ir.Request) ([]byte, error)

	// BuildResponse lowers an IR response into this dialect's wire body.
	BuildResponse(resp ir.Response) ([]byte, error)

	// BuildErrorResponse lowers an IR error into this dialect's error
	// envelope, for relaying an upstream or validation failure back to
	// a client that expects this dialect.
	BuildErrorResponse(err *ir.Error) []byte

	// CreateStreamBuilder allocates fresh, request-scoped stream-builder
	// state. Never shared across requests or pooled.
	CreateStreamBuilder() streambuilder.Builder
}

// Adapter is the full per-dialect contract: the eight operations above,
// capability and endpoint metadata, and the family catalog used by the
// model-mapping resolver.
type Adapter interface {
	Name() string
	Version() string
	Capabilities() Capabilities
	Endpoint() Endpoint
	FamilyCatalog() []Family

	Inbound() Inbound
	Outbound() Outbound
}

// Descriptor is a value snapshot of an Adapter's static metadata, for
// introspection without invocation.
type Descriptor struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Capabilities Capabilities `json:"capabilities"`
	Endpoint     Endpoint     `json:"endpoint"`
}

// DescribeAdapter builds a Descriptor from a live Adapter.
func DescribeAdapter(a Adapter) Descriptor {
	return Descriptor{
		Name:         a.Name(),
		Version:      a.Version(),
		Capabilities: a.Capabilities(),
		Endpoint:     a.Endpoint(),
	}
}

// RequestContext carries per-request ambient values adapters and the
// bridge thread through calls that need them without growing every
// signature — currently just the deadline/cancellation already on
// context.Context; defined here so a future field (trace id, tenant)
// has one place to land instead of a new parameter on every adapter
// method.
type RequestContext = context.Context

// marshalCompact produces canonical (no extra whitespace) JSON, matching
// the round-trip law's "canonical JSON whitespace" normalization clause.
// It is unexported and has no callers in this package.
func marshalCompact(v any) ([]byte, error) {
	return json.Marshal(v)
}
