// Package ir defines the neutral intermediate representation that every
// dialect adapter lifts requests, responses, stream events, and errors to
// and from. The IR is pure data; it carries no behavior of its own.
package ir

import "encoding/json"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Request is the neutral form of a chat-completion request.
type Request struct {
	Messages   []Message
	Model      string
	System     string
	Tools      []Tool
	ToolChoice ToolChoice
	Stream     bool
	Generation Generation
	Raw        json.RawMessage
}

// Message is one turn in a Request's conversation.
type Message struct {
	Role             Role
	Content          string
	ContentParts     []ContentPart
	Name             string
	ToolCallID       string
	ToolCalls        []ToolCall
	ReasoningContent string
}

// HasParts reports whether the message carries structured content parts
// instead of (or in addition to) a plain string body.
func (m Message) HasParts() bool {
	return len(m.ContentParts) > 0
}

// ContentPartKind discriminates the ContentPart tagged union.
type ContentPartKind string

const (
	ContentText       ContentPartKind = "text"
	ContentImage      ContentPartKind = "image"
	ContentToolUse    ContentPartKind = "tool_use"
	ContentToolResult ContentPartKind = "tool_result"
)

// ImageSourceKind discriminates how an image ContentPart carries its bytes.
type ImageSourceKind string

const (
	ImageSourceURL    ImageSourceKind = "url"
	ImageSourceBase64 ImageSourceKind = "base64"
)

// ContentPart is a tagged variant carried inline in a Message's content.
// Only the fields matching Kind are meaningful.
type ContentPart struct {
	Kind ContentPartKind

	// ContentText
	Text string

	// ContentImage
	ImageSourceKind ImageSourceKind
	ImageURL        string
	ImageMediaType  string
	ImageData       string

	// ContentToolUse
	ToolUseID   string
	ToolUseName string
	ToolInput   json.RawMessage

	// ContentToolResult
	ToolResultUseID string
	ToolResultText  string
	ToolResultError bool
}

// ToolCall is an assistant message's request to invoke a function tool.
type ToolCall struct {
	ID       string
	Type     string // always "function" in the closed set this IR supports
	Name     string
	Arguments string // JSON-encoded argument object, possibly partial while streaming
}

// Tool is a function-tool descriptor offered to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema
}

// ToolChoiceMode discriminates the ToolChoice tagged union.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceFunction ToolChoiceMode = "function"
)

// ToolChoice controls whether and how the model must call a tool.
type ToolChoice struct {
	Mode         ToolChoiceMode
	FunctionName string // set when Mode == ToolChoiceFunction
}

// ResponseFormatKind discriminates Generation.ResponseFormat.
type ResponseFormatKind string

const (
	ResponseFormatText       ResponseFormatKind = "text"
	ResponseFormatJSONObject ResponseFormatKind = "json_object"
	ResponseFormatJSONSchema ResponseFormatKind = "json_schema"
)

// ResponseFormat constrains the shape of the model's output.
type ResponseFormat struct {
	Kind       ResponseFormatKind
	JSONSchema json.RawMessage // present when Kind == ResponseFormatJSONSchema
}

// Thinking controls a dialect's extended-reasoning mode.
type Thinking struct {
	Enabled      bool
	BudgetTokens int
}

// Generation carries the sampling and output-shaping knobs common across
// dialects. Zero values mean "unset"; adapters document their own
// defaults for the fields they honor.
type Generation struct {
	Temperature      *float64
	TopP             *float64
	TopK             *int
	MaxTokens        *int
	StopSequences    []string
	PresencePenalty  *float64
	FrequencyPenalty *float64
	N                *int
	Seed             *int
	ResponseFormat   *ResponseFormat
	Thinking         *Thinking
	EnableSearch     bool
	Logprobs         bool
	TopLogprobs      *int
}

// FinishReason is the closed set of reasons a Choice completed.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishEndTurn       FinishReason = "end_turn"
)

// Response is the neutral form of a unary chat-completion response.
type Response struct {
	ID      string
	Model   string
	Created int64
	Choices []Choice
	Usage   *Usage
	Raw     json.RawMessage
}

// Choice is one candidate completion in a Response.
type Choice struct {
	Index        int
	Message      Message
	FinishReason FinishReason
}

// UsageDetails carries token breakdowns some dialects surface.
type UsageDetails struct {
	ReasoningTokens int
	CachedTokens    int
}

// Usage is token accounting for a Response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Details          *UsageDetails
}
