package anthropic

import (
	"encoding/json"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

type outbound struct {
	d *Dialect
}

// BuildRequest lowers an IR request into an Anthropic Messages body,
// using the SDK's param types to get field names and JSON shaping
// right the same way the SDK's own NewStreaming call would, but
// marshaling locally instead of issuing the call ourselves (the
// bridge's transport layer owns the HTTP round trip).
func (out outbound) BuildRequest(req ir.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = out.d.DefaultModel
	}

	messages, err := convertMessagesOut(req.Messages)
	if err != nil {
		return nil, err
	}

	maxTokens := 4096
	if req.Generation.MaxTokens != nil && *req.Generation.MaxTokens > 0 {
		maxTokens = *req.Generation.MaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(model),
		Messages:  messages,
		MaxTokens: int64(maxTokens),
	}

	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Type: "text", Text: req.System}}
	}

	if len(req.Tools) > 0 {
		tools, err := convertToolsOut(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	if tc := convertToolChoiceOut(req.ToolChoice); tc != nil {
		params.ToolChoice = *tc
	}

	if req.Generation.Thinking != nil && req.Generation.Thinking.Enabled {
		budget := req.Generation.Thinking.BudgetTokens
		if budget < 1024 {
			budget = 10000
		}
		params.Thinking = anthropicsdk.ThinkingConfigParamOfEnabled(int64(budget))
	}

	if req.Generation.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*req.Generation.Temperature)
	}

	return json.Marshal(params)
}

func convertMessagesOut(messages []ir.Message) ([]anthropicsdk.MessageParam, error) {
	var out []anthropicsdk.MessageParam
	for _, m := range messages {
		var blocks []anthropicsdk.ContentBlockParamUnion

		if m.Content != "" {
			blocks = append(blocks, anthropicsdk.NewTextBlock(m.Content))
		}
		for _, part := range m.ContentParts {
			switch part.Kind {
			case ir.ContentText:
				blocks = append(blocks, anthropicsdk.NewTextBlock(part.Text))
			case ir.ContentToolResult:
				blocks = append(blocks, anthropicsdk.NewToolResultBlock(part.ToolResultUseID, part.ToolResultText, part.ToolResultError))
			}
		}
		if m.ToolCallID != "" && !m.HasParts() {
			blocks = append(blocks, anthropicsdk.NewToolResultBlock(m.ToolCallID, m.Content, false))
		}
		for _, tc := range m.ToolCalls {
			var input map[string]any
			if tc.Arguments != "" {
				if err := json.Unmarshal([]byte(tc.Arguments), &input); err != nil {
					return nil, &ir.Error{Type: ir.ErrValidation, Message: "invalid tool call arguments"}
				}
			}
			blocks = append(blocks, anthropicsdk.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		var msg anthropicsdk.MessageParam
		if m.Role == ir.RoleAssistant {
			msg = anthropicsdk.NewAssistantMessage(blocks...)
		} else {
			msg = anthropicsdk.NewUserMessage(blocks...)
		}
		out = append(out, msg)
	}
	return out, nil
}

func convertToolsOut(tools []ir.Tool) ([]anthropicsdk.ToolUnionParam, error) {
	var out []anthropicsdk.ToolUnionParam
	for _, t := range tools {
		var schema anthropicsdk.ToolInputSchemaParam
		if len(t.Parameters) > 0 {
			if err := json.Unmarshal(t.Parameters, &schema); err != nil {
				return nil, &ir.Error{Type: ir.ErrValidation, Message: "invalid tool schema for " + t.Name}
			}
		}
		param := anthropicsdk.ToolUnionParamOfTool(schema, t.Name)
		if param.OfTool != nil {
			param.OfTool.Description = anthropicsdk.String(t.Description)
		}
		out = append(out, param)
	}
	return out, nil
}

// convertToolChoiceOut maps IR tool choice to Anthropic's tool_choice
// union. Anthropic has no "none" tool_choice distinct from simply
// omitting tools, so ToolChoiceNone degrades to the SDK's "none" type.
func convertToolChoiceOut(tc ir.ToolChoice) *anthropicsdk.ToolChoiceUnionParam {
	switch tc.Mode {
	case ir.ToolChoiceRequired:
		v := anthropicsdk.ToolChoiceUnionParam{OfAny: &anthropicsdk.ToolChoiceAnyParam{}}
		return &v
	case ir.ToolChoiceFunction:
		v := anthropicsdk.ToolChoiceParamOfTool(tc.FunctionName)
		return &v
	case ir.ToolChoiceNone:
		none := anthropicsdk.NewToolChoiceNoneParam()
		v := anthropicsdk.ToolChoiceUnionParam{OfNone: &none}
		return &v
	default:
		return nil
	}
}

// BuildResponse lowers an IR response into a native Anthropic Messages
// unary response body.
func (out outbound) BuildResponse(resp ir.Response) ([]byte, error) {
	wr := wireResponse{
		ID:    resp.ID,
		Model: resp.Model,
	}
	if len(resp.Choices) > 0 {
		c := resp.Choices[0]
		wr.StopReason = unmapFinishReason(c.FinishReason)
		if c.Message.Content != "" {
			wr.Content = append(wr.Content, wireBlock{Type: "text", Text: c.Message.Content})
		}
		if c.Message.ReasoningContent != "" {
			wr.Content = append(wr.Content, wireBlock{Type: "thinking", Thinking: c.Message.ReasoningContent})
		}
		for _, tc := range c.Message.ToolCalls {
			wr.Content = append(wr.Content, wireBlock{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: json.RawMessage(tc.Arguments),
			})
		}
	}
	if resp.Usage != nil {
		wr.Usage = wireUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
		if resp.Usage.Details != nil {
			wr.Usage.CacheReadInputTokens = resp.Usage.Details.CachedTokens
		}
	}
	return json.Marshal(wr)
}

// BuildErrorResponse lowers an IR error into Anthropic's
// `{"type":"error","error":{...}}` envelope.
func (out outbound) BuildErrorResponse(err *ir.Error) []byte {
	var payload wireErrorPayload
	payload.Type = "error"
	payload.Error.Type = anthropicErrorCode(err.Type)
	payload.Error.Message = err.Message
	b, _ := json.Marshal(payload)
	return b
}

func anthropicErrorCode(t ir.ErrorType) string {
	switch t {
	case ir.ErrValidation:
		return "invalid_request_error"
	case ir.ErrAuthentication:
		return "authentication_error"
	case ir.ErrPermission:
		return "permission_error"
	case ir.ErrNotFound:
		return "not_found_error"
	case ir.ErrRateLimit:
		return "rate_limit_error"
	default:
		return "api_error"
	}
}

// CreateStreamBuilder allocates fresh, request-scoped stream-builder
// state (spec §9: never shared or pooled across requests).
func (out outbound) CreateStreamBuilder() streambuilder.Builder {
	return newStreamBuilder()
}
