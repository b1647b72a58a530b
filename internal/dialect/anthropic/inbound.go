package anthropic

import (
	"encoding/json"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

type inbound struct {
	d *Dialect
}

// ParseRequest decodes a native Anthropic Messages request. Anthropic
// carries its system prompt as a top-level field rather than a message
// in the array, so there is no leading-system-message promotion to do
// (spec §4.3). Model substitution, like every dialect, happens only in
// outbound.BuildRequest, never here (spec §9).
func (in inbound) ParseRequest(body []byte) (ir.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return ir.Request{}, (&ir.Error{Type: ir.ErrValidation, Message: "malformed anthropic request body"}).WithStatus(400)
	}
	if len(wr.Messages) == 0 {
		return ir.Request{}, &ir.Error{Type: ir.ErrValidation, Message: "messages must not be empty"}
	}

	req := ir.Request{
		Model:  wr.Model,
		Stream: wr.Stream,
		Raw:    json.RawMessage(body),
	}
	if len(wr.System) > 0 {
		req.System = decodeSystemField(wr.System)
	}

	for _, m := range wr.Messages {
		msg, err := convertMessageIn(m)
		if err != nil {
			return ir.Request{}, err
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, t := range wr.Tools {
		tool := ir.Tool{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.InputSchema,
		}
		if err := ir.ValidateToolSchema(tool); err != nil {
			return ir.Request{}, err
		}
		req.Tools = append(req.Tools, tool)
	}

	req.ToolChoice = convertToolChoiceIn(wr.ToolChoice)
	req.Generation = convertGenerationIn(wr)
	return req, nil
}

// decodeSystemField handles both the plain-string and the content-block
// array forms Anthropic accepts for `system`.
func decodeSystemField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var blocks []wireBlock
	if json.Unmarshal(raw, &blocks) == nil {
		var out string
		for _, b := range blocks {
			out += b.Text
		}
		return out
	}
	return ""
}

func convertMessageIn(m wireMessage) (ir.Message, error) {
	out := ir.Message{Role: ir.Role(m.Role)}

	var plain string
	if json.Unmarshal(m.Content, &plain) == nil {
		out.Content = plain
		return out, nil
	}

	var blocks []wireBlock
	if err := json.Unmarshal(m.Content, &blocks); err != nil {
		return ir.Message{}, &ir.Error{Type: ir.ErrValidation, Message: "message content must be a string or content-block array"}
	}

	for _, b := range blocks {
		switch b.Type {
		case "text":
			out.ContentParts = append(out.ContentParts, ir.ContentPart{Kind: ir.ContentText, Text: b.Text})
		case "image":
			part := ir.ContentPart{Kind: ir.ContentImage}
			if b.Source != nil {
				if b.Source.Type == "base64" {
					part.ImageSourceKind = ir.ImageSourceBase64
					part.ImageMediaType = b.Source.MediaType
					part.ImageData = b.Source.Data
				} else {
					part.ImageSourceKind = ir.ImageSourceURL
					part.ImageURL = b.Source.URL
				}
			}
			out.ContentParts = append(out.ContentParts, part)
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ir.ToolCall{
				ID:        b.ID,
				Type:      "function",
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		case "tool_result":
			text := decodeToolResultText(b.Content)
			out.ContentParts = append(out.ContentParts, ir.ContentPart{
				Kind:            ir.ContentToolResult,
				ToolResultUseID: b.ToolUseID,
				ToolResultText:  text,
				ToolResultError: b.IsError,
			})
			if out.ToolCallID == "" {
				out.ToolCallID = b.ToolUseID
			}
		case "thinking":
			out.ReasoningContent += b.Thinking
		}
	}
	return out, nil
}

func decodeToolResultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var blocks []wireBlock
	if json.Unmarshal(raw, &blocks) == nil {
		var out string
		for _, b := range blocks {
			out += b.Text
		}
		return out
	}
	return string(raw)
}

func convertToolChoiceIn(raw json.RawMessage) ir.ToolChoice {
	if len(raw) == 0 {
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
	var tc struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if json.Unmarshal(raw, &tc) != nil {
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
	switch tc.Type {
	case "any":
		return ir.ToolChoice{Mode: ir.ToolChoiceRequired}
	case "tool":
		return ir.ToolChoice{Mode: ir.ToolChoiceFunction, FunctionName: tc.Name}
	case "none":
		return ir.ToolChoice{Mode: ir.ToolChoiceNone}
	default:
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
}

func convertGenerationIn(wr wireRequest) ir.Generation {
	gen := ir.Generation{}
	if wr.Temperature != nil {
		gen.Temperature = wr.Temperature
	}
	if wr.TopP != nil {
		gen.TopP = wr.TopP
	}
	if wr.TopK != nil {
		gen.TopK = wr.TopK
	}
	if wr.MaxTokens > 0 {
		mt := wr.MaxTokens
		gen.MaxTokens = &mt
	}
	if len(wr.StopSeqs) > 0 {
		gen.StopSequences = wr.StopSeqs
	}
	if wr.Thinking != nil && wr.Thinking.Type == "enabled" {
		gen.Thinking = &ir.Thinking{Enabled: true, BudgetTokens: wr.Thinking.BudgetTokens}
	}
	return gen
}

// ParseResponse decodes a native Anthropic Messages unary response.
func (in inbound) ParseResponse(body []byte) (ir.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return ir.Response{}, &ir.Error{Type: ir.ErrValidation, Message: "malformed anthropic response body"}
	}

	msg := ir.Message{Role: ir.RoleAssistant}
	for _, b := range wr.Content {
		switch b.Type {
		case "text":
			msg.Content += b.Text
		case "tool_use":
			msg.ToolCalls = append(msg.ToolCalls, ir.ToolCall{
				ID:        b.ID,
				Type:      "function",
				Name:      b.Name,
				Arguments: string(b.Input),
			})
		case "thinking":
			msg.ReasoningContent += b.Thinking
		}
	}

	return ir.Response{
		ID:    wr.ID,
		Model: wr.Model,
		Raw:   json.RawMessage(body),
		Choices: []ir.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: mapStopReason(wr.StopReason),
		}},
		Usage: &ir.Usage{
			PromptTokens:     wr.Usage.InputTokens,
			CompletionTokens: wr.Usage.OutputTokens,
			TotalTokens:      wr.Usage.InputTokens + wr.Usage.OutputTokens,
			Details: &ir.UsageDetails{
				CachedTokens: wr.Usage.CacheReadInputTokens,
			},
		},
	}, nil
}

// streamEventEnvelope is the minimal shape every Anthropic SSE data
// payload shares: a discriminant `type` plus whichever fields that type
// carries.
type streamEventEnvelope struct {
	Type  string `json:"type"`
	Index int    `json:"index"`

	Message struct {
		ID    string    `json:"id"`
		Model string    `json:"model"`
		Usage wireUsage `json:"usage"`
	} `json:"message"`

	ContentBlock struct {
		Type  string          `json:"type"`
		ID    string          `json:"id"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	} `json:"content_block"`

	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		Thinking    string `json:"thinking"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`

	Usage wireUsage `json:"usage"`

	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseStream decodes one SSE `data:` payload's JSON body into zero or
// more IR stream events. Anthropic's event-typed envelope means a
// single frame always maps to at most one IR event, unlike OpenAI's
// chunk, which can carry several choices at once.
func (in inbound) ParseStream(chunk []byte) ([]ir.StreamEvent, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	var env streamEventEnvelope
	if err := json.Unmarshal(chunk, &env); err != nil {
		return nil, &ir.Error{Type: ir.ErrValidation, Message: "malformed anthropic stream event"}
	}

	switch env.Type {
	case "message_start":
		return []ir.StreamEvent{ir.Start(env.Message.ID, env.Message.Model)}, nil
	case "content_block_start":
		if env.ContentBlock.Type == "tool_use" {
			return []ir.StreamEvent{ir.ToolCallFragment(env.Index, env.ContentBlock.ID, env.ContentBlock.Name, "")}, nil
		}
		return nil, nil
	case "content_block_delta":
		switch env.Delta.Type {
		case "text_delta":
			return []ir.StreamEvent{ir.Content(env.Delta.Text, env.Index)}, nil
		case "thinking_delta":
			return []ir.StreamEvent{ir.Reasoning(env.Delta.Thinking)}, nil
		case "input_json_delta":
			return []ir.StreamEvent{ir.ToolCallFragment(env.Index, "", "", env.Delta.PartialJSON)}, nil
		}
		return nil, nil
	case "content_block_stop":
		return nil, nil
	case "message_delta":
		usage := &ir.Usage{CompletionTokens: env.Usage.OutputTokens}
		return []ir.StreamEvent{ir.End(mapStopReason(env.Delta.StopReason), usage)}, nil
	case "message_stop":
		return nil, nil
	case "error":
		return []ir.StreamEvent{ir.ErrorEvent(&ir.Error{
			Type:    ir.ClassifyCode(env.Error.Type),
			Message: env.Error.Message,
			Code:    env.Error.Type,
		})}, nil
	default:
		return nil, nil
	}
}

// ParseError decodes an Anthropic `{"type":"error","error":{...}}` body.
func (in inbound) ParseError(status int, body []byte) *ir.Error {
	var payload wireErrorPayload
	_ = json.Unmarshal(body, &payload)

	e := &ir.Error{Message: payload.Error.Message, Code: payload.Error.Type, Raw: body, Type: ir.ErrUnknown}
	if t := ir.ClassifyStatus(status); t != ir.ErrUnknown {
		e.Type = t
	} else if t := ir.ClassifyCode(payload.Error.Type); t != ir.ErrUnknown {
		e.Type = t
	} else {
		e.Type = ir.ClassifyMessage(payload.Error.Message)
	}
	e.Status = status
	return e
}
