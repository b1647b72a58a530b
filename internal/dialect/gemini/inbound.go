package gemini

import (
	"encoding/json"
	"strings"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

type inbound struct {
	d *Dialect
}

// sniff is a minimal probe used to tell a Gemini-native body (`contents`
// plus an optional top-level `systemInstruction`) apart from an
// OpenAI-shaped body (`messages`) arriving at the same endpoint, per
// spec §4.3: Gemini-compatible clients vary on which shape they send.
type sniff struct {
	Contents []json.RawMessage `json:"contents"`
	Messages []json.RawMessage `json:"messages"`
}

func isNativeBody(body []byte) bool {
	var s sniff
	if json.Unmarshal(body, &s) != nil {
		return false
	}
	return s.Contents != nil || s.Messages == nil
}

// ParseRequest decodes either a native Gemini request or an
// OpenAI-shaped chat-completions request sent to the same endpoint,
// structurally sniffing which one it's looking at before parsing (spec
// §4.3). Model substitution never happens here (spec §9).
func (in inbound) ParseRequest(body []byte) (ir.Request, error) {
	if isNativeBody(body) {
		return in.parseNative(body)
	}
	return in.parseOpenAIShaped(body)
}

func (in inbound) parseNative(body []byte) (ir.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return ir.Request{}, (&ir.Error{Type: ir.ErrValidation, Message: "malformed gemini request body"}).WithStatus(400)
	}
	if len(wr.Contents) == 0 {
		return ir.Request{}, &ir.Error{Type: ir.ErrValidation, Message: "contents must not be empty"}
	}

	req := ir.Request{Raw: json.RawMessage(body)}
	if wr.SystemInstruction != nil {
		req.System = joinText(wr.SystemInstruction.Parts)
	}

	for _, c := range wr.Contents {
		msg, err := convertContentIn(c)
		if err != nil {
			return ir.Request{}, err
		}
		req.Messages = append(req.Messages, msg)
	}

	for _, t := range wr.Tools {
		for _, fd := range t.FunctionDeclarations {
			tool := ir.Tool{
				Name:        fd.Name,
				Description: fd.Description,
				Parameters:  convertSchemaIn(fd.Parameters),
			}
			if err := ir.ValidateToolSchema(tool); err != nil {
				return ir.Request{}, err
			}
			req.Tools = append(req.Tools, tool)
		}
	}

	req.ToolChoice = convertToolConfigIn(wr.ToolConfig)
	req.Generation = convertGenConfigIn(wr.GenerationConfig)
	return req, nil
}

// parseOpenAIShaped accepts the OpenAI chat-completions request shape
// at the same endpoint (many Gemini-compatible clients send this form
// against the `/v1beta/openai/chat/completions` alias). Only the
// fields the bridge's IR actually needs are read; this is a
// convenience alias, not a full second copy of the openai dialect's
// parser.
func (in inbound) parseOpenAIShaped(body []byte) (ir.Request, error) {
	var oa struct {
		Model    string `json:"model"`
		Stream   bool   `json:"stream"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &oa); err != nil {
		return ir.Request{}, (&ir.Error{Type: ir.ErrValidation, Message: "malformed request body"}).WithStatus(400)
	}
	if len(oa.Messages) == 0 {
		return ir.Request{}, &ir.Error{Type: ir.ErrValidation, Message: "messages must not be empty"}
	}

	req := ir.Request{Model: oa.Model, Stream: oa.Stream, Raw: json.RawMessage(body)}
	for _, m := range oa.Messages {
		if m.Role == "system" && req.System == "" {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, ir.Message{Role: ir.Role(m.Role), Content: m.Content})
	}
	req.ToolChoice = ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	return req, nil
}

func joinText(parts []wirePart) string {
	var out string
	for _, p := range parts {
		out += p.Text
	}
	return out
}

func convertContentIn(raw json.RawMessage) (ir.Message, error) {
	var c wireContent
	if err := json.Unmarshal(raw, &c); err != nil {
		return ir.Message{}, &ir.Error{Type: ir.ErrValidation, Message: "malformed content entry"}
	}

	role := ir.RoleUser
	switch c.Role {
	case "model":
		role = ir.RoleAssistant
	case "user", "":
		role = ir.RoleUser
	}
	out := ir.Message{Role: role}

	for _, p := range c.Parts {
		switch {
		case p.FunctionCall != nil:
			args, _ := json.Marshal(p.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, ir.ToolCall{
				ID:        p.FunctionCall.Name,
				Type:      "function",
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			})
		case p.FunctionResponse != nil:
			text, _ := json.Marshal(p.FunctionResponse.Response)
			out.Role = ir.RoleTool
			out.ToolCallID = p.FunctionResponse.Name
			out.Content = string(text)
		case p.InlineData != nil:
			out.ContentParts = append(out.ContentParts, ir.ContentPart{
				Kind:            ir.ContentImage,
				ImageSourceKind: ir.ImageSourceBase64,
				ImageMediaType:  p.InlineData.MIMEType,
				ImageData:       p.InlineData.Data,
			})
		case p.FileData != nil:
			out.ContentParts = append(out.ContentParts, ir.ContentPart{
				Kind:            ir.ContentImage,
				ImageSourceKind: ir.ImageSourceURL,
				ImageURL:        p.FileData.FileURI,
			})
		case p.Thought:
			out.ReasoningContent += p.Text
		default:
			out.Content += p.Text
		}
	}
	return out, nil
}

// convertSchemaIn lowers a Gemini wireSchema back to plain JSON Schema
// bytes, the shape ir.Tool.Parameters carries across every dialect.
func convertSchemaIn(s *wireSchema) json.RawMessage {
	if s == nil {
		return nil
	}
	return mustMarshal(schemaToJSONSchema(s))
}

func schemaToJSONSchema(s *wireSchema) map[string]any {
	out := map[string]any{}
	if s.Type != "" {
		out["type"] = strings.ToLower(string(s.Type))
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, p := range s.Properties {
			props[name] = schemaToJSONSchema(p)
		}
		out["properties"] = props
	}
	if s.Items != nil {
		out["items"] = schemaToJSONSchema(s.Items)
	}
	return out
}

func convertToolConfigIn(tc *wireToolConfig) ir.ToolChoice {
	if tc == nil || tc.FunctionCallingConfig == nil {
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
	switch tc.FunctionCallingConfig.Mode {
	case "ANY":
		if len(tc.FunctionCallingConfig.AllowedFunctionNames) == 1 {
			return ir.ToolChoice{Mode: ir.ToolChoiceFunction, FunctionName: tc.FunctionCallingConfig.AllowedFunctionNames[0]}
		}
		return ir.ToolChoice{Mode: ir.ToolChoiceRequired}
	case "NONE":
		return ir.ToolChoice{Mode: ir.ToolChoiceNone}
	default:
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
}

func convertGenConfigIn(gc *wireGenConfig) ir.Generation {
	gen := ir.Generation{}
	if gc == nil {
		return gen
	}
	gen.Temperature = gc.Temperature
	gen.TopP = gc.TopP
	if gc.TopK != nil {
		k := int(*gc.TopK)
		gen.TopK = &k
	}
	if gc.MaxOutputTokens > 0 {
		mt := gc.MaxOutputTokens
		gen.MaxTokens = &mt
	}
	if len(gc.StopSequences) > 0 {
		gen.StopSequences = gc.StopSequences
	}
	if gc.ThinkingConfig != nil && gc.ThinkingConfig.ThinkingBudget > 0 {
		gen.Thinking = &ir.Thinking{Enabled: true, BudgetTokens: gc.ThinkingConfig.ThinkingBudget}
	}
	return gen
}

// ParseResponse decodes a native (non-streamed) generateContent response.
func (in inbound) ParseResponse(body []byte) (ir.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return ir.Response{}, &ir.Error{Type: ir.ErrValidation, Message: "malformed gemini response body"}
	}

	resp := ir.Response{Model: wr.ModelVersion, ID: wr.ResponseID, Raw: json.RawMessage(body)}
	for _, c := range wr.Candidates {
		msg := ir.Message{Role: ir.RoleAssistant}
		for _, p := range c.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				args, _ := json.Marshal(p.FunctionCall.Args)
				msg.ToolCalls = append(msg.ToolCalls, ir.ToolCall{
					ID:        p.FunctionCall.Name,
					Type:      "function",
					Name:      p.FunctionCall.Name,
					Arguments: string(args),
				})
			case p.Thought:
				msg.ReasoningContent += p.Text
			default:
				msg.Content += p.Text
			}
		}
		resp.Choices = append(resp.Choices, ir.Choice{
			Index:        c.Index,
			Message:      msg,
			FinishReason: mapFinishReason(c.FinishReason, len(msg.ToolCalls) > 0),
		})
	}

	if wr.UsageMetadata != nil {
		resp.Usage = &ir.Usage{
			PromptTokens:     wr.UsageMetadata.PromptTokenCount,
			CompletionTokens: wr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wr.UsageMetadata.TotalTokenCount,
			Details: &ir.UsageDetails{
				ReasoningTokens: wr.UsageMetadata.ThoughtsTokenCount,
				CachedTokens:    wr.UsageMetadata.CachedContentTokenCount,
			},
		}
	}
	return resp, nil
}

func mapFinishReason(r string, hasToolCalls bool) ir.FinishReason {
	if hasToolCalls {
		return ir.FinishToolCalls
	}
	switch r {
	case "STOP":
		return ir.FinishStop
	case "MAX_TOKENS":
		return ir.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return ir.FinishContentFilter
	default:
		return ir.FinishStop
	}
}

// ParseStream decodes one element of the streamGenerateContent array
// into zero or more IR events. Gemini never sends an explicit stream
// opener the way OpenAI/Anthropic do (spec §4.4): the first element
// that carries content doubles as the implicit start.
func (in inbound) ParseStream(chunk []byte) ([]ir.StreamEvent, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	var wr wireResponse
	if err := json.Unmarshal(chunk, &wr); err != nil {
		return nil, &ir.Error{Type: ir.ErrValidation, Message: "malformed gemini stream chunk"}
	}

	var events []ir.StreamEvent
	for _, c := range wr.Candidates {
		for _, p := range c.Content.Parts {
			switch {
			case p.FunctionCall != nil:
				args, _ := json.Marshal(p.FunctionCall.Args)
				events = append(events, ir.ToolCallFragment(c.Index, p.FunctionCall.Name, p.FunctionCall.Name, string(args)))
			case p.Thought:
				events = append(events, ir.Reasoning(p.Text))
			default:
				if p.Text != "" {
					events = append(events, ir.Content(p.Text, c.Index))
				}
			}
		}
		if c.FinishReason != "" {
			usage := (*ir.Usage)(nil)
			if wr.UsageMetadata != nil {
				usage = &ir.Usage{
					PromptTokens:     wr.UsageMetadata.PromptTokenCount,
					CompletionTokens: wr.UsageMetadata.CandidatesTokenCount,
					TotalTokens:      wr.UsageMetadata.TotalTokenCount,
				}
			}
			hasTool := false
			for _, p := range c.Content.Parts {
				if p.FunctionCall != nil {
					hasTool = true
				}
			}
			events = append(events, ir.End(mapFinishReason(c.FinishReason, hasTool), usage))
		}
	}
	return events, nil
}

// ParseError decodes Gemini's `{"error":{"code","message","status"}}`
// body.
func (in inbound) ParseError(status int, body []byte) *ir.Error {
	var payload wireErrorPayload
	_ = json.Unmarshal(body, &payload)

	e := &ir.Error{Message: payload.Error.Message, Code: payload.Error.Status, Raw: body, Type: ir.ErrUnknown}
	if t := ir.ClassifyStatus(status); t != ir.ErrUnknown {
		e.Type = t
	} else if t := ir.ClassifyCode(payload.Error.Status); t != ir.ErrUnknown {
		e.Type = t
	} else {
		e.Type = ir.ClassifyMessage(payload.Error.Message)
	}
	e.Status = status
	return e
}
