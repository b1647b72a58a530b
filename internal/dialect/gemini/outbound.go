package gemini

import (
	"encoding/json"
	"strings"

	"google.golang.org/genai"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

type outbound struct {
	d *Dialect
}

// BuildRequest lowers an IR request into a native Gemini generateContent
// body (spec §4.3). Only the native wire shape is ever produced
// outbound: whichever shape the request arrived in, the bridge always
// talks native Gemini upstream. The native body has no model field, so
// this method neither writes req.Model nor substitutes DefaultModel.
func (out outbound) BuildRequest(req ir.Request) ([]byte, error) {
	wr := wireRequest{}

	if req.System != "" {
		wr.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}

	for _, m := range req.Messages {
		c, err := convertMessageOut(m)
		if err != nil {
			return nil, err
		}
		wr.Contents = append(wr.Contents, c)
	}

	if len(req.Tools) > 0 {
		var decls []wireFunctionDecl
		for _, t := range req.Tools {
			decls = append(decls, wireFunctionDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  convertSchemaOut(t.Parameters),
			})
		}
		wr.Tools = []wireTool{{FunctionDeclarations: decls}}
	}

	if tc := convertToolChoiceOut(req.ToolChoice); tc != nil {
		wr.ToolConfig = tc
	}

	wr.GenerationConfig = convertGenerationOut(req.Generation)

	return json.Marshal(wr)
}

func convertMessageOut(m ir.Message) (wireContent, error) {
	role := "user"
	if m.Role == ir.RoleAssistant {
		role = "model"
	}

	var parts []wirePart

	if m.Role == ir.RoleTool {
		var responseData map[string]any
		if m.Content != "" {
			if err := json.Unmarshal([]byte(m.Content), &responseData); err != nil {
				responseData = map[string]any{"result": m.Content}
			}
		}
		parts = append(parts, wirePart{FunctionResponse: &wireFunctionResp{Name: m.ToolCallID, Response: responseData}})
		return wireContent{Role: "user", Parts: parts}, nil
	}

	if m.Content != "" {
		parts = append(parts, wirePart{Text: m.Content})
	}
	if m.ReasoningContent != "" {
		parts = append(parts, wirePart{Text: m.ReasoningContent, Thought: true})
	}
	for _, p := range m.ContentParts {
		switch p.Kind {
		case ir.ContentText:
			parts = append(parts, wirePart{Text: p.Text})
		case ir.ContentImage:
			if p.ImageSourceKind == ir.ImageSourceBase64 {
				parts = append(parts, wirePart{InlineData: &wireBlob{MIMEType: p.ImageMediaType, Data: p.ImageData}})
			} else {
				parts = append(parts, wirePart{FileData: &wireFileData{FileURI: p.ImageURL}})
			}
		case ir.ContentToolResult:
			var responseData map[string]any
			if err := json.Unmarshal([]byte(p.ToolResultText), &responseData); err != nil {
				responseData = map[string]any{"result": p.ToolResultText}
			}
			parts = append(parts, wirePart{FunctionResponse: &wireFunctionResp{Name: p.ToolResultUseID, Response: responseData}})
		}
	}
	for _, tc := range m.ToolCalls {
		var args map[string]any
		if tc.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
				return wireContent{}, &ir.Error{Type: ir.ErrValidation, Message: "invalid tool call arguments"}
			}
		}
		parts = append(parts, wirePart{FunctionCall: &wireFunctionCall{Name: tc.Name, Args: args}})
	}

	return wireContent{Role: role, Parts: parts}, nil
}

// convertSchemaOut lifts a tool's plain JSON Schema parameters into
// Gemini's upper-cased Schema vocabulary, following the teacher pack's
// own type-name mapping rather than assuming json.Unmarshal can decode
// JSON Schema directly into genai.Schema (its Type enum values don't
// match JSON Schema's lower-case type strings).
func convertSchemaOut(params json.RawMessage) *wireSchema {
	if len(params) == 0 {
		return nil
	}
	var raw map[string]any
	if json.Unmarshal(params, &raw) != nil {
		return nil
	}
	return jsonSchemaToWire(raw)
}

func jsonSchemaToWire(m map[string]any) *wireSchema {
	s := &wireSchema{}
	if t, ok := m["type"].(string); ok {
		s.Type = geminiTypeName(t)
	}
	if desc, ok := m["description"].(string); ok {
		s.Description = desc
	}
	if req, ok := m["required"].([]any); ok {
		for _, r := range req {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if enums, ok := m["enum"].([]any); ok {
		for _, e := range enums {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*wireSchema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = jsonSchemaToWire(pm)
			}
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = jsonSchemaToWire(items)
	}
	return s
}

func geminiTypeName(jsonSchemaType string) genai.Type {
	switch strings.ToLower(jsonSchemaType) {
	case "string":
		return genai.TypeString
	case "number", "float", "double":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func convertToolChoiceOut(tc ir.ToolChoice) *wireToolConfig {
	switch tc.Mode {
	case ir.ToolChoiceRequired:
		return &wireToolConfig{FunctionCallingConfig: &wireFunctionCallingConfig{Mode: "ANY"}}
	case ir.ToolChoiceFunction:
		return &wireToolConfig{FunctionCallingConfig: &wireFunctionCallingConfig{
			Mode:                 "ANY",
			AllowedFunctionNames: []string{tc.FunctionName},
		}}
	case ir.ToolChoiceNone:
		return &wireToolConfig{FunctionCallingConfig: &wireFunctionCallingConfig{Mode: "NONE"}}
	default:
		return nil
	}
}

func convertGenerationOut(gen ir.Generation) *wireGenConfig {
	gc := &wireGenConfig{}
	gc.Temperature = gen.Temperature
	gc.TopP = gen.TopP
	if gen.TopK != nil {
		k := float64(*gen.TopK)
		gc.TopK = &k
	}
	if gen.MaxTokens != nil {
		gc.MaxOutputTokens = *gen.MaxTokens
	}
	if len(gen.StopSequences) > 0 {
		gc.StopSequences = gen.StopSequences
	}
	if gen.Thinking != nil && gen.Thinking.Enabled {
		budget := gen.Thinking.BudgetTokens
		if budget <= 0 {
			budget = 8192
		}
		gc.ThinkingConfig = &wireThinkingConfig{IncludeThoughts: true, ThinkingBudget: budget}
	}
	return gc
}

// BuildResponse lowers an IR response into a native generateContent
// unary response body.
func (out outbound) BuildResponse(resp ir.Response) ([]byte, error) {
	wr := wireResponse{ModelVersion: resp.Model, ResponseID: resp.ID}
	for _, c := range resp.Choices {
		content, err := convertMessageOut(c.Message)
		if err != nil {
			return nil, err
		}
		content.Role = "model"
		wr.Candidates = append(wr.Candidates, wireCandidate{
			Content:      content,
			FinishReason: unmapFinishReason(c.FinishReason),
			Index:        c.Index,
		})
	}
	if resp.Usage != nil {
		wr.UsageMetadata = &wireUsage{
			PromptTokenCount:     resp.Usage.PromptTokens,
			CandidatesTokenCount: resp.Usage.CompletionTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		}
		if resp.Usage.Details != nil {
			wr.UsageMetadata.ThoughtsTokenCount = resp.Usage.Details.ReasoningTokens
			wr.UsageMetadata.CachedContentTokenCount = resp.Usage.Details.CachedTokens
		}
	}
	return json.Marshal(wr)
}

func unmapFinishReason(r ir.FinishReason) string {
	switch r {
	case ir.FinishStop, ir.FinishEndTurn, "":
		return "STOP"
	case ir.FinishLength:
		return "MAX_TOKENS"
	case ir.FinishContentFilter:
		return "SAFETY"
	case ir.FinishToolCalls:
		return "STOP"
	default:
		return "STOP"
	}
}

// BuildErrorResponse lowers an IR error into Gemini's
// `{"error":{"code","message","status"}}` envelope.
func (out outbound) BuildErrorResponse(err *ir.Error) []byte {
	payload := wireErrorPayload{Error: wireErrorBody{
		Code:    err.Type.StatusCode(),
		Message: err.Message,
		Status:  geminiStatusCode(err.Type),
	}}
	b, _ := json.Marshal(payload)
	return b
}

func geminiStatusCode(t ir.ErrorType) string {
	switch t {
	case ir.ErrValidation:
		return "INVALID_ARGUMENT"
	case ir.ErrAuthentication:
		return "UNAUTHENTICATED"
	case ir.ErrPermission:
		return "PERMISSION_DENIED"
	case ir.ErrNotFound:
		return "NOT_FOUND"
	case ir.ErrRateLimit:
		return "RESOURCE_EXHAUSTED"
	default:
		return "INTERNAL"
	}
}

// CreateStreamBuilder allocates fresh, request-scoped stream-builder
// state (spec §9: never shared or pooled across requests).
func (out outbound) CreateStreamBuilder() streambuilder.Builder {
	return newStreamBuilder()
}
