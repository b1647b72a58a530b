package openai

import (
	"encoding/json"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
)

type outbound struct {
	d *Dialect
}

// BuildRequest lowers an IR request into this dialect's wire body. When
// ir.Request.Model is empty, the dialect's documented default model name
// is substituted here — never in ParseRequest (spec §9).
func (out outbound) BuildRequest(req ir.Request) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = out.d.DefaultModel
	}

	sdkReq := openaisdk.ChatCompletionRequest{
		Model:  model,
		Stream: req.Stream,
	}

	if req.System != "" {
		sdkReq.Messages = append(sdkReq.Messages, openaisdk.ChatCompletionMessage{
			Role:    openaisdk.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		sdkReq.Messages = append(sdkReq.Messages, convertMessageOut(m))
	}

	for _, t := range req.Tools {
		var params any
		if len(t.Parameters) > 0 {
			_ = json.Unmarshal(t.Parameters, &params)
		}
		sdkReq.Tools = append(sdkReq.Tools, openaisdk.Tool{
			Type: openaisdk.ToolTypeFunction,
			Function: &openaisdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}

	sdkReq.ToolChoice = convertToolChoiceOut(req.ToolChoice, out.d.Capabilities().ToolChoice, out.d.NoRequiredToolChoice)

	applyGenerationOut(&sdkReq, req.Generation)

	return json.Marshal(sdkReq)
}

func convertMessageOut(m ir.Message) openaisdk.ChatCompletionMessage {
	out := openaisdk.ChatCompletionMessage{
		Role:       string(m.Role),
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	if m.HasParts() {
		out.Content = ""
		for _, part := range m.ContentParts {
			switch part.Kind {
			case ir.ContentText:
				out.MultiContent = append(out.MultiContent, openaisdk.ChatMessagePart{
					Type: openaisdk.ChatMessagePartTypeText,
					Text: part.Text,
				})
			case ir.ContentImage:
				url := part.ImageURL
				if part.ImageSourceKind == ir.ImageSourceBase64 {
					url = "data:" + part.ImageMediaType + ";base64," + part.ImageData
				}
				out.MultiContent = append(out.MultiContent, openaisdk.ChatMessagePart{
					Type:     openaisdk.ChatMessagePartTypeImageURL,
					ImageURL: &openaisdk.ChatMessageImageURL{URL: url},
				})
			case ir.ContentToolResult:
				// Unsupported as an inline part on this dialect: tool
				// results are their own tool-role message, degrade by
				// stringifying per spec §4.2.
				out.MultiContent = append(out.MultiContent, openaisdk.ChatMessagePart{
					Type: openaisdk.ChatMessagePartTypeText,
					Text: part.ToolResultText,
				})
			}
		}
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, openaisdk.ToolCall{
			ID:   tc.ID,
			Type: openaisdk.ToolTypeFunction,
			Function: openaisdk.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

func convertToolChoiceOut(tc ir.ToolChoice, supported, noRequired bool) any {
	if !supported || tc.Mode == "" || tc.Mode == ir.ToolChoiceAuto {
		return nil
	}
	switch tc.Mode {
	case ir.ToolChoiceNone:
		return "none"
	case ir.ToolChoiceRequired:
		if noRequired {
			return "auto"
		}
		return "required"
	case ir.ToolChoiceFunction:
		return openaisdk.ToolChoice{
			Type:     openaisdk.ToolTypeFunction,
			Function: openaisdk.ToolFunction{Name: tc.FunctionName},
		}
	default:
		return nil
	}
}

func applyGenerationOut(req *openaisdk.ChatCompletionRequest, gen ir.Generation) {
	if gen.Temperature != nil {
		req.Temperature = float32(*gen.Temperature)
	}
	if gen.TopP != nil {
		req.TopP = float32(*gen.TopP)
	}
	if gen.MaxTokens != nil {
		req.MaxTokens = *gen.MaxTokens
	}
	if len(gen.StopSequences) > 0 {
		req.Stop = gen.StopSequences
	}
	if gen.PresencePenalty != nil {
		req.PresencePenalty = float32(*gen.PresencePenalty)
	}
	if gen.FrequencyPenalty != nil {
		req.FrequencyPenalty = float32(*gen.FrequencyPenalty)
	}
	if gen.N != nil {
		req.N = *gen.N
	}
	if gen.Seed != nil {
		req.Seed = gen.Seed
	}
	if gen.ResponseFormat != nil {
		switch gen.ResponseFormat.Kind {
		case ir.ResponseFormatJSONObject:
			req.ResponseFormat = &openaisdk.ChatCompletionResponseFormat{Type: openaisdk.ChatCompletionResponseFormatTypeJSONObject}
		case ir.ResponseFormatJSONSchema:
			var schema any
			_ = json.Unmarshal(gen.ResponseFormat.JSONSchema, &schema)
			req.ResponseFormat = &openaisdk.ChatCompletionResponseFormat{
				Type: openaisdk.ChatCompletionResponseFormatTypeJSONSchema,
				JSONSchema: &openaisdk.ChatCompletionResponseFormatJSONSchema{
					Schema: schema,
				},
			}
		}
	}
	if gen.Logprobs {
		req.LogProbs = true
		if gen.TopLogprobs != nil {
			req.TopLogProbs = *gen.TopLogprobs
		}
	}
}

// BuildResponse lowers an IR response into this dialect's unary wire body.
func (out outbound) BuildResponse(resp ir.Response) ([]byte, error) {
	sdkResp := openaisdk.ChatCompletionResponse{
		ID:      resp.ID,
		Object:  "chat.completion",
		Created: resp.Created,
		Model:   resp.Model,
	}
	for _, c := range resp.Choices {
		sdkResp.Choices = append(sdkResp.Choices, openaisdk.ChatCompletionChoice{
			Index:        c.Index,
			Message:      convertMessageOut(c.Message),
			FinishReason: openaisdk.FinishReason(unmapFinishReason(c.FinishReason)),
		})
	}
	if resp.Usage != nil {
		sdkResp.Usage = openaisdk.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return json.Marshal(sdkResp)
}

// BuildErrorResponse lowers an IR error into the `{"error": {...}}`
// envelope every OpenAI-compatible dialect uses.
func (out outbound) BuildErrorResponse(err *ir.Error) []byte {
	var we wireError
	we.Error.Message = err.Message
	we.Error.Type = string(err.Type)
	we.Error.Code = err.Code
	b, _ := json.Marshal(we)
	return b
}

// CreateStreamBuilder allocates fresh, request-scoped stream-builder
// state (spec §9: never shared or pooled across requests).
func (out outbound) CreateStreamBuilder() streambuilder.Builder {
	return newStreamBuilder()
}
