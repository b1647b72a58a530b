package openai

import (
	"encoding/json"

	openaisdk "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/nexus-bridge/internal/ir"
)

type inbound struct {
	d *Dialect
}

// ParseRequest lifts an OpenAI-shaped request body to IR. A leading
// system message is promoted to IR.System and removed from Messages, per
// spec §4.2. It never substitutes a default model — that only happens in
// BuildRequest (spec §9).
func (in inbound) ParseRequest(body []byte) (ir.Request, error) {
	sdkReq, extra, err := decodeRequest(body)
	if err != nil {
		return ir.Request{}, err
	}
	if len(sdkReq.Messages) == 0 {
		return ir.Request{}, &ir.Error{Type: ir.ErrValidation, Message: "messages must be non-empty"}
	}

	req := ir.Request{
		Model:  sdkReq.Model,
		Stream: sdkReq.Stream,
	}

	msgs := sdkReq.Messages
	if len(msgs) > 0 && msgs[0].Role == openaisdk.ChatMessageRoleSystem {
		req.System = msgs[0].Content
		msgs = msgs[1:]
	}

	for _, m := range msgs {
		req.Messages = append(req.Messages, convertMessageIn(m))
	}

	for _, t := range sdkReq.Tools {
		if t.Function == nil {
			continue
		}
		params, _ := json.Marshal(t.Function.Parameters)
		tool := ir.Tool{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			Parameters:  params,
		}
		if err := ir.ValidateToolSchema(tool); err != nil {
			return ir.Request{}, err
		}
		req.Tools = append(req.Tools, tool)
	}

	req.ToolChoice = convertToolChoiceIn(sdkReq.ToolChoice)

	req.Generation = convertGenerationIn(sdkReq, extra)

	req.Raw = json.RawMessage(body)
	return req, nil
}

func convertMessageIn(m openaisdk.ChatCompletionMessage) ir.Message {
	out := ir.Message{
		Role:       ir.Role(m.Role),
		Content:    m.Content,
		Name:       m.Name,
		ToolCallID: m.ToolCallID,
	}
	if len(m.MultiContent) > 0 {
		for _, part := range m.MultiContent {
			switch part.Type {
			case openaisdk.ChatMessagePartTypeText:
				out.ContentParts = append(out.ContentParts, ir.ContentPart{Kind: ir.ContentText, Text: part.Text})
			case openaisdk.ChatMessagePartTypeImageURL:
				if part.ImageURL != nil {
					out.ContentParts = append(out.ContentParts, ir.ContentPart{
						Kind:            ir.ContentImage,
						ImageSourceKind: ir.ImageSourceURL,
						ImageURL:        part.ImageURL.URL,
					})
				}
			}
		}
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ir.ToolCall{
			ID:        tc.ID,
			Type:      "function",
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}

func convertToolChoiceIn(tc any) ir.ToolChoice {
	switch v := tc.(type) {
	case nil:
		return ir.ToolChoice{}
	case string:
		switch v {
		case "none":
			return ir.ToolChoice{Mode: ir.ToolChoiceNone}
		case "required":
			return ir.ToolChoice{Mode: ir.ToolChoiceRequired}
		default:
			return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
		}
	case openaisdk.ToolChoice:
		if v.Function.Name != "" {
			return ir.ToolChoice{Mode: ir.ToolChoiceFunction, FunctionName: v.Function.Name}
		}
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	default:
		return ir.ToolChoice{Mode: ir.ToolChoiceAuto}
	}
}

func convertGenerationIn(req openaisdk.ChatCompletionRequest, extra wireRequest) ir.Generation {
	gen := ir.Generation{}
	if req.Temperature != 0 {
		t := float64(req.Temperature)
		gen.Temperature = &t
	}
	if req.TopP != 0 {
		p := float64(req.TopP)
		gen.TopP = &p
	}
	if req.MaxTokens != 0 {
		mt := req.MaxTokens
		gen.MaxTokens = &mt
	}
	if len(req.Stop) > 0 {
		gen.StopSequences = req.Stop
	}
	if req.PresencePenalty != 0 {
		pp := float64(req.PresencePenalty)
		gen.PresencePenalty = &pp
	}
	if req.FrequencyPenalty != 0 {
		fp := float64(req.FrequencyPenalty)
		gen.FrequencyPenalty = &fp
	}
	if req.N != 0 {
		n := req.N
		gen.N = &n
	}
	if req.Seed != nil {
		gen.Seed = req.Seed
	}
	if req.ResponseFormat != nil {
		switch req.ResponseFormat.Type {
		case openaisdk.ChatCompletionResponseFormatTypeJSONObject:
			gen.ResponseFormat = &ir.ResponseFormat{Kind: ir.ResponseFormatJSONObject}
		case openaisdk.ChatCompletionResponseFormatTypeJSONSchema:
			var schema json.RawMessage
			if req.ResponseFormat.JSONSchema != nil {
				schema, _ = json.Marshal(req.ResponseFormat.JSONSchema.Schema)
			}
			gen.ResponseFormat = &ir.ResponseFormat{Kind: ir.ResponseFormatJSONSchema, JSONSchema: schema}
		default:
			gen.ResponseFormat = &ir.ResponseFormat{Kind: ir.ResponseFormatText}
		}
	}
	if extra.EnableThinking != nil {
		gen.Thinking = &ir.Thinking{Enabled: *extra.EnableThinking}
	}
	if req.LogProbs {
		gen.Logprobs = true
		if req.TopLogProbs != 0 {
			tlp := req.TopLogProbs
			gen.TopLogprobs = &tlp
		}
	}
	return gen
}

// ParseResponse lifts an OpenAI-shaped unary response body to IR.
func (in inbound) ParseResponse(body []byte) (ir.Response, error) {
	var sdkResp openaisdk.ChatCompletionResponse
	if err := json.Unmarshal(body, &sdkResp); err != nil {
		return ir.Response{}, &ir.Error{Type: ir.ErrValidation, Message: "malformed response body: " + err.Error(), Cause: err}
	}

	resp := ir.Response{
		ID:      sdkResp.ID,
		Model:   sdkResp.Model,
		Created: sdkResp.Created,
		Raw:     json.RawMessage(body),
	}
	for _, c := range sdkResp.Choices {
		resp.Choices = append(resp.Choices, ir.Choice{
			Index:        c.Index,
			Message:      convertMessageIn(c.Message),
			FinishReason: mapFinishReason(string(c.FinishReason)),
		})
	}
	resp.Usage = &ir.Usage{
		PromptTokens:     sdkResp.Usage.PromptTokens,
		CompletionTokens: sdkResp.Usage.CompletionTokens,
		TotalTokens:      sdkResp.Usage.TotalTokens,
	}
	return resp, nil
}

// ParseStream lifts one upstream SSE data payload to IR stream events.
// Every chunk with choices yields a start event first (the stream
// builders act only on the first one they see), then per choice any
// reasoning and content events, one tool_call event per tool-call delta,
// and an end event when finish_reason is set. A chunk with no choices
// but with usage yields a single end event.
func (in inbound) ParseStream(chunk []byte) ([]ir.StreamEvent, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	var sc streamChunk
	if err := json.Unmarshal(chunk, &sc); err != nil {
		return nil, &ir.Error{Type: ir.ErrValidation, Message: "malformed stream chunk: " + err.Error(), Cause: err}
	}
	if len(sc.Choices) == 0 {
		if sc.Usage != nil {
			return []ir.StreamEvent{ir.End(ir.FinishStop, &ir.Usage{
				PromptTokens:     sc.Usage.PromptTokens,
				CompletionTokens: sc.Usage.CompletionTokens,
				TotalTokens:      sc.Usage.TotalTokens,
			})}, nil
		}
		return nil, nil
	}

	var events []ir.StreamEvent
	events = append(events, ir.Start(sc.ID, sc.Model))

	for _, choice := range sc.Choices {
		if choice.Delta.ReasoningContent != "" {
			events = append(events, ir.Reasoning(choice.Delta.ReasoningContent))
		}
		if choice.Delta.Content != "" {
			events = append(events, ir.Content(choice.Delta.Content, choice.Index))
		}
		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			events = append(events, ir.ToolCallFragment(idx, tc.ID, tc.Function.Name, tc.Function.Arguments))
		}
		if choice.FinishReason != "" {
			var usage *ir.Usage
			if sc.Usage != nil {
				usage = &ir.Usage{
					PromptTokens:     sc.Usage.PromptTokens,
					CompletionTokens: sc.Usage.CompletionTokens,
					TotalTokens:      sc.Usage.TotalTokens,
				}
			}
			events = append(events, ir.End(mapFinishReason(choice.FinishReason), usage))
		}
	}
	return events, nil
}

// ParseError lifts an OpenAI-shaped `{"error": {...}}` body to ir.Error.
func (in inbound) ParseError(status int, body []byte) *ir.Error {
	e := &ir.Error{Status: status}
	var we wireError
	if len(body) > 0 && json.Unmarshal(body, &we) == nil && we.Error.Message != "" {
		e.Message = we.Error.Message
		e.Code = we.Error.Code
		if we.Error.Code == "" {
			e.Code = we.Error.Type
		}
	}
	e.Raw = body
	e.Type = ir.ClassifyStatus(status)
	if e.Type == ir.ErrUnknown && e.Code != "" {
		e.Type = ir.ClassifyCode(e.Code)
	}
	if e.Type == ir.ErrUnknown {
		e.Type = ir.ClassifyMessage(e.Message)
	}
	return e
}
