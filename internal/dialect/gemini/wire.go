// Package gemini wires the Gemini native (generateContent /
// streamGenerateContent) dialect. Unlike the OpenAI-shaped dialects,
// Gemini's wire format has no role-per-message system prompt and no
// named SSE event types: a request carries `contents` plus a top-level
// `systemInstruction`, and a stream is a sequence of bare JSON objects,
// each a partial GenerateContentResponse (spec §4.3, §4.4).
package gemini

import (
	"encoding/json"

	"google.golang.org/genai"
)

// wireRequest is the native generateContent request body.
type wireRequest struct {
	Contents          []wireContent      `json:"contents"`
	SystemInstruction *wireContent       `json:"systemInstruction,omitempty"`
	Tools             []wireTool         `json:"tools,omitempty"`
	ToolConfig        *wireToolConfig    `json:"toolConfig,omitempty"`
	GenerationConfig  *wireGenConfig     `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

// wirePart is a tagged union over Gemini's part kinds. Only the field
// matching what's populated is meaningful; Gemini distinguishes them
// structurally (by which field is present) rather than with a `type`
// discriminant.
type wirePart struct {
	Text             string              `json:"text,omitempty"`
	InlineData       *wireBlob           `json:"inlineData,omitempty"`
	FileData         *wireFileData       `json:"fileData,omitempty"`
	FunctionCall     *wireFunctionCall   `json:"functionCall,omitempty"`
	FunctionResponse *wireFunctionResp   `json:"functionResponse,omitempty"`
	Thought          bool                `json:"thought,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type wireFileData struct {
	MIMEType string `json:"mimeType"`
	FileURI  string `json:"fileUri"`
}

type wireFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type wireFunctionResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response,omitempty"`
}

type wireTool struct {
	FunctionDeclarations []wireFunctionDecl `json:"functionDeclarations,omitempty"`
}

type wireFunctionDecl struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Parameters  *wireSchema `json:"parameters,omitempty"`
}

// wireSchema mirrors genai.Schema's OpenAPI-subset shape. Type reuses
// genai.Type itself (STRING, NUMBER, INTEGER, BOOLEAN, ARRAY, OBJECT),
// not the lower-case JSON Schema vocabulary tools are described with
// elsewhere in the bridge (spec's tool Parameters are plain JSON
// Schema; convertSchemaOut below bridges the two).
type wireSchema struct {
	Type        genai.Type             `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*wireSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *wireSchema            `json:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty"`
}

type wireToolConfig struct {
	FunctionCallingConfig *wireFunctionCallingConfig `json:"functionCallingConfig,omitempty"`
}

type wireFunctionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty"`
}

type wireGenConfig struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *float64 `json:"topK,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
	StopSequences    []string `json:"stopSequences,omitempty"`
	ThinkingConfig   *wireThinkingConfig `json:"thinkingConfig,omitempty"`
}

type wireThinkingConfig struct {
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
}

// wireResponse is the native generateContent response body, and also
// the shape of every element in a streamGenerateContent stream: Gemini
// streams by repeating this same envelope with growing/partial
// candidates rather than emitting distinct delta event types.
type wireResponse struct {
	Candidates    []wireCandidate `json:"candidates"`
	UsageMetadata *wireUsage      `json:"usageMetadata,omitempty"`
	ModelVersion  string          `json:"modelVersion,omitempty"`
	ResponseID    string          `json:"responseId,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
	Index        int         `json:"index"`
}

type wireUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	CachedContentTokenCount int `json:"cachedContentTokenCount"`
}

// wireErrorPayload is Gemini's `{"error":{...}}` envelope.
type wireErrorPayload struct {
	Error wireErrorBody `json:"error"`
}

type wireErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
