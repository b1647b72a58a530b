package bridge

import (
	"regexp"
	"strings"
)

// ingressShape names which of the three request shapes (spec §6.1) an
// incoming path's suffix matched. It only controls whether the engine
// must force streaming from the URL alone (Gemini); for OpenAI and
// Anthropic, streaming is a body field the inbound adapter reads.
type ingressShape string

const (
	shapeOpenAI           ingressShape = "openai"
	shapeAnthropic        ingressShape = "anthropic"
	shapeGeminiGenerate   ingressShape = "gemini_generate"
	shapeGeminiStream     ingressShape = "gemini_stream"
)

var geminiPathRE = regexp.MustCompile(`^(.*)/v1beta/models/([^:]+):(generateContent|streamGenerateContent)$`)

// matchIngress strips one of the recognized dialect suffixes from path
// and reports the proxyPath prefix left over, the matched shape, and
// (for Gemini) the model identifier embedded in the URL.
func matchIngress(path string) (proxyPath string, shape ingressShape, urlModel string, ok bool) {
	if m := geminiPathRE.FindStringSubmatch(path); m != nil {
		shape = shapeGeminiGenerate
		if m[3] == "streamGenerateContent" {
			shape = shapeGeminiStream
		}
		return m[1], shape, m[2], true
	}
	if rest, found := strings.CutSuffix(path, "/v1/chat/completions"); found {
		return rest, shapeOpenAI, "", true
	}
	if rest, found := strings.CutSuffix(path, "/v1/messages"); found {
		return rest, shapeAnthropic, "", true
	}
	return "", "", "", false
}
