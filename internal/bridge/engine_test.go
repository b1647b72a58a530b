package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/config"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/anthropic"
	"github.com/haasonsaas/nexus-bridge/internal/dialect/openai"
)

func testRegistry() *adapter.Registry {
	return adapter.NewRegistry(openai.New(), anthropic.New())
}

func testSnapshot(t *testing.T, upstreamURL string) *Snapshot {
	t.Helper()
	cfg := &config.BridgeConfig{
		Providers: []config.Provider{
			{ID: "prov-openai", Name: "test-openai", AdapterType: "openai", BaseURL: upstreamURL, ChatPath: "/v1/chat/completions", Enabled: true},
		},
		Routes: []config.Route{
			{ID: "route-1", ProxyPath: "/bridge1", InboundAdapter: "openai", OutboundType: config.OutboundProvider, OutboundID: "prov-openai", Enabled: true},
		},
		Settings: config.Settings{MaxProxyDepth: 4, RequestTimeout: 5 * time.Second, BindAddress: "127.0.0.1:0"},
	}
	return NewSnapshot(cfg)
}

func TestServeHTTPReturns404ForUnknownPath(t *testing.T) {
	engine := NewEngine(testRegistry(), nil)
	engine.Publish(testSnapshot(t, "http://unused"))

	req := httptest.NewRequest(http.MethodPost, "/nope/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestServeHTTPUnaryRoundTrip(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","model":"gpt-4o-mini","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	}))
	defer upstream.Close()

	engine := NewEngine(testRegistry(), nil)
	engine.Publish(testSnapshot(t, upstream.URL))

	body := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/bridge1/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response not valid JSON: %v", err)
	}
	choices, _ := decoded["choices"].([]any)
	if len(choices) != 1 {
		t.Fatalf("choices = %+v, want 1 entry", decoded["choices"])
	}
}

func TestServeHTTPRelaysUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer upstream.Close()

	engine := NewEngine(testRegistry(), nil)
	engine.Publish(testSnapshot(t, upstream.URL))

	body := []byte(`{"model":"gpt-4o-mini","messages":[{"role":"user","content":"hi"}]}`)
	req := httptest.NewRequest(http.MethodPost, "/bridge1/v1/chat/completions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429, body=%s", rec.Code, rec.Body.String())
	}
}

func TestServeHTTPStreamLogsCancelledOnClientDisconnect(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, _ := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`data: {"id":"c1","model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":"hi"}}]}` + "\n\n"))
		if flusher != nil {
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	defer upstream.Close()

	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	engine := NewEngine(testRegistry(), logger)
	engine.Publish(testSnapshot(t, upstream.URL))

	body := []byte(`{"model":"gpt-4o-mini","stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodPost, "/bridge1/v1/chat/completions", bytes.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()

	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	engine.ServeHTTP(rec, req)

	logged := logBuf.String()
	if !strings.Contains(logged, `"statusCode":499`) {
		t.Fatalf("log missing statusCode=499 on client cancellation, got: %s", logged)
	}
	if !strings.Contains(logged, "errorMessage") {
		t.Fatalf("log missing errorMessage on client cancellation, got: %s", logged)
	}
}

func TestResolveOutboundDetectsCycle(t *testing.T) {
	cfg := &config.BridgeConfig{
		Routes: []config.Route{
			{ID: "a", ProxyPath: "/a", OutboundType: config.OutboundProxy, OutboundID: "b", Enabled: true},
			{ID: "b", ProxyPath: "/b", OutboundType: config.OutboundProxy, OutboundID: "a", Enabled: true},
		},
		Settings: config.Settings{MaxProxyDepth: 4},
	}
	snap := NewSnapshot(cfg)
	route, _ := snap.RouteByID("a")
	if _, err := snap.ResolveOutbound(route, 4); err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestResolveOutboundRespectsMaxDepth(t *testing.T) {
	cfg := &config.BridgeConfig{
		Providers: []config.Provider{{ID: "p", AdapterType: "openai", Enabled: true}},
		Routes: []config.Route{
			{ID: "r1", ProxyPath: "/r1", OutboundType: config.OutboundProxy, OutboundID: "r2", Enabled: true},
			{ID: "r2", ProxyPath: "/r2", OutboundType: config.OutboundProxy, OutboundID: "r3", Enabled: true},
			{ID: "r3", ProxyPath: "/r3", OutboundType: config.OutboundProvider, OutboundID: "p", Enabled: true},
		},
	}
	snap := NewSnapshot(cfg)
	route, _ := snap.RouteByID("r1")

	if _, err := snap.ResolveOutbound(route, 2); err == nil {
		t.Fatal("expected max-depth error with depth budget 2 for a 3-hop chain")
	}
	if _, err := snap.ResolveOutbound(route, 3); err != nil {
		t.Fatalf("ResolveOutbound() with sufficient depth budget errored: %v", err)
	}
}

func TestMatchIngressRecognizesAllThreeShapes(t *testing.T) {
	cases := []struct {
		path      string
		wantProxy string
		wantShape ingressShape
	}{
		{"/bridge1/v1/chat/completions", "/bridge1", shapeOpenAI},
		{"/bridge1/v1/messages", "/bridge1", shapeAnthropic},
		{"/bridge1/v1beta/models/gemini-2.0-flash:generateContent", "/bridge1", shapeGeminiGenerate},
		{"/bridge1/v1beta/models/gemini-2.0-flash:streamGenerateContent", "/bridge1", shapeGeminiStream},
	}
	for _, tc := range cases {
		proxy, shape, _, ok := matchIngress(tc.path)
		if !ok || proxy != tc.wantProxy || shape != tc.wantShape {
			t.Errorf("matchIngress(%q) = (%q, %q, %v), want (%q, %q, true)", tc.path, proxy, shape, ok, tc.wantProxy, tc.wantShape)
		}
	}
}
