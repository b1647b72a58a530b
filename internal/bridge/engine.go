package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/haasonsaas/nexus-bridge/internal/adapter"
	"github.com/haasonsaas/nexus-bridge/internal/config"
	"github.com/haasonsaas/nexus-bridge/internal/ir"
	"github.com/haasonsaas/nexus-bridge/internal/modelmap"
	"github.com/haasonsaas/nexus-bridge/internal/observability"
	"github.com/haasonsaas/nexus-bridge/internal/streambuilder"
	"github.com/haasonsaas/nexus-bridge/internal/transport"
)

// Engine is the bridge's HTTP entry point. It holds an
// atomically-swapped *Snapshot (spec §5: published wholesale, never
// mutated in place) and the registry of dialect adapters, and drives
// the translation pipeline described in spec.md §4.6.
type Engine struct {
	snapshot atomic.Pointer[Snapshot]
	adapters *adapter.Registry
	client   *transport.Client
	metrics  *observability.BridgeMetrics
	log      *slog.Logger
}

// NewEngine builds an Engine over the given adapter registry. Publish
// must be called at least once before ServeHTTP is safe to call.
func NewEngine(adapters *adapter.Registry, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		adapters: adapters,
		client:   transport.NewClient(0),
		metrics:  observability.NewBridgeMetrics(),
		log:      log,
	}
}

// Publish atomically swaps in a new configuration snapshot. Requests
// already in flight keep using the snapshot they loaded at entry.
func (e *Engine) Publish(snap *Snapshot) {
	e.snapshot.Store(snap)
}

func (e *Engine) current() *Snapshot {
	return e.snapshot.Load()
}

// ServeHTTP implements http.Handler: route lookup by proxyPath, then
// the streaming or unary pipeline.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snap := e.current()
	if snap == nil {
		writeJSONError(w, http.StatusServiceUnavailable, &ir.Error{Type: ir.ErrServer, Message: "bridge not yet configured"})
		return
	}

	proxyPath, shape, urlModel, ok := matchIngress(r.URL.Path)
	if !ok {
		writeJSONError(w, http.StatusNotFound, &ir.Error{Type: ir.ErrNotFound, Message: "not_found"})
		return
	}

	route, ok := snap.RouteByPath(proxyPath)
	if !ok {
		writeJSONError(w, http.StatusNotFound, &ir.Error{Type: ir.ErrNotFound, Message: "not_found"})
		return
	}

	inboundAdapter, ok := e.adapters.Get(route.InboundAdapter)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, &ir.Error{Type: ir.ErrServer, Message: "route references unknown inbound adapter"})
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, &ir.Error{Type: ir.ErrValidation, Message: "reading request body: " + err.Error()})
		return
	}

	req, err := inboundAdapter.Inbound().ParseRequest(body)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, asIRError(err), time.Now())
		return
	}
	if urlModel != "" && req.Model == "" {
		req.Model = urlModel
	}
	forceStream := shape == shapeGeminiStream

	e.handle(w, r, snap, route, inboundAdapter, req, forceStream || req.Stream)
}

func (e *Engine) handle(w http.ResponseWriter, r *http.Request, snap *Snapshot, route config.Route, inboundAdapter adapter.Adapter, req ir.Request, stream bool) {
	start := time.Now()

	settings := snap.Settings()
	resolved, err := snap.ResolveOutbound(route, settings.MaxProxyDepth)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, &ir.Error{Type: ir.ErrValidation, Message: err.Error()}, start)
		return
	}

	upstreamAdapter, ok := e.adapters.Get(resolved.provider.AdapterType)
	if !ok {
		e.finishWithError(w, inboundAdapter, route, &ir.Error{Type: ir.ErrServer, Message: "provider references unknown adapter type"}, start)
		return
	}

	sourceModel := req.Model
	targetModel := applyModelMappings(resolved.chain, req, upstreamAdapter.FamilyCatalog())
	req.Model = targetModel

	wireBody, err := upstreamAdapter.Outbound().BuildRequest(req)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, asIRError(err), start)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), settings.RequestTimeout)
	defer cancel()

	url := strings.TrimSuffix(resolved.provider.BaseURL, "/") + resolved.provider.ChatPath
	headers := authHeaders(resolved.provider.AdapterType, resolved.provider.APIKey)

	if stream {
		e.handleStream(ctx, w, inboundAdapter, upstreamAdapter, route, url, headers, wireBody, sourceModel, targetModel, start)
		return
	}
	e.handleUnary(ctx, w, inboundAdapter, upstreamAdapter, route, url, headers, wireBody, sourceModel, targetModel, start)
}

func (e *Engine) handleUnary(ctx context.Context, w http.ResponseWriter, inboundAdapter, upstreamAdapter adapter.Adapter, route config.Route, url string, headers http.Header, body []byte, sourceModel, targetModel string, start time.Time) {
	resp, err := e.client.Do(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, asIRError(err), start)
		return
	}
	if resp.Status >= 400 {
		upErr := upstreamAdapter.Inbound().ParseError(resp.Status, resp.Body)
		e.finishWithError(w, inboundAdapter, route, upErr, start)
		return
	}

	upstreamResp, err := upstreamAdapter.Inbound().ParseResponse(resp.Body)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, asIRError(err), start)
		return
	}
	upstreamResp.Model = targetModel

	outBody, err := inboundAdapter.Outbound().BuildResponse(upstreamResp)
	if err != nil {
		e.finishWithError(w, inboundAdapter, route, asIRError(err), start)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(outBody)

	e.finishOK(route, sourceModel, targetModel, http.StatusOK, usageOf(upstreamResp.Usage), start)
}

// isRawJSONDialect reports whether a dialect's streamed envelope is a
// bare concatenation of JSON objects (Gemini) rather than SSE framing
// (every other dialect this bridge supports).
func isRawJSONDialect(a adapter.Adapter) bool {
	return a.Name() == "gemini"
}

// nextUpstreamChunk abstracts over transport's two stream readers so
// handleStream can drive either without knowing which one it opened.
type nextUpstreamChunk func() (data []byte, done bool, err error)

func (e *Engine) openUpstream(ctx context.Context, upstreamAdapter adapter.Adapter, url string, headers http.Header, body []byte) (nextUpstreamChunk, func() error, error) {
	if isRawJSONDialect(upstreamAdapter) {
		reader, err := e.client.StreamRaw(ctx, http.MethodPost, url, headers, body)
		if err != nil {
			return nil, nil, err
		}
		next := func() ([]byte, bool, error) {
			raw, rerr := reader.Next()
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					return nil, true, nil
				}
				return nil, false, rerr
			}
			return []byte(raw), false, nil
		}
		return next, reader.Close, nil
	}

	reader, err := e.client.Stream(ctx, http.MethodPost, url, headers, body)
	if err != nil {
		return nil, nil, err
	}
	next := func() ([]byte, bool, error) {
		frame, rerr := reader.Next()
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil, true, nil
			}
			return nil, false, rerr
		}
		if frame.Done {
			return nil, true, nil
		}
		return []byte(frame.Data), false, nil
	}
	return next, reader.Close, nil
}

// writeDownstreamFrame renders one streambuilder.Frame onto the client
// connection, in whichever envelope the inbound dialect uses: SSE
// `event:`/`data:` pairs for every dialect but Gemini, and a bare JSON
// object (no framing at all) for Gemini (spec §6.4).
func writeDownstreamFrame(w http.ResponseWriter, raw bool, f streambuilder.Frame) {
	if raw {
		if b, ok := f.Data.([]byte); ok {
			_, _ = w.Write(b)
			return
		}
		enc, err := json.Marshal(f.Data)
		if err != nil {
			return
		}
		_, _ = w.Write(enc)
		return
	}

	if s, ok := f.Data.(string); ok && s == streambuilder.DoneSentinel {
		_, _ = io.WriteString(w, "data: "+streambuilder.DoneSentinel+"\n\n")
		return
	}
	if f.Event != "" {
		_, _ = io.WriteString(w, "event: "+f.Event+"\n")
	}
	enc, err := json.Marshal(f.Data)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(enc)
	_, _ = io.WriteString(w, "\n\n")
}

func (e *Engine) handleStream(ctx context.Context, w http.ResponseWriter, inboundAdapter, upstreamAdapter adapter.Adapter, route config.Route, url string, headers http.Header, body []byte, sourceModel, targetModel string, start time.Time) {
	flusher, _ := w.(http.Flusher)
	builder := inboundAdapter.Outbound().CreateStreamBuilder()
	rawDownstream := isRawJSONDialect(inboundAdapter)

	var upstreamErr *ir.Error
	var lastUsage *ir.Usage
	statusCode := http.StatusOK

	writeFrames := func(frames []streambuilder.Frame) {
		for _, f := range frames {
			writeDownstreamFrame(w, rawDownstream, f)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	emitEvents := func(events []ir.StreamEvent) {
		for _, ev := range events {
			if ev.Kind == ir.EventEnd {
				lastUsage = ev.EndUsage
			}
			if ev.Kind == ir.EventError {
				upstreamErr = ev.Err
			}
			frames, ferr := builder.Process(ev)
			if ferr != nil {
				e.log.Warn("stream builder rejected event", "route", route.ID, "error", ferr)
				continue
			}
			writeFrames(frames)
		}
	}

	next, closeStream, err := e.openUpstream(ctx, upstreamAdapter, url, headers, body)
	if err != nil {
		if status, errBody, ok := transport.AsStreamOpenError(err); ok {
			statusCode = status
			upErr := upstreamAdapter.Inbound().ParseError(status, errBody)
			e.finishWithError(w, inboundAdapter, route, upErr, start)
			return
		}
		e.finishWithError(w, inboundAdapter, route, asIRError(err), start)
		return
	}
	defer closeStream()

	if rawDownstream {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/event-stream")
	}
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		chunk, done, rerr := next()
		if rerr != nil {
			upstreamErr = transport.ClassifyError(ctx, rerr)
			e.log.Warn("upstream stream read error", "route", route.ID, "error", rerr, "errorType", upstreamErr.Type)
			break
		}
		if done {
			break
		}
		events, perr := upstreamAdapter.Inbound().ParseStream(chunk)
		if perr != nil {
			e.log.Warn("upstream chunk parse error, skipping", "route", route.ID, "error", perr)
			continue
		}
		emitEvents(events)
	}

	writeFrames(builder.Finalize())

	if upstreamErr != nil {
		statusCode = upstreamErr.Type.StatusCode()
		e.finishLog(route, sourceModel, targetModel, statusCode, usageOf(lastUsage), start, upstreamErr)
		return
	}
	e.finishOK(route, sourceModel, targetModel, statusCode, usageOf(lastUsage), start)
}

// applyModelMappings resolves the request's model through every route
// in the chain in order, threading the rewritten model from hop to
// hop: a proxy-chained route's own mapping list may target a different
// model name than the upstream route expects (spec §4.7 is defined
// per-route; composing a chain applies it per hop rather than once).
func applyModelMappings(chain []config.Route, req ir.Request, finalFamilies []adapter.Family) string {
	model := req.Model
	thinking := req.Generation.Thinking != nil && req.Generation.Thinking.Enabled
	for i, route := range chain {
		mappings := make([]modelmap.Mapping, 0, len(route.ModelMappings))
		for _, m := range route.ModelMappings {
			mappings = append(mappings, modelmap.Mapping{
				SourceModel: m.SourceModel,
				TargetModel: m.TargetModel,
				Type:        modelmap.MappingType(m.Type),
			})
		}
		var families []adapter.Family
		if i == len(chain)-1 {
			families = finalFamilies
		}
		model = modelmap.Resolve(mappings, model, thinking, families)
	}
	return model
}

func (e *Engine) finishOK(route config.Route, sourceModel, targetModel string, status int, u usage, start time.Time) {
	e.finishLog(route, sourceModel, targetModel, status, u, start, nil)
}

func (e *Engine) finishWithError(w http.ResponseWriter, inboundAdapter adapter.Adapter, route config.Route, err *ir.Error, start time.Time) {
	status := err.Type.StatusCode()
	body := inboundAdapter.Outbound().BuildErrorResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	e.finishLog(route, "", "", status, usage{}, start, err)
}

type usage struct {
	prompt, completion int
}

func usageOf(u *ir.Usage) usage {
	if u == nil {
		return usage{}
	}
	return usage{prompt: u.PromptTokens, completion: u.CompletionTokens}
}

// finishLog emits the request log record (spec §6.5) via slog and
// mirrors it into Prometheus.
func (e *Engine) finishLog(route config.Route, sourceModel, targetModel string, status int, u usage, start time.Time, err *ir.Error) {
	latency := time.Since(start)
	attrs := []any{
		"routeId", route.ID,
		"proxyPath", route.ProxyPath,
		"sourceModel", sourceModel,
		"targetModel", targetModel,
		"statusCode", status,
		"inputTokens", u.prompt,
		"outputTokens", u.completion,
		"latencyMs", latency.Milliseconds(),
	}
	metricStatus := "ok"
	if err != nil {
		metricStatus = "error"
		attrs = append(attrs, "errorMessage", err.Message)
		e.log.Error("bridge request", attrs...)
	} else {
		e.log.Info("bridge request", attrs...)
	}
	e.metrics.RecordRequest(route.ID, metricStatus, latency.Seconds(), u.prompt, u.completion)
}

func asIRError(err error) *ir.Error {
	var irErr *ir.Error
	if errors.As(err, &irErr) {
		return irErr
	}
	return ir.NewError(err.Error(), err)
}

func writeJSONError(w http.ResponseWriter, status int, err *ir.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"type": err.Type, "message": err.Message}})
}

// authHeaders builds the upstream auth header for a provider's adapter
// type. Each dialect family has its own convention: Anthropic's own
// header plus required version header, Gemini's API-key header, and
// every OpenAI-shaped dialect's bearer token.
func authHeaders(adapterType, apiKey string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	switch adapterType {
	case "anthropic":
		h.Set("x-api-key", apiKey)
		h.Set("anthropic-version", "2023-06-01")
	case "gemini":
		h.Set("x-goog-api-key", apiKey)
	default:
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}
