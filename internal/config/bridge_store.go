package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// OutboundType discriminates what a Route's outbound resolves to.
type OutboundType string

const (
	OutboundProvider OutboundType = "provider"
	OutboundProxy    OutboundType = "proxy"
)

// Provider is an upstream LLM endpoint a route can terminate at (spec
// §6.3). AdapterType names the dialect adapter (registered in
// adapter.Registry) used to translate IR to this provider's wire
// format outbound.
type Provider struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	AdapterType string `yaml:"adapterType"`
	BaseURL    string `yaml:"baseUrl"`
	ChatPath   string `yaml:"chatPath"`
	ModelsPath string `yaml:"modelsPath"`
	APIKey     string `yaml:"apiKey"`
	Enabled    bool   `yaml:"enabled"`
}

// ModelMapping is one entry in a Route's ordered model-mapping list
// (spec §4.7).
type ModelMapping struct {
	SourceModel string `yaml:"sourceModel"`
	TargetModel string `yaml:"targetModel"`
	Type        string `yaml:"type"` // exact|reasoning|family|default
}

// Route is a proxy route (spec §3.6): a unique proxyPath, an inbound
// dialect adapter, and an outbound that either terminates at a
// Provider or chains to another Route.
type Route struct {
	ID             string         `yaml:"id"`
	ProxyPath      string         `yaml:"proxyPath"`
	InboundAdapter string         `yaml:"inboundAdapter"`
	OutboundType   OutboundType   `yaml:"outboundType"`
	OutboundID     string         `yaml:"outboundId"`
	ModelMappings  []ModelMapping `yaml:"modelMappings"`
	Enabled        bool           `yaml:"enabled"`
}

// Settings carries the engine's tunables: bind address, request
// timeout, and the bounded recursion depth for proxy-chained routes
// (spec §4.6, §6.1).
type Settings struct {
	BindAddress    string        `yaml:"bindAddress"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	MaxProxyDepth  int           `yaml:"maxProxyDepth"`
}

// BridgeConfig is the full configuration surface the bridge engine
// consumes (spec §6.3): providers, routes, and engine settings.
type BridgeConfig struct {
	Providers []Provider `yaml:"providers"`
	Routes    []Route    `yaml:"routes"`
	Settings  Settings   `yaml:"settings"`
}

// Validate checks the structural invariants config loading alone can't
// enforce: unique route ids among enabled routes, unique proxyPath
// among enabled routes, and that every route's outboundId resolves to
// something that exists.
func (c *BridgeConfig) Validate() error {
	providerByID := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		if p.ID == "" {
			return fmt.Errorf("provider missing id")
		}
		providerByID[p.ID] = true
	}

	routeByID := make(map[string]bool, len(c.Routes))
	pathSeen := make(map[string]bool, len(c.Routes))
	idSeen := make(map[string]bool, len(c.Routes))
	for _, r := range c.Routes {
		if r.ID == "" {
			return fmt.Errorf("route missing id")
		}
		routeByID[r.ID] = true
	}

	for _, r := range c.Routes {
		if !r.Enabled {
			continue
		}
		if idSeen[r.ID] {
			return fmt.Errorf("route %q: id already used by another enabled route", r.ID)
		}
		idSeen[r.ID] = true
		if r.ProxyPath == "" {
			return fmt.Errorf("route %q: proxyPath is required", r.ID)
		}
		if pathSeen[r.ProxyPath] {
			return fmt.Errorf("route %q: proxyPath %q already registered by another enabled route", r.ID, r.ProxyPath)
		}
		pathSeen[r.ProxyPath] = true

		switch r.OutboundType {
		case OutboundProvider:
			if !providerByID[r.OutboundID] {
				return fmt.Errorf("route %q: outboundId %q does not match a configured provider", r.ID, r.OutboundID)
			}
		case OutboundProxy:
			if !routeByID[r.OutboundID] {
				return fmt.Errorf("route %q: outboundId %q does not match a configured route", r.ID, r.OutboundID)
			}
		default:
			return fmt.Errorf("route %q: outboundType must be %q or %q", r.ID, OutboundProvider, OutboundProxy)
		}
	}
	return nil
}

func defaultSettings(s Settings) Settings {
	if s.MaxProxyDepth <= 0 {
		s.MaxProxyDepth = 4
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 120 * time.Second
	}
	if s.BindAddress == "" {
		s.BindAddress = "127.0.0.1:9527"
	}
	return s
}

// LoadBridgeConfig reads path (resolving $include directives and
// env-var expansion via LoadRaw, grounded on the teacher's loader.go),
// decodes it into a BridgeConfig, fills settings defaults, and
// validates it.
func LoadBridgeConfig(path string) (*BridgeConfig, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("loading bridge config: %w", err)
	}

	payload, err := yaml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("serializing bridge config: %w", err)
	}

	var cfg BridgeConfig
	decoder := yaml.NewDecoder(bytes.NewReader(payload))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing bridge config: %w", err)
	}

	cfg.Settings = defaultSettings(cfg.Settings)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Store holds the bridge's live configuration behind an atomic
// pointer, published wholesale on reload (spec §5: route/provider
// snapshot swapped atomically, never mutated in place). It supports
// two reload triggers: an fsnotify watch on the config file (external
// notification by edit) and an explicit Reload call (the
// /internal/reload admin endpoint).
type Store struct {
	path string
	cfg  atomic.Pointer[BridgeConfig]

	log *slog.Logger

	// OnReload, if set, is called with the newly published config after
	// every successful Reload (including ones triggered by Watch). The
	// bridge engine sets this to re-index and republish its own
	// Snapshot without this package needing to know about it.
	OnReload func(*BridgeConfig)

	watchMu     sync.Mutex
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
}

// NewStore loads path once and returns a Store ready to serve
// snapshots.
func NewStore(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, log: log}
	s.cfg.Store(cfg)
	return s, nil
}

// Snapshot returns the currently published BridgeConfig. Callers load
// it once at request entry and hold that pointer for the request's
// lifetime (spec §5), even if a reload publishes a new one meanwhile.
func (s *Store) Snapshot() *BridgeConfig {
	return s.cfg.Load()
}

// Reload re-reads the config file from disk and atomically publishes
// the result. A failed reload leaves the previous snapshot in place
// and returns the error; it never publishes a partially-valid config.
func (s *Store) Reload() error {
	cfg, err := LoadBridgeConfig(s.path)
	if err != nil {
		s.log.Error("bridge config reload failed", "path", s.path, "error", err)
		return err
	}
	s.cfg.Store(cfg)
	s.log.Info("bridge config reloaded", "path", s.path, "routes", len(cfg.Routes), "providers", len(cfg.Providers))
	if s.OnReload != nil {
		s.OnReload(cfg)
	}
	return nil
}

// Watch starts an fsnotify watch on the config file, debouncing bursts
// of writes (editors often emit several events per save) before
// calling Reload. It returns once the watcher is running; call the
// returned stop function, or cancel ctx, to tear it down.
func (s *Store) Watch(ctx context.Context) (stop func(), err error) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watcher != nil {
		return func() {}, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(s.path); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	s.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	s.watchCancel = cancel

	s.watchWg.Add(1)
	go s.watchLoop(watchCtx, watcher, 250*time.Millisecond)

	return func() { s.stopWatch() }, nil
}

func (s *Store) stopWatch() {
	s.watchMu.Lock()
	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	watcher := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()

	if watcher != nil {
		_ = watcher.Close()
	}
	s.watchWg.Wait()
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, debounce time.Duration) {
	defer s.watchWg.Done()

	var mu sync.Mutex
	var timer *time.Timer
	scheduleReload := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			_ = s.Reload()
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("bridge config watch error", "error", err)
		}
	}
}
