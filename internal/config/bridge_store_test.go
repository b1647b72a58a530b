package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeBridgeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

const minimalBridgeConfig = `
providers:
  - id: prov-openai
    name: OpenAI
    adapterType: openai
    baseUrl: https://api.openai.com
    chatPath: /v1/chat/completions
    apiKey: sk-test
    enabled: true
routes:
  - id: route-1
    proxyPath: /v1/chat/completions
    inboundAdapter: openai
    outboundType: provider
    outboundId: prov-openai
    enabled: true
`

func TestLoadBridgeConfigFillsSettingsDefaults(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig)

	cfg, err := LoadBridgeConfig(path)
	if err != nil {
		t.Fatalf("LoadBridgeConfig() error = %v", err)
	}
	if cfg.Settings.MaxProxyDepth != 4 {
		t.Errorf("MaxProxyDepth = %d, want 4", cfg.Settings.MaxProxyDepth)
	}
	if cfg.Settings.RequestTimeout != 120*time.Second {
		t.Errorf("RequestTimeout = %v, want 120s", cfg.Settings.RequestTimeout)
	}
	if cfg.Settings.BindAddress != "127.0.0.1:9527" {
		t.Errorf("BindAddress = %q, want 127.0.0.1:9527", cfg.Settings.BindAddress)
	}
}

func TestLoadBridgeConfigRejectsUnknownFields(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig+"\nbogusField: true\n")

	if _, err := LoadBridgeConfig(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadBridgeConfigRejectsDuplicateProxyPath(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig+`
  - id: route-2
    proxyPath: /v1/chat/completions
    inboundAdapter: anthropic
    outboundType: provider
    outboundId: prov-openai
    enabled: true
`)

	_, err := LoadBridgeConfig(path)
	if err == nil {
		t.Fatal("expected error for duplicate proxyPath")
	}
	if !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate proxyPath error, got %v", err)
	}
}

func TestLoadBridgeConfigRejectsUnknownOutboundID(t *testing.T) {
	path := writeBridgeConfig(t, `
routes:
  - id: route-1
    proxyPath: /v1/chat/completions
    inboundAdapter: openai
    outboundType: provider
    outboundId: prov-missing
    enabled: true
`)

	_, err := LoadBridgeConfig(path)
	if err == nil {
		t.Fatal("expected error for unresolved outboundId")
	}
	if !strings.Contains(err.Error(), "prov-missing") {
		t.Fatalf("expected error naming prov-missing, got %v", err)
	}
}

func TestStoreReloadPublishesNewSnapshot(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig)

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if got := len(store.Snapshot().Routes); got != 1 {
		t.Fatalf("initial Routes = %d, want 1", got)
	}

	if err := os.WriteFile(path, []byte(strings.TrimSpace(minimalBridgeConfig+`
  - id: route-2
    proxyPath: /v1/messages
    inboundAdapter: anthropic
    outboundType: provider
    outboundId: prov-openai
    enabled: true
`)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var reloaded *BridgeConfig
	store.OnReload = func(cfg *BridgeConfig) {
		reloaded = cfg
	}

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := len(store.Snapshot().Routes); got != 2 {
		t.Errorf("Routes after reload = %d, want 2", got)
	}
	if reloaded == nil || len(reloaded.Routes) != 2 {
		t.Errorf("OnReload callback did not receive the reloaded config with 2 routes")
	}
}

func TestStoreReloadKeepsPreviousSnapshotOnError(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig)

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if err := os.WriteFile(path, []byte("not: [valid"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := store.Reload(); err == nil {
		t.Fatal("expected Reload() to fail on invalid yaml")
	}
	if got := len(store.Snapshot().Routes); got != 1 {
		t.Errorf("Routes after failed reload = %d, want unchanged 1", got)
	}
}

func TestStoreWatchTriggersReloadOnFileChange(t *testing.T) {
	path := writeBridgeConfig(t, minimalBridgeConfig)

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	reloaded := make(chan *BridgeConfig, 1)
	store.OnReload = func(cfg *BridgeConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop, err := store.Watch(ctx)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte(strings.TrimSpace(minimalBridgeConfig+`
  - id: route-2
    proxyPath: /v1/messages
    inboundAdapter: anthropic
    outboundType: provider
    outboundId: prov-openai
    enabled: true
`)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	select {
	case cfg := <-reloaded:
		if len(cfg.Routes) != 2 {
			t.Errorf("reloaded Routes = %d, want 2", len(cfg.Routes))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch-triggered reload")
	}
}
