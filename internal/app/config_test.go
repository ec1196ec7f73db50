package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"

	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/tokensource"
)

func noEnv() []string { return nil }

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("", noEnv, nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:4000",
			MaxRequestBytes: 10 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			URL:            "http://127.0.0.1:30000",
			KeyStorage:     KeyStorageNone,
			APIKeyEnv:      "SGLANG_API_KEY",
			HealthInterval: 10 * time.Second,
		},
		Model: ModelConfig{
			Name:       "default",
			Tokenizer:  tokenizer.DefaultEncoding,
			ToolParser: ToolParserAuto,
		},
		Log: LogConfig{
			Level:        "info",
			Format:       "auto",
			OTLPProtocol: "http",
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = "0.0.0.0:8080"
api_key = "from-file"

[engine]
url = "http://engine:30000"
incremental_output = true
timeout = "2m"

[model]
name = "kimi-k2-instruct"
tool_parser = "kimi_k2"
system_fingerprint = "fp_test"

[model.special_tokens]
"<|im_end|>" = 200020
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	environ := func() []string {
		return []string{
			"SGLANG_BRIDGE_SERVER__API_KEY=from-env",
			"SGLANG_BRIDGE_LOG__FORMAT=json",
			"UNRELATED=1",
		}
	}
	overrides := map[string]any{"log.level": "debug"}

	cfg, err := LoadConfig(path, environ, overrides)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("Server.Addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Server.APIKey != "from-env" {
		t.Errorf("Server.APIKey = %q, want env to override file", cfg.Server.APIKey)
	}
	if !cfg.Engine.IncrementalOutput || cfg.Engine.Timeout != 2*time.Minute {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Model.ToolParser != "kimi_k2" || cfg.Model.SystemFingerprint != "fp_test" {
		t.Errorf("Model = %+v", cfg.Model)
	}
	if diff := cmp.Diff(map[string]uint32{"<|im_end|>": 200020}, cfg.Model.SpecialTokens); diff != "" {
		t.Errorf("SpecialTokens mismatch (-want +got):\n%s", diff)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "debug" {
		t.Errorf("Log = %+v", cfg.Log)
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.HealthInterval != 10*time.Second {
		t.Errorf("Engine.HealthInterval = %v, want default", cfg.Engine.HealthInterval)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		path      string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.toml")},
		{name: "bad addr", overrides: map[string]any{"server.addr": "no-port"}},
		{name: "bad engine url", overrides: map[string]any{"engine.url": "engine:30000"}},
		{name: "unknown key storage", overrides: map[string]any{"engine.key_storage": "vault"}},
		{name: "env storage without variable", overrides: map[string]any{"engine.key_storage": "env", "engine.api_key_env": ""}},
		{name: "bad log format", overrides: map[string]any{"log.format": "xml"}},
		{name: "bad otlp protocol", overrides: map[string]any{"log.otlp_protocol": "udp"}},
		{name: "zero request limit", overrides: map[string]any{"server.max_request_bytes": 0}},
		{name: "empty model", overrides: map[string]any{"model.name": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(tt.path, noEnv, tt.overrides); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}

func TestTransformEnv(t *testing.T) {
	key, value := transformEnv("SGLANG_BRIDGE_ENGINE__API_KEY_ENV", "X")
	if key != "engine.api_key_env" || value != "X" {
		t.Errorf("transformEnv() = %q, %v", key, value)
	}
}

func TestEngineConfig_KeyStore(t *testing.T) {
	keyring.MockInit()

	t.Run("none", func(t *testing.T) {
		store, err := EngineConfig{KeyStorage: KeyStorageNone}.KeyStore()
		if err != nil || store != nil {
			t.Errorf("KeyStore() = %v, %v, want nil, nil", store, err)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_ENGINE_KEY", "secret")
		store, err := EngineConfig{KeyStorage: KeyStorageEnv, APIKeyEnv: "TEST_ENGINE_KEY"}.KeyStore()
		if err != nil {
			t.Fatalf("KeyStore() error = %v", err)
		}
		got, err := store.Read(context.Background())
		if err != nil || got != "secret" {
			t.Errorf("Read() = %q, %v", got, err)
		}
	})

	t.Run("keyring keyed by url", func(t *testing.T) {
		cfg := EngineConfig{KeyStorage: KeyStorageKeyring, URL: "http://engine:30000/"}
		store, err := cfg.KeyStore()
		if err != nil {
			t.Fatalf("KeyStore() error = %v", err)
		}
		if err := store.Write(context.Background(), "k"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		got, err := keyring.Get(tokensource.DefaultKeyringService, "engine:http://engine:30000")
		if err != nil || got != "k" {
			t.Errorf("keyring.Get() = %q, %v", got, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := (EngineConfig{KeyStorage: "vault"}).KeyStore(); err == nil {
			t.Error("KeyStore() error = nil, want error")
		}
	})
}
