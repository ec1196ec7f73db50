package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/tokensource"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore: SGLANG_BRIDGE_ENGINE__URL sets engine.url.
const EnvPrefix = "SGLANG_BRIDGE_"

// KeyStorageType selects where the engine API key is read from.
type KeyStorageType string

const (
	// KeyStorageNone sends no credentials unless engine.api_key is set.
	KeyStorageNone KeyStorageType = "none"
	// KeyStorageEnv reads the key from the variable named by engine.api_key_env.
	KeyStorageEnv KeyStorageType = "env"
	// KeyStorageKeyring reads the key from the OS keyring.
	KeyStorageKeyring KeyStorageType = "keyring"
)

// Tool parser settings besides a parser name.
const (
	ToolParserAuto = "auto"
	ToolParserNone = "none"
)

// Config is the gateway configuration.
type Config struct {
	Server ServerConfig `koanf:"server"`
	Engine EngineConfig `koanf:"engine"`
	Model  ModelConfig  `koanf:"model"`
	Log    LogConfig    `koanf:"log"`
}

// ServerConfig configures the inbound HTTP server.
type ServerConfig struct {
	Addr string `koanf:"addr" validate:"required,hostname_port"`
	// APIKey, when set, is required from clients as bearer token.
	APIKey          string        `koanf:"api_key"`
	MaxRequestBytes int64         `koanf:"max_request_bytes" validate:"min=1"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"min=0"`
}

// EngineConfig configures the connection to the SGLang engine.
type EngineConfig struct {
	URL string `koanf:"url" validate:"required,http_url"`
	// APIKey takes precedence over KeyStorage.
	APIKey            string         `koanf:"api_key"`
	KeyStorage        KeyStorageType `koanf:"key_storage" validate:"oneof=none env keyring"`
	APIKeyEnv         string         `koanf:"api_key_env" validate:"required_if=KeyStorage env"`
	IncrementalOutput bool           `koanf:"incremental_output"`
	Timeout           time.Duration  `koanf:"timeout" validate:"min=0"`
	HealthInterval    time.Duration  `koanf:"health_interval" validate:"min=0"`
}

// ModelConfig describes the served model.
type ModelConfig struct {
	Name      string `koanf:"name" validate:"required"`
	Tokenizer string `koanf:"tokenizer" validate:"required"`
	// SpecialTokens adds control tokens the encoding does not know, such as
	// the chat template markers of the served model.
	SpecialTokens map[string]uint32 `koanf:"special_tokens"`
	// ToolParser is a parser name, "auto" to pick by model name, or "none".
	ToolParser        string `koanf:"tool_parser" validate:"required"`
	SystemFingerprint string `koanf:"system_fingerprint"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level        string `koanf:"level" validate:"oneof=debug info warn error DEBUG INFO WARN ERROR"`
	Format       string `koanf:"format" validate:"oneof=auto text json"`
	OTLPEndpoint string `koanf:"otlp_endpoint" validate:"omitempty,url"`
	OTLPProtocol string `koanf:"otlp_protocol" validate:"oneof=http grpc stdout"`
}

// defaults are the lowest configuration layer.
var defaults = map[string]any{
	"server.addr":              "127.0.0.1:4000",
	"server.max_request_bytes": 10 << 20,
	"server.shutdown_timeout":  "10s",

	"engine.url":             "http://127.0.0.1:30000",
	"engine.key_storage":     string(KeyStorageNone),
	"engine.api_key_env":     "SGLANG_API_KEY",
	"engine.timeout":         "0s",
	"engine.health_interval": "10s",

	"model.name":        "default",
	"model.tokenizer":   tokenizer.DefaultEncoding,
	"model.tool_parser": ToolParserAuto,

	"log.level":         "info",
	"log.format":        "auto",
	"log.otlp_protocol": "http",
}

// LoadConfig layers defaults, the TOML file at path (optional), environment
// variables from environ and overrides, in that order, and validates the
// result. Override keys use dotted paths such as "server.addr".
func LoadConfig(path string, environ func() []string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if environ == nil {
		environ = os.Environ
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: transformEnv,
		EnvironFunc:   environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("loading overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// transformEnv maps SGLANG_BRIDGE_ENGINE__API_KEY to engine.api_key.
func transformEnv(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
	return key, value
}

// KeyStore returns the store holding the engine API key, or nil when no key
// storage is configured.
func (c EngineConfig) KeyStore() (tokensource.Store, error) {
	switch c.KeyStorage {
	case KeyStorageNone, "":
		return nil, nil
	case KeyStorageEnv:
		return tokensource.NewEnvStore(c.APIKeyEnv), nil
	case KeyStorageKeyring:
		return tokensource.NewKeyringStore(tokensource.DefaultKeyringService, keyringUser(c.URL)), nil
	default:
		return nil, fmt.Errorf("unknown key storage %q", c.KeyStorage)
	}
}

// keyringUser keys stored credentials by engine URL so several engines can
// be configured side by side.
func keyringUser(engineURL string) string {
	return "engine:" + strings.TrimRight(engineURL, "/")
}

// ErrKeyStorageReadOnly is returned when credentials cannot be written to
// the configured storage.
var ErrKeyStorageReadOnly = errors.New("configured key storage is read-only; use key_storage = \"keyring\"")
