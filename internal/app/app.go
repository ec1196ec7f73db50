package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/BenYao21/sglang/internal/engine"
	"github.com/BenYao21/sglang/internal/openaiadapter/sglang"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
	"github.com/BenYao21/sglang/internal/proxy"
	"github.com/BenYao21/sglang/internal/tokenizer"
	"github.com/BenYao21/sglang/internal/tokensource"
	"github.com/BenYao21/sglang/internal/toolparser"
)

const defaultShutdownTimeout = 5 * time.Second

// App orchestrates the lifecycle of the gateway server and related services.
type App struct {
	cfg    *Config
	engine *engine.Client
	health *Health
	proxy  *proxy.Proxy
}

// New wires the tokenizer, engine client, adapter and HTTP server from cfg.
func New(ctx context.Context, cfg *Config) (*App, error) {
	tok, err := NewTokenizer(cfg.Model)
	if err != nil {
		return nil, err
	}

	parserFactory, err := toolParserFactory(cfg.Model)
	if err != nil {
		return nil, err
	}

	transport, err := engineTransport(ctx, cfg.Engine)
	if err != nil {
		return nil, err
	}
	client, err := engine.NewClient(cfg.Engine.URL,
		engine.WithHTTPClient(&http.Client{Transport: transport, Timeout: cfg.Engine.Timeout}),
		engine.WithIncrementalOutput(cfg.Engine.IncrementalOutput),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine client: %w", err)
	}

	adapterOpts := []sglang.Option{sglang.WithSystemFingerprint(cfg.Model.SystemFingerprint)}
	if parserFactory != nil {
		adapterOpts = append(adapterOpts, sglang.WithToolParser(parserFactory))
	}
	adapter := sglang.NewCreateChatCompletionAdapter(client, tok, adapterOpts...)

	health := NewHealth()
	proxyServer, err := proxy.New(adapter, health,
		proxy.WithAPIKey(cfg.Server.APIKey),
		proxy.WithMaxRequestBytes(cfg.Server.MaxRequestBytes),
		proxy.WithModels(types.Model{
			ID:      cfg.Model.Name,
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "sglang",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	return &App{
		cfg:    cfg,
		engine: client,
		health: health,
		proxy:  proxyServer,
	}, nil
}

// NewTokenizer builds the tokenizer described by cfg.
func NewTokenizer(cfg ModelConfig) (*tokenizer.Tiktoken, error) {
	opts := make([]tokenizer.TiktokenOption, 0, len(cfg.SpecialTokens))
	for text, id := range cfg.SpecialTokens {
		opts = append(opts, tokenizer.WithSpecialToken(text, id))
	}
	tok, err := tokenizer.NewTiktoken(cfg.Tokenizer, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer: %w", err)
	}
	return tok, nil
}

// toolParserFactory returns nil when tool parsing is disabled.
func toolParserFactory(cfg ModelConfig) (toolparser.Factory, error) {
	name := cfg.ToolParser
	switch name {
	case ToolParserNone:
		return nil, nil
	case ToolParserAuto:
		name = ""
	}
	factory, err := toolparser.NewRegistry().Factory(name, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tool parser: %w", err)
	}
	return factory, nil
}

// engineTransport authorizes engine requests when a key is configured.
func engineTransport(ctx context.Context, cfg EngineConfig) (http.RoundTripper, error) {
	var ts oauth2.TokenSource
	if cfg.APIKey != "" {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey, TokenType: "Bearer"})
	} else {
		store, err := cfg.KeyStore()
		if err != nil {
			return nil, err
		}
		if store == nil {
			return http.DefaultTransport, nil
		}
		ts, err = tokensource.NewTokenSource(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("failed to load engine API key from %s storage: %w", cfg.KeyStorage, err)
		}
	}
	return tokensource.NewTransport(ts, http.DefaultTransport), nil
}

// Start starts all services and blocks until shutdown is triggered.
// Uses errgroup for runtime error monitoring and shutdown function collection for coordinated cleanup.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	var shutdownFuncs []func(context.Context) error

	// Startup phase: Start services
	slog.InfoContext(gCtx, "starting proxy server",
		"addr", a.cfg.Server.Addr,
		"engine", a.cfg.Engine.URL,
		"model", a.cfg.Model.Name,
	)
	proxyErrCh, err := a.proxy.Start(gCtx, a.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("proxy startup failed: %w", err)
	}
	shutdownFuncs = append(shutdownFuncs, a.proxy.Shutdown)

	g.Go(func() error {
		a.health.Watch(gCtx, a.cfg.Engine.HealthInterval, a.engine.Health)
		return nil
	})

	// Monitor runtime errors - errgroup cancels context on first error
	g.Go(func() error {
		select {
		case err := <-proxyErrCh:
			if err != nil {
				slog.ErrorContext(gCtx, "proxy runtime error", "error", err)
				return fmt.Errorf("proxy: %w", err)
			}
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	runtimeErr := g.Wait()

	slog.InfoContext(gCtx, "shutting down services")
	a.health.SetReady(false)

	// Shutdown phase: Stop all services
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if runtimeErr != nil {
		errs = append(errs, fmt.Errorf("runtime: %w", runtimeErr))
	}

	for i := len(shutdownFuncs) - 1; i >= 0; i-- {
		if err := shutdownFuncs[i](shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "service shutdown failed", "error", err)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("application stopped")
	return nil
}
