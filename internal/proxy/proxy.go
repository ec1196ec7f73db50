// Package proxy serves the OpenAI-compatible HTTP API in front of the
// generation engine.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BenYao21/sglang/internal/observability/middleware"
	"github.com/BenYao21/sglang/internal/openaiadapter"
	"github.com/BenYao21/sglang/internal/openaiadapter/types"
)

// DefaultMaxRequestBytes bounds request bodies unless overridden.
const DefaultMaxRequestBytes = 10 << 20

// Proxy is the HTTP server of the gateway.
type Proxy struct {
	handler http.Handler
	server  *http.Server
}

// Compile-time check to ensure Proxy implements http.Handler
var _ http.Handler = (*Proxy)(nil)

type options struct {
	apiKey          string
	maxRequestBytes int64
	models          []types.Model
	logger          *slog.Logger
}

// Option configures a Proxy.
type Option func(*options)

// WithAPIKey requires clients to authenticate with key as bearer token.
// An empty key disables authentication.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithMaxRequestBytes overrides DefaultMaxRequestBytes.
func WithMaxRequestBytes(n int64) Option {
	return func(o *options) {
		o.maxRequestBytes = n
	}
}

// WithModels sets the models listed by GET /v1/models.
func WithModels(models ...types.Model) Option {
	return func(o *options) {
		o.models = models
	}
}

// WithLogger sets the logger used for request logs. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a Proxy serving chat completions through adapter.
func New(adapter openaiadapter.CreateChatCompletionAdapter, health ReadinessChecker, opts ...Option) (*Proxy, error) {
	if adapter == nil {
		return nil, errors.New("adapter is required")
	}
	if health == nil {
		return nil, errors.New("readiness checker is required")
	}

	o := options{maxRequestBytes: DefaultMaxRequestBytes}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxRequestBytes <= 0 {
		return nil, fmt.Errorf("invalid max request size %d", o.maxRequestBytes)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	// Probes stay reachable without credentials.
	mux := http.NewServeMux()
	mux.Handle("GET /health/liveness", livenessHandler())
	mux.Handle("GET /health/readiness", readinessHandler(health))

	api := http.NewServeMux()
	api.Handle("POST /v1/chat/completions", &CreateChatCompletionsHandler{Adapter: adapter})
	api.Handle("GET /v1/models", modelsHandler(o.models))

	var apiHandler http.Handler = api
	if o.apiKey != "" {
		apiHandler = BearerAuth(o.apiKey)(api)
	}
	mux.Handle("/v1/", apiHandler)

	handler := applyMiddlewares(mux,
		middleware.RequestIDGeneration,
		middleware.Logging(o.logger),
		middleware.TraceContextExtraction,
		middleware.RequestIDPropagation,
		Recovery,
		RequestSizeLimit(o.maxRequestBytes),
	)

	return &Proxy{handler: handler}, nil
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Start listens on addr and serves in the background. Listen failures are
// returned directly; errors while serving are delivered on the returned
// channel, which is closed when the server stops.
func (p *Proxy) Start(ctx context.Context, addr string) (<-chan error, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	p.server = &http.Server{
		Handler:           p.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	slog.InfoContext(ctx, "proxy listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := p.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh, nil
}

// Shutdown gracefully stops the server. In-flight streams are given until
// ctx expires.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.server == nil {
		return nil
	}
	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("proxy shutdown: %w", err)
	}
	return nil
}
