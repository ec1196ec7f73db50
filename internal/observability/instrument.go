// Package observability configures logging for the gateway: a stdout slog
// handler enriched with trace context, optionally fanned out to an
// OpenTelemetry log exporter.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"golang.org/x/term"
)

// Log formats.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// OTLP export protocols.
const (
	ProtocolHTTP   = "http"
	ProtocolGRPC   = "grpc"
	ProtocolStdout = "stdout"
)

// Options configures Instrument.
type Options struct {
	Level slog.Level
	// Format is text, json or auto. Auto picks text when Output is a
	// terminal and json otherwise.
	Format string

	// OTLPEndpoint enables log export when set. It is ignored for the
	// stdout protocol, which is enabled by the protocol alone.
	OTLPEndpoint string
	OTLPProtocol string

	ServiceName    string
	ServiceVersion string

	// Output defaults to os.Stdout.
	Output io.Writer
}

// Instrument installs the default slog logger. The returned function flushes
// and stops log export; it is safe to call when export is disabled.
func Instrument(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	handler, err := newStdoutHandler(opts.Output, opts.Level, opts.Format)
	if err != nil {
		return nil, err
	}

	shutdown := func(context.Context) error { return nil }

	if exportEnabled(opts) {
		provider, err := newLoggerProvider(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("setting up log export: %w", err)
		}
		global.SetLoggerProvider(provider)
		shutdown = provider.Shutdown

		otelHandler := otelslog.NewHandler(opts.ServiceName, otelslog.WithLoggerProvider(provider))
		handler = newFanoutHandler(handler, otelHandler)
	}

	slog.SetDefault(slog.New(newTraceContextHandler(handler)))
	return shutdown, nil
}

func exportEnabled(opts Options) bool {
	return opts.OTLPEndpoint != "" || strings.EqualFold(opts.OTLPProtocol, ProtocolStdout)
}

// newStdoutHandler creates a handler for human-readable logs.
func newStdoutHandler(w io.Writer, level slog.Level, logFormat string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	format := strings.ToLower(logFormat)
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatText
		}
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q (expected: auto, json, text)", logFormat)
	}

	return handler, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// newLoggerProvider builds the export pipeline:
// exporter → batch processor → severity filter → provider.
func newLoggerProvider(ctx context.Context, opts Options) (*sdklog.LoggerProvider, error) {
	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(opts.Level))

	attrs := []attribute.KeyValue{attribute.String("service.name", opts.ServiceName)}
	if opts.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", opts.ServiceVersion))
	}

	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(processor),
		sdklog.WithResource(resource.NewSchemaless(attrs...)),
	), nil
}

func newExporter(ctx context.Context, opts Options) (sdklog.Exporter, error) {
	switch strings.ToLower(opts.OTLPProtocol) {
	case "", ProtocolHTTP:
		return otlploghttp.New(ctx, otlploghttp.WithEndpointURL(opts.OTLPEndpoint))
	case ProtocolGRPC:
		return otlploggrpc.New(ctx, otlploggrpc.WithEndpointURL(opts.OTLPEndpoint))
	case ProtocolStdout:
		return stdoutlog.New(stdoutlog.WithWriter(opts.Output))
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q (expected: http, grpc, stdout)", opts.OTLPProtocol)
	}
}

// severity maps an slog level to the minimum severity exported.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level < slog.LevelInfo:
		return minsev.SeverityDebug
	case level < slog.LevelWarn:
		return minsev.SeverityInfo
	case level < slog.LevelError:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
