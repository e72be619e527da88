// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// subscriberGuard tracks whether a global subscriber has been installed
// for this process. Init is meant to run once, early; the guard exists so
// a second Init fails loudly instead of silently replacing the first.
var subscriberGuard struct {
	sync.Mutex
	installed bool
}

// Builder assembles the observability stack. Create one with [New],
// adjust it with options and activate it with [Builder.Init].
type Builder struct {
	cfg Config

	logWriter     io.Writer
	httpClient    *http.Client
	traceExporter sdktrace.SpanExporter
	metricReader  sdkmetric.Reader
	gcpProjectID  string

	logger         *zap.Logger
	undoGlobals    func()
	undoStdLog     func()
	loggerProvider *sdklog.LoggerProvider
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Option configures a Builder. Options are pure; nothing takes effect
// until one of the init methods is called.
type Option func(*Builder)

// WithLogLevel sets the subscriber verbosity, overriding LOG_LEVEL.
func WithLogLevel(lvl Level) Option {
	return func(b *Builder) {
		b.cfg.LogLevel = lvl
	}
}

// WithMetricsEndpoint sets the metrics export target, overriding METRICS_ENDPOINT.
func WithMetricsEndpoint(endpoint string) Option {
	return func(b *Builder) {
		b.cfg.MetricsEndpoint = endpoint
	}
}

// WithTracingEndpoint sets the trace export target, overriding TRACING_ENDPOINT.
func WithTracingEndpoint(endpoint string) Option {
	return func(b *Builder) {
		b.cfg.TracingEndpoint = endpoint
	}
}

// WithLogsEndpoint sets the log export target, overriding LOGS_ENDPOINT.
// When set, every subscriber record is additionally exported over OTLP.
func WithLogsEndpoint(endpoint string) Option {
	return func(b *Builder) {
		b.cfg.LogsEndpoint = endpoint
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(b *Builder) {
		b.cfg.ServiceVersion = version
	}
}

// WithProtocol selects the OTLP transport, overriding TELEMETRY_PROTOCOL.
func WithProtocol(p Protocol) Option {
	return func(b *Builder) {
		b.cfg.Protocol = p
	}
}

// WithLogWriter redirects subscriber output away from stdout.
func WithLogWriter(w io.Writer) Option {
	return func(b *Builder) {
		b.logWriter = w
	}
}

// WithHTTPClient overrides the http.Client used by the OTLP HTTP exporters.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Builder) {
		b.httpClient = c
	}
}

// WithTraceExporter bypasses endpoint-based exporter construction and
// enables the trace pipeline with the given exporter. Intended for local
// development (e.g. stdouttrace) and tests.
func WithTraceExporter(exp sdktrace.SpanExporter) Option {
	return func(b *Builder) {
		b.traceExporter = exp
	}
}

// WithMetricReader bypasses endpoint-based exporter construction and
// enables the metrics pipeline with the given reader. Intended for tests.
func WithMetricReader(r sdkmetric.Reader) Option {
	return func(b *Builder) {
		b.metricReader = r
	}
}

// WithGoogleCloudTrace exports traces directly to Cloud Trace instead of
// an OTLP collector. Takes precedence over any tracing endpoint.
func WithGoogleCloudTrace(projectID string) Option {
	return func(b *Builder) {
		b.gcpProjectID = projectID
	}
}

// New creates a Builder for the named service with defaults derived from
// the process environment. See the package documentation for the
// recognized variables.
func New(serviceName string, opts ...Option) *Builder {
	b := &Builder{
		cfg:       configFromEnv(serviceName),
		logWriter: os.Stdout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// InitSubscriber installs the process global structured logger at the
// configured level. Records below the level are dropped. It fails with a
// [SubscriberError] if a subscriber is already installed.
func (b *Builder) InitSubscriber() error {
	subscriberGuard.Lock()
	defer subscriberGuard.Unlock()
	if subscriberGuard.installed {
		return &SubscriberError{Err: ErrSubscriberInstalled}
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(b.logWriter),
		zap.NewAtomicLevelAt(zapcore.Level(b.cfg.LogLevel)),
	)

	if b.cfg.LogsEndpoint != "" {
		lp, err := b.newLoggerProvider(context.Background())
		if err != nil {
			return &SubscriberError{Err: err}
		}
		b.loggerProvider = lp
		global.SetLoggerProvider(lp)
		core = zapcore.NewTee(core, otelzap.NewCore(
			b.cfg.ServiceName,
			otelzap.WithLoggerProvider(lp),
		))
	}

	b.logger = zap.New(core)
	b.undoGlobals = zap.ReplaceGlobals(b.logger)
	b.undoStdLog = zap.RedirectStdLog(b.logger)
	subscriberGuard.installed = true
	return nil
}

// InitTracing registers the global tracer provider. Without a tracing
// endpoint, explicit exporter or Cloud Trace project it is a no-op
// success. It fails with an [ExporterError] on a malformed endpoint or
// exporter construction failure.
func (b *Builder) InitTracing(ctx context.Context) error {
	exporter := b.traceExporter
	if exporter == nil {
		switch {
		case b.gcpProjectID != "":
			exp, err := newGoogleCloudSpanExporter(b.gcpProjectID)
			if err != nil {
				return &ExporterError{Signal: "traces", Endpoint: "cloud-trace:" + b.gcpProjectID, Err: err}
			}
			exporter = exp
		case b.cfg.TracingEndpoint == "":
			return nil
		default:
			exp, err := b.newSpanExporter(ctx)
			if err != nil {
				return &ExporterError{Signal: "traces", Endpoint: b.cfg.TracingEndpoint, Err: err}
			}
			exporter = exp
		}
	}

	res, err := b.newResource(ctx)
	if err != nil {
		return &ExporterError{Signal: "traces", Endpoint: b.cfg.TracingEndpoint, Err: err}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	b.tracerProvider = tp
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return nil
}

// InitMetering registers the global meter provider. Without a metrics
// endpoint or explicit reader it is a no-op success. It fails with an
// [ExporterError] on a malformed endpoint or exporter construction failure.
func (b *Builder) InitMetering(ctx context.Context) error {
	reader := b.metricReader
	if reader == nil {
		if b.cfg.MetricsEndpoint == "" {
			return nil
		}
		exporter, err := b.newMetricExporter(ctx)
		if err != nil {
			return &ExporterError{Signal: "metrics", Endpoint: b.cfg.MetricsEndpoint, Err: err}
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	}

	res, err := b.newResource(ctx)
	if err != nil {
		return &ExporterError{Signal: "metrics", Endpoint: b.cfg.MetricsEndpoint, Err: err}
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	b.meterProvider = mp
	otel.SetMeterProvider(mp)
	return nil
}

// Init brings the full stack up: subscriber, then tracing, then metering.
// The order is fixed because log output is a prerequisite for diagnosing
// failures in the later steps; on the first failure Init stops and
// surfaces the error without rolling back earlier steps.
func (b *Builder) Init(ctx context.Context) (*Handle, error) {
	if err := b.InitSubscriber(); err != nil {
		return nil, err
	}
	if err := b.InitTracing(ctx); err != nil {
		return nil, err
	}
	if err := b.InitMetering(ctx); err != nil {
		return nil, err
	}
	return b.Handle(), nil
}

// Handle returns a Handle over whatever the builder has initialized so
// far. Most callers should use the one returned by [Builder.Init].
func (b *Builder) Handle() *Handle {
	return &Handle{
		logger:         b.logger,
		undoGlobals:    b.undoGlobals,
		undoStdLog:     b.undoStdLog,
		loggerProvider: b.loggerProvider,
		tracerProvider: b.tracerProvider,
		meterProvider:  b.meterProvider,
	}
}
