// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handle represents the activated observability stack. It owns the global
// subscriber registration and the provider state for this process. Only
// one Handle should be active at a time.
type Handle struct {
	logger      *zap.Logger
	undoGlobals func()
	undoStdLog  func()

	loggerProvider *sdklog.LoggerProvider
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Logger returns the installed subscriber, or nil if InitSubscriber has
// not run. zap.L() returns the same logger once the stack is up.
func (h *Handle) Logger() *zap.Logger {
	return h.logger
}

// Tracer returns a tracer for the given instrumentation scope. It falls
// back to the global (no-op unless otherwise registered) provider when the
// trace pipeline is disabled.
func (h *Handle) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if h == nil || h.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return h.tracerProvider.Tracer(name, opts...)
}

// Meter returns a meter for the given instrumentation scope. It falls
// back to the global provider when the metrics pipeline is disabled.
func (h *Handle) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if h == nil || h.meterProvider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return h.meterProvider.Meter(name, opts...)
}

// ForceFlush immediately exports all pending telemetry data.
func (h *Handle) ForceFlush(ctx context.Context) error {
	if h == nil {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if h.tracerProvider != nil {
		g.Go(func() error { return h.tracerProvider.ForceFlush(ctx) })
	}
	if h.meterProvider != nil {
		g.Go(func() error { return h.meterProvider.ForceFlush(ctx) })
	}
	if h.loggerProvider != nil {
		g.Go(func() error { return h.loggerProvider.ForceFlush(ctx) })
	}
	return g.Wait()
}

// Shutdown flushes and stops the providers, then uninstalls the
// subscriber and releases the process guard so a fresh Init may run.
// Providers are shut down first so their final records still reach the
// subscriber.
func (h *Handle) Shutdown(ctx context.Context) error {
	if h == nil {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if h.tracerProvider != nil {
		g.Go(func() error { return h.tracerProvider.Shutdown(gctx) })
	}
	if h.meterProvider != nil {
		g.Go(func() error { return h.meterProvider.Shutdown(gctx) })
	}
	if h.loggerProvider != nil {
		g.Go(func() error { return h.loggerProvider.Shutdown(gctx) })
	}
	err := g.Wait()

	if h.logger != nil {
		// Sync fails on stdout on some platforms; the error carries no signal.
		_ = h.logger.Sync()
	}
	if h.undoStdLog != nil {
		h.undoStdLog()
	}
	if h.undoGlobals != nil {
		h.undoGlobals()
	}
	if h.logger != nil {
		subscriberGuard.Lock()
		subscriberGuard.installed = false
		subscriberGuard.Unlock()
		h.logger = nil
	}
	return err
}
