// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Recorder captures exported telemetry in memory so tests can run the
// full init path without a collector.
//
//	rec := telemetry.NewRecorder()
//	h, err := telemetry.New("test", rec.Options()...).Init(ctx)
//	...
//	h.ForceFlush(ctx)
//	spans := rec.Spans()
type Recorder struct {
	spans   *tracetest.InMemoryExporter
	metrics *sdkmetric.ManualReader
}

// NewRecorder creates a Recorder backed by the SDK's in-memory span
// exporter and manual metric reader.
func NewRecorder() *Recorder {
	return &Recorder{
		spans:   tracetest.NewInMemoryExporter(),
		metrics: sdkmetric.NewManualReader(),
	}
}

// Options returns the builder options which route both pipelines into
// this Recorder.
func (r *Recorder) Options() []Option {
	return []Option{
		WithTraceExporter(r.spans),
		WithMetricReader(r.metrics),
	}
}

// Spans returns all spans exported so far. Call [Handle.ForceFlush]
// first; spans sit in the batch processor until flushed.
func (r *Recorder) Spans() tracetest.SpanStubs {
	return r.spans.GetSpans()
}

// SpanByName returns the first exported span with the given name, or nil.
func (r *Recorder) SpanByName(name string) *tracetest.SpanStub {
	for _, stub := range r.Spans() {
		if stub.Name == name {
			return &stub
		}
	}
	return nil
}

// Collect gathers the current state of all metric instruments.
func (r *Recorder) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	err := r.metrics.Collect(ctx, &rm)
	return rm, err
}

// Reset drops all recorded spans.
func (r *Recorder) Reset() {
	r.spans.Reset()
}

var _ sdktrace.SpanExporter = (*tracetest.InMemoryExporter)(nil)
