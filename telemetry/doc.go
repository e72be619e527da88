// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package telemetry bootstraps a process wide observability stack from a
// service name plus environment derived configuration.
//
// The stack consists of three independent pipelines: a structured log
// subscriber (zap), an OTLP metrics pipeline and an OTLP trace pipeline.
// A pipeline whose endpoint is not configured is simply disabled; this is
// a deliberate success path, not an error.
//
//	b := telemetry.New("checkout")
//	h, err := b.Init(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Shutdown(context.Background())
//
// Configuration is read from LOG_LEVEL, METRICS_ENDPOINT, TRACING_ENDPOINT,
// LOGS_ENDPOINT and TELEMETRY_PROTOCOL when the builder is created. Explicit
// options always win over the environment.
//
// Init mutates process global state (the zap global logger and the OTel
// global providers) exactly once. It must be called early, before any
// request handling goroutines are spawned, and is not safe to call twice
// without shutting the returned [Handle] down first.
package telemetry
