// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"

	texporter "github.com/GoogleCloudPlatform/opentelemetry-operations-go/exporter/trace"
	"go.opentelemetry.io/contrib/detectors/gcp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/api/option"
)

// newGoogleCloudSpanExporter exports spans directly to Cloud Trace,
// bypassing any OTLP collector.
func newGoogleCloudSpanExporter(projectID string) (sdktrace.SpanExporter, error) {
	return texporter.New(
		texporter.WithProjectID(projectID),
		texporter.WithTraceClientOptions([]option.ClientOption{option.WithTelemetryDisabled()}),
	)
}

// newGoogleCloudResource enriches the service resource with attributes
// detected from the GCP runtime environment.
func (b *Builder) newGoogleCloudResource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithDetectors(gcp.NewDetector()),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(b.cfg.ServiceName)),
	)
}
