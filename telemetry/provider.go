// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package telemetry

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stonework-labs/plinth/httpclient"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var errEmptyEndpoint = errors.New("endpoint has no host")

// parseEndpoint splits a configured endpoint into the host:port form the
// OTLP exporters expect. A plain http:// scheme marks the connection
// insecure; everything else gets TLS.
func parseEndpoint(endpoint string) (host string, insec bool, err error) {
	host = endpoint
	if strings.HasPrefix(host, "http://") {
		host = strings.TrimPrefix(host, "http://")
		insec = true
	} else {
		host = strings.TrimPrefix(host, "https://")
	}
	host = strings.TrimSuffix(host, "/")
	if host == "" || strings.ContainsAny(host, " /") {
		return "", false, errEmptyEndpoint
	}
	return host, insec, nil
}

// exporterHTTPClient is the transport for the OTLP HTTP exporters. The
// default retries transient failures so short collector blips during
// startup do not lose data.
func (b *Builder) exporterHTTPClient() *http.Client {
	if b.httpClient != nil {
		return b.httpClient
	}
	return httpclient.New(
		httpclient.Timeout(30*time.Second),
		httpclient.RetryRequests(httpclient.MaxAttempts(3)),
	)
}

func (b *Builder) dialGRPC(host string, insec bool) (*grpc.ClientConn, error) {
	creds := credentials.NewTLS(&tls.Config{})
	if insec {
		creds = insecure.NewCredentials()
	}
	return grpc.NewClient(host, grpc.WithTransportCredentials(creds))
}

func (b *Builder) newSpanExporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	host, insec, err := parseEndpoint(b.cfg.TracingEndpoint)
	if err != nil {
		return nil, err
	}

	if b.cfg.Protocol == ProtocolGRPC {
		conn, err := b.dialGRPC(host, insec)
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithHTTPClient(b.exporterHTTPClient()),
	}
	if insec {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func (b *Builder) newMetricExporter(ctx context.Context) (sdkmetric.Exporter, error) {
	host, insec, err := parseEndpoint(b.cfg.MetricsEndpoint)
	if err != nil {
		return nil, err
	}

	if b.cfg.Protocol == ProtocolGRPC {
		conn, err := b.dialGRPC(host, insec)
		if err != nil {
			return nil, err
		}
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(host),
		otlpmetrichttp.WithHTTPClient(b.exporterHTTPClient()),
	}
	if insec {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func (b *Builder) newLoggerProvider(ctx context.Context) (*sdklog.LoggerProvider, error) {
	host, insec, err := parseEndpoint(b.cfg.LogsEndpoint)
	if err != nil {
		return nil, err
	}

	var exporter sdklog.Exporter
	if b.cfg.Protocol == ProtocolGRPC {
		conn, err := b.dialGRPC(host, insec)
		if err != nil {
			return nil, err
		}
		exporter, err = otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, err
		}
	} else {
		opts := []otlploghttp.Option{
			otlploghttp.WithEndpoint(host),
			otlploghttp.WithHTTPClient(b.exporterHTTPClient()),
		}
		if insec {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exporter, err = otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, err
		}
	}

	res, err := b.newResource(ctx)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}

// newResource describes the service. A standalone resource avoids schema
// URL conflicts with resource.Default, which may track a different
// semconv version.
func (b *Builder) newResource(ctx context.Context) (*resource.Resource, error) {
	if b.gcpProjectID != "" {
		return b.newGoogleCloudResource(ctx)
	}

	attrs := []attribute.KeyValue{
		semconv.ServiceName(b.cfg.ServiceName),
	}
	if b.cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(b.cfg.ServiceVersion))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...), nil
}
