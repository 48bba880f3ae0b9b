// Copyright 2025 The Observa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const tracerScope = "observa.dev/observa/tracing"

// useCustomProvider wires a user-supplied tracer provider in place of a
// built-in one. Returns true when a custom provider was installed.
func (t *Tracer) useCustomProvider(kind string) bool {
	if !t.customTracerProvider {
		return false
	}
	t.emitDebug("Using custom user-provided tracer provider")
	if t.tracer == nil {
		t.tracer = t.tracerProvider.Tracer(tracerScope)
	}
	if t.registerGlobal {
		t.emitDebug("Setting global OpenTelemetry tracer provider", "provider", kind)
		otel.SetTracerProvider(t.tracerProvider)
	}
	return true
}

// install finishes provider construction: stores references, registers the
// global provider when requested.
func (t *Tracer) install(tp *sdktrace.TracerProvider, kind string) {
	t.sdkProvider = tp
	t.tracerProvider = tp
	t.tracer = tp.Tracer(tracerScope)

	if t.registerGlobal {
		t.emitDebug("Setting global OpenTelemetry tracer provider", "provider", kind)
		otel.SetTracerProvider(tp)
	} else {
		t.emitDebug("Skipping global tracer provider registration", "provider", kind)
	}
}

// sampler builds the configured parent-based ratio sampler.
func (t *Tracer) sampler() sdktrace.Sampler {
	if t.sampleRate >= 1.0 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	if t.sampleRate <= 0.0 {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(t.sampleRate))
}

// initNoopProvider creates a tracer provider with no exporter.
func (t *Tracer) initNoopProvider() error {
	if t.useCustomProvider("noop") {
		return nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(t.createResource()),
	)
	t.install(tp, "noop")

	return nil
}

// initStdoutProvider initializes the stdout trace exporter.
func (t *Tracer) initStdoutProvider() error {
	if t.useCustomProvider("stdout") {
		return nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(t.sampler()),
		sdktrace.WithResource(t.createResource()),
	)
	t.install(tp, "stdout")

	t.emitInfo("Tracing initialized", "provider", "stdout", "service", t.serviceName)

	return nil
}

// initOTLPProvider initializes the OTLP gRPC trace exporter.
// The context is used for connection establishment.
func (t *Tracer) initOTLPProvider(ctx context.Context) error {
	if t.useCustomProvider("otlp") {
		return nil
	}

	opts := []otlptracegrpc.Option{}
	if t.otlpEndpoint != "" {
		opts = append(opts, otlptracegrpc.WithEndpoint(t.otlpEndpoint))
	}
	if t.otlpInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(t.sampler()),
		sdktrace.WithResource(t.createResource()),
	)
	t.install(tp, "otlp")

	t.emitInfo("Tracing initialized", "provider", "otlp", "endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

// initOTLPHTTPProvider initializes the OTLP HTTP trace exporter.
// The context is used for connection establishment.
func (t *Tracer) initOTLPHTTPProvider(ctx context.Context) error {
	if t.useCustomProvider("otlp-http") {
		return nil
	}

	opts := []otlptracehttp.Option{}
	if t.otlpEndpoint != "" {
		endpoint, insecure, err := parseHTTPEndpoint(t.otlpEndpoint)
		if err != nil {
			return err
		}
		opts = append(opts, otlptracehttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(t.sampler()),
		sdktrace.WithResource(t.createResource()),
	)
	t.install(tp, "otlp-http")

	t.emitInfo("Tracing initialized", "provider", "otlp-http", "endpoint", t.otlpEndpoint, "service", t.serviceName)

	return nil
}

// parseHTTPEndpoint reduces an OTLP HTTP endpoint to host:port, reporting
// whether the scheme requests an insecure connection. Per-signal paths are
// appended by the exporter itself.
func parseHTTPEndpoint(raw string) (endpoint string, insecure bool, err error) {
	endpoint = raw

	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = trimmed
		insecure = true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	if endpoint == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q", raw)
	}

	return endpoint, insecure, nil
}

// createResource creates an OpenTelemetry resource with service information.
func (t *Tracer) createResource() *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(t.serviceName),
		semconv.ServiceVersion(t.serviceVersion),
		attribute.String("deployment.environment", t.environment),
	)
}
