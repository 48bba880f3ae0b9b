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
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName is the service name used when none is provided.
	DefaultServiceName = "observa-service"

	// DefaultServiceVersion is the service version used when none is provided.
	DefaultServiceVersion = "0.1.0"

	// DefaultEnvironment is the deployment environment used when none is provided.
	DefaultEnvironment = "dev"

	// DefaultSampleRate samples every trace.
	DefaultSampleRate = 1.0
)

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to build an exporter).
	EventError EventType = iota
	// EventWarning indicates a warning event (e.g., missing endpoint, using default).
	EventWarning
	// EventInfo indicates an informational event (e.g., tracing initialized).
	EventInfo
	// EventDebug indicates a debug event (e.g., detailed lifecycle logs).
	EventDebug
)

// Event represents an internal operational event from the tracing package.
// Events report errors, warnings, and informational messages about the
// tracing system's own operation, never about the traced workload.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the tracing package.
// Implementations can log events, send them to monitoring systems, or take
// custom actions based on event type.
type EventHandler func(Event)

// DefaultEventHandler returns an EventHandler that logs events to the provided
// slog.Logger. This is the implementation used by WithLogger.
//
// If logger is nil, returns a no-op handler that discards all events.
func DefaultEventHandler(logger *slog.Logger) EventHandler {
	if logger == nil {
		return func(Event) {}
	}
	return func(e Event) {
		switch e.Type {
		case EventError:
			logger.Error(e.Message, e.Args...)
		case EventWarning:
			logger.Warn(e.Message, e.Args...)
		case EventInfo:
			logger.Info(e.Message, e.Args...)
		case EventDebug:
			logger.Debug(e.Message, e.Args...)
		}
	}
}

// Provider represents the available tracing providers.
type Provider string

const (
	// NoopProvider is a no-op provider that doesn't export anything (default).
	NoopProvider Provider = "noop"

	// StdoutProvider exports traces to stdout (development/testing).
	StdoutProvider Provider = "stdout"

	// OTLPProvider exports traces via OTLP gRPC.
	OTLPProvider Provider = "otlp"

	// OTLPHTTPProvider exports traces via OTLP over HTTP.
	OTLPHTTPProvider Provider = "otlp-http"
)

// Tracer wraps an OpenTelemetry tracer provider behind a small lifecycle:
// construct with New, dial exporters with Start, flush with Shutdown.
//
// Tracer is immutable after New: all configuration happens through functional
// options, so concurrent use after Start requires no additional locking.
//
// Global state: by default the package does NOT set the global OpenTelemetry
// tracer provider. Use WithGlobalTracerProvider if you want global
// registration; this keeps multiple tracing configurations able to coexist
// in one process.
type Tracer struct {
	tracer         trace.Tracer
	propagator     propagation.TextMapPropagator
	tracerProvider trace.TracerProvider
	sdkProvider    *sdktrace.TracerProvider
	eventHandler   EventHandler

	serviceName    string
	serviceVersion string
	environment    string
	provider       Provider
	otlpEndpoint   string
	sampleRate     float64

	shutdownOnce sync.Once
	shutdownErr  error
	started      bool

	providerSet          bool
	otlpInsecure         bool
	customTracerProvider bool
	registerGlobal       bool

	validationErrors []error
}

// New creates a new Tracer with the given options and validates the
// configuration. No exporter is constructed yet; call Start to build the
// configured exporter (OTLP exporters need a context for dialing).
//
// Default configuration:
//   - Service name: DefaultServiceName
//   - Service version: DefaultServiceVersion
//   - Sample rate: DefaultSampleRate (100%)
//   - Provider: NoopProvider (no traces exported)
//
// Example:
//
//	tracer, err := tracing.New(
//	    tracing.WithServiceName("my-api"),
//	    tracing.WithOTLPHTTP("http://localhost:4318"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tracer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
func New(opts ...Option) (*Tracer, error) {
	t := newDefaultTracer()

	for _, opt := range opts {
		opt(t)
	}

	if err := t.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return t, nil
}

// MustNew creates a new Tracer with the given options.
// It panics if the configuration is invalid.
func MustNew(opts ...Option) *Tracer {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("tracing: %v", err))
	}
	return t
}

func newDefaultTracer() *Tracer {
	return &Tracer{
		serviceName:    DefaultServiceName,
		serviceVersion: DefaultServiceVersion,
		environment:    DefaultEnvironment,
		propagator:     otel.GetTextMapPropagator(),
		sampleRate:     DefaultSampleRate,
		provider:       NoopProvider,
	}
}

// validate checks that the configuration is coherent.
func (t *Tracer) validate() error {
	if len(t.validationErrors) > 0 {
		msgs := make([]string, 0, len(t.validationErrors))
		for _, err := range t.validationErrors {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("validation errors: %s", strings.Join(msgs, "; "))
	}

	if t.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if t.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}
	if t.sampleRate < 0.0 || t.sampleRate > 1.0 {
		return fmt.Errorf("sample rate must be between 0.0 and 1.0, got %f", t.sampleRate)
	}

	switch t.provider {
	case NoopProvider, StdoutProvider:
	case OTLPProvider:
		if t.otlpEndpoint == "" {
			t.emitWarning("OTLP endpoint not specified, will use default", "default", "localhost:4317")
			t.otlpEndpoint = "localhost:4317"
		}
	case OTLPHTTPProvider:
		if t.otlpEndpoint == "" {
			t.emitWarning("OTLP endpoint not specified, will use default", "default", "http://localhost:4318")
			t.otlpEndpoint = "http://localhost:4318"
		}
	default:
		return fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}

	return nil
}

// Start builds the configured exporter and installs the tracer provider.
// The context is used for network connection establishment by OTLP
// exporters; it does not bound the lifetime of the tracer.
//
// Calling Start more than once is an error.
func (t *Tracer) Start(ctx context.Context) error {
	if t.started {
		return fmt.Errorf("tracer already started")
	}

	var err error
	switch t.provider {
	case NoopProvider:
		err = t.initNoopProvider()
	case StdoutProvider:
		err = t.initStdoutProvider()
	case OTLPProvider:
		err = t.initOTLPProvider(ctx)
	case OTLPHTTPProvider:
		err = t.initOTLPHTTPProvider(ctx)
	default:
		err = fmt.Errorf("unsupported tracing provider: %s", t.provider)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	t.started = true
	return nil
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// ServiceVersion returns the configured service version.
func (t *Tracer) ServiceVersion() string {
	return t.serviceVersion
}

// GetProvider returns the configured provider kind.
func (t *Tracer) GetProvider() Provider {
	return t.provider
}

// GetTracer returns the underlying OpenTelemetry tracer.
// Before Start, a non-recording tracer is returned.
func (t *Tracer) GetTracer() trace.Tracer {
	if t.tracer == nil {
		return noop.NewTracerProvider().Tracer("observa.dev/observa/tracing")
	}
	return t.tracer
}

// GetPropagator returns the OpenTelemetry propagator.
func (t *Tracer) GetPropagator() propagation.TextMapPropagator {
	return t.propagator
}

// TracerProvider returns the installed tracer provider, or nil before Start.
func (t *Tracer) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// Shutdown gracefully shuts down the tracing system, flushing any pending
// spans. It should be called before the process exits so buffered batches are
// exported. The context bounds the flush: pass a context with a deadline.
//
// Shutdown is idempotent. Concurrent calls wait for the same shutdown
// operation and observe the same result. Custom tracer providers supplied via
// WithTracerProvider are not shut down; their lifecycle belongs to the caller.
func (t *Tracer) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		if t.customTracerProvider {
			t.emitDebug("Skipping shutdown of custom tracer provider (managed by user)")
			return
		}
		if t.sdkProvider == nil {
			return
		}
		t.emitDebug("Shutting down tracer provider")
		if err := t.sdkProvider.Shutdown(ctx); err != nil {
			t.emitError("Error shutting down tracer provider", "error", err)
			t.shutdownErr = fmt.Errorf("tracer provider shutdown: %w", err)
			return
		}
		t.emitDebug("Tracer provider shut down successfully")
	})

	return t.shutdownErr
}

// ForceFlush exports all spans that have ended but not yet been exported.
// No-op for noop and custom providers.
func (t *Tracer) ForceFlush(ctx context.Context) error {
	if t.sdkProvider == nil {
		return nil
	}
	return t.sdkProvider.ForceFlush(ctx)
}

func (t *Tracer) emitError(msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

func (t *Tracer) emitWarning(msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

func (t *Tracer) emitInfo(msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

func (t *Tracer) emitDebug(msg string, args ...any) {
	if t.eventHandler != nil {
		t.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}

// buildAttribute creates an OpenTelemetry attribute from a key-value pair.
// Supports string, int, int64, float64, and bool natively; other types fall
// back to fmt.Sprintf.
func buildAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

// StartSpan starts a new span with the given name and options.
// Returns a new context with the span attached and the span itself.
//
// If the tracer has not been started, the original context and a
// non-recording span are returned. The returned span should always be ended.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if t.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	select {
	case <-ctx.Done():
		return ctx, trace.SpanFromContext(ctx)
	default:
	}

	return t.tracer.Start(ctx, name, opts...)
}

// FinishSpan completes the span, deriving span status from err.
// Safe to call with a nil or non-recording span.
func (t *Tracer) FinishSpan(span trace.Span, err error) {
	if span == nil || !span.IsRecording() {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

// SetSpanAttribute adds an attribute to the span with type-safe handling.
// This is a no-op if the span is nil or not recording.
func (t *Tracer) SetSpanAttribute(span trace.Span, key string, value any) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.SetAttributes(buildAttribute(key, value))
}

// AddSpanEvent adds an event to the span with optional attributes.
// This is a no-op if the span is nil or not recording.
func (t *Tracer) AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// TraceID returns the current trace ID from the active span in the context.
// Returns an empty string if no active span or the span context is invalid.
func TraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// SpanID returns the current span ID from the active span in the context.
// Returns an empty string if no active span or the span context is invalid.
func SpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}

// SetSpanAttributeFromContext adds an attribute to the current span from
// context. No-op if no span is recording.
func SetSpanAttributeFromContext(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(buildAttribute(key, value))
}

// AddSpanEventFromContext adds an event to the current span from context
// with optional attributes. No-op if no span is recording.
func AddSpanEventFromContext(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}
