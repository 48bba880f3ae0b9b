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

package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultDurationBuckets are histogram boundaries for task duration in
// seconds, covering sub-millisecond to 10 second work units.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// EventType represents the severity of an internal operational event.
type EventType int

const (
	// EventError indicates an error event (e.g., failed to export metrics).
	EventError EventType = iota
	// EventWarning indicates a warning event.
	EventWarning
	// EventInfo indicates an informational event (e.g., metrics server started).
	EventInfo
	// EventDebug indicates a debug event.
	EventDebug
)

// Event represents an internal operational event from the metrics package.
type Event struct {
	Type    EventType
	Message string
	Args    []any // slog-style key-value pairs
}

// EventHandler processes internal operational events from the metrics
// package. Implementations can log events, send them to monitoring systems,
// or take custom actions based on event type.
type EventHandler func(Event)

// DefaultEventHandler returns an [EventHandler] that logs events to the
// provided slog.Logger. If logger is nil, returns a no-op handler.
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

// Provider represents the available metrics providers.
type Provider string

const (
	// PrometheusProvider exposes metrics on a scrape endpoint (default).
	PrometheusProvider Provider = "prometheus"
	// OTLPProvider pushes metrics to an OTLP collector over HTTP.
	OTLPProvider Provider = "otlp"
	// StdoutProvider prints metrics to stdout (development/testing).
	StdoutProvider Provider = "stdout"
)

// Recorder holds OpenTelemetry metrics configuration and runtime state.
// All methods are safe for concurrent use.
//
// By default, this package does NOT set the global OpenTelemetry meter
// provider. Use [WithGlobalMeterProvider] if you want global registration.
// This allows multiple Recorder instances to coexist in the same process.
type Recorder struct {
	meter              metric.Meter
	meterProvider      metric.MeterProvider
	prometheusHandler  http.Handler
	prometheusRegistry *promclient.Registry
	metricsServer      *http.Server
	eventHandler       EventHandler

	// Built-in workload metrics
	taskDuration metric.Float64Histogram
	taskCount    metric.Int64Counter
	taskFailures metric.Int64Counter
	activeTasks  metric.Int64UpDownCounter

	// Custom metrics storage (protected by RWMutex)
	customMu          sync.RWMutex
	customCounters    map[string]metric.Int64Counter
	customHistograms  map[string]metric.Float64Histogram
	customGauges      map[string]metric.Float64Gauge
	customMetricCount int

	durationBuckets []float64

	validationErrors []error // collected during option application

	exportInterval time.Duration

	serviceName    string
	serviceVersion string
	otlpEndpoint   string
	metricsPort    string
	metricsPath    string

	// Pre-computed attributes attached to every built-in measurement
	serviceNameAttr    attribute.KeyValue
	serviceVersionAttr attribute.KeyValue

	serverMutex sync.Mutex // protects metricsServer

	maxCustomMetrics int

	provider            Provider
	providerSetCount    int
	isShuttingDown      atomic.Bool
	isStarted           atomic.Bool
	providerDeferred    atomic.Bool // OTLP provider initialization happens in Start
	warnNotStarted      sync.Once
	autoStartServer     bool
	customMeterProvider bool
	registerGlobal      bool
}

// New creates a new [Recorder] with the given options. For the Prometheus
// and stdout providers the export pipeline is built immediately; the OTLP
// provider is built by [Recorder.Start], which carries the lifecycle
// context.
//
// By default, this function does NOT set the global OpenTelemetry meter
// provider. Use [WithGlobalMeterProvider] to register it globally.
func New(opts ...Option) (*Recorder, error) {
	recorder := newDefaultRecorder()

	for _, opt := range opts {
		opt(recorder)
	}

	if err := recorder.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := recorder.initializeProvider(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return recorder, nil
}

// MustNew creates a new [Recorder] or panics on error.
func MustNew(opts ...Option) *Recorder {
	recorder, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize metrics: %v", err))
	}
	return recorder
}

// newDefaultRecorder creates a Recorder with default values.
func newDefaultRecorder() *Recorder {
	r := &Recorder{
		serviceName:      "observa-service",
		serviceVersion:   "0.1.0",
		provider:         PrometheusProvider,
		exportInterval:   30 * time.Second,
		metricsPort:      ":9090",
		metricsPath:      "/metrics",
		autoStartServer:  true,
		maxCustomMetrics: 1000, // bound on custom metric creation
		durationBuckets:  DefaultDurationBuckets,
		customCounters:   make(map[string]metric.Int64Counter),
		customHistograms: make(map[string]metric.Float64Histogram),
		customGauges:     make(map[string]metric.Float64Gauge),
	}
	r.initCommonAttributes()
	return r
}

// initCommonAttributes pre-computes the attributes attached to every
// built-in measurement.
func (r *Recorder) initCommonAttributes() {
	r.serviceNameAttr = attribute.String("service.name", r.serviceName)
	r.serviceVersionAttr = attribute.String("service.version", r.serviceVersion)
}

// validate checks that the configuration is valid.
func (r *Recorder) validate() error {
	if len(r.validationErrors) > 0 {
		return fmt.Errorf("configuration errors: %v", r.validationErrors)
	}

	if r.providerSetCount > 1 {
		return fmt.Errorf("conflicting provider options: only one of WithPrometheus, WithOTLP, or WithStdout can be used")
	}

	if r.serviceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if r.serviceVersion == "" {
		return fmt.Errorf("service version cannot be empty")
	}
	if r.maxCustomMetrics < 1 {
		return fmt.Errorf("maxCustomMetrics must be at least 1, got %d", r.maxCustomMetrics)
	}
	if r.exportInterval < time.Second {
		r.emitWarning("export interval is very low, may cause high CPU usage", "interval", r.exportInterval)
	}

	switch r.provider {
	case PrometheusProvider:
		if r.metricsPort == "" {
			return fmt.Errorf("metrics port cannot be empty for Prometheus provider")
		}
		if r.metricsPath == "" {
			return fmt.Errorf("metrics path cannot be empty for Prometheus provider")
		}
	case OTLPProvider, StdoutProvider:
	default:
		return fmt.Errorf("unsupported metrics provider: %s", r.provider)
	}

	return nil
}

// Handler returns the Prometheus metrics [http.Handler]. Useful when
// serving metrics from an existing HTTP server together with
// [WithServerDisabled].
func (r *Recorder) Handler() (http.Handler, error) {
	if r.provider != PrometheusProvider || r.prometheusHandler == nil {
		return nil, fmt.Errorf("handler only available with Prometheus provider, current provider: %s", r.provider)
	}
	return r.prometheusHandler, nil
}

// Provider returns the current metrics provider.
func (r *Recorder) Provider() Provider {
	return r.provider
}

// ServerAddress returns the address of the metrics server, or empty when
// the server is disabled or not using [PrometheusProvider].
func (r *Recorder) ServerAddress() string {
	if r.provider != PrometheusProvider || !r.autoStartServer {
		return ""
	}
	return r.metricsPort
}

// ServiceName returns the service name.
func (r *Recorder) ServiceName() string {
	return r.serviceName
}

// ServiceVersion returns the service version.
func (r *Recorder) ServiceVersion() string {
	return r.serviceVersion
}

// Start completes initialization that needs the lifecycle context: the OTLP
// export pipeline and, for the Prometheus provider, the scrape server.
// Idempotent; a second call is a no-op.
func (r *Recorder) Start(ctx context.Context) error {
	if !r.isStarted.CompareAndSwap(false, true) {
		return nil
	}

	if r.providerDeferred.Load() {
		if err := r.initOTLPProvider(ctx); err != nil {
			r.isStarted.Store(false) // allow retry
			return fmt.Errorf("failed to initialize OTLP provider: %w", err)
		}
		r.providerDeferred.Store(false)
	}

	if r.autoStartServer && r.provider == PrometheusProvider {
		r.startMetricsServer()
	}

	return nil
}

// Shutdown flushes pending metrics and stops the export pipeline and the
// scrape server. Idempotent; only the first call performs shutdown.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if !r.isShuttingDown.CompareAndSwap(false, true) {
		return nil
	}

	var errs []error

	if err := r.stopMetricsServer(ctx); err != nil {
		errs = append(errs, err)
	}

	// User-provided providers are managed by the user.
	if r.customMeterProvider {
		r.emitDebug("skipping shutdown of custom meter provider")
	} else if err := r.shutdownSDKMeterProvider(ctx); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// shutdownSDKMeterProvider flushes and shuts down the SDK meter provider.
// Flush failures are reported as warnings; only shutdown failure is an error.
func (r *Recorder) shutdownSDKMeterProvider(ctx context.Context) error {
	mp, ok := r.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}

	if err := mp.ForceFlush(ctx); err != nil {
		r.emitWarning("metrics flush warning", "error", err)
	}

	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	return nil
}

// ForceFlush immediately exports any pending metric data. Useful for
// push-based providers at checkpoints; a no-op for Prometheus, which is
// collected on scrape.
func (r *Recorder) ForceFlush(ctx context.Context) error {
	if r.isShuttingDown.Load() {
		return nil
	}

	if mp, ok := r.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("metrics force flush: %w", err)
		}
	}
	return nil
}

// emitError emits an error event if an event handler is configured.
func (r *Recorder) emitError(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventError, Message: msg, Args: args})
	}
}

// emitWarning emits a warning event if an event handler is configured.
func (r *Recorder) emitWarning(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventWarning, Message: msg, Args: args})
	}
}

// emitInfo emits an info event if an event handler is configured.
func (r *Recorder) emitInfo(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventInfo, Message: msg, Args: args})
	}
}

// emitDebug emits a debug event if an event handler is configured.
func (r *Recorder) emitDebug(msg string, args ...any) {
	if r.eventHandler != nil {
		r.eventHandler(Event{Type: EventDebug, Message: msg, Args: args})
	}
}
