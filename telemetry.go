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

package observa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"

	"observa.dev/observa/logging"
	"observa.dev/observa/metrics"
	"observa.dev/observa/tracing"
)

// Sentinel errors for [errors.Is] checks.
var (
	// ErrAlreadyStarted is returned by [Start] while a previous bootstrap
	// is still active in the process.
	ErrAlreadyStarted = errors.New("telemetry already started")

	// ErrShutdownTimeout is returned by [Telemetry.Shutdown] when the
	// flush did not complete within the bounded timeout.
	ErrShutdownTimeout = errors.New("telemetry shutdown timed out")
)

// DefaultShutdownTimeout bounds how long [Telemetry.Shutdown] waits for
// sinks to flush.
const DefaultShutdownTimeout = 10 * time.Second

// bootstrapActive guards against a second bootstrap in the same process:
// the providers register global state (slog default, otel globals) that
// must not be installed twice concurrently.
var bootstrapActive atomic.Bool

// Telemetry is the handle returned by [Start]. It owns the logging,
// tracing, and metrics pipelines and sequences their shutdown.
type Telemetry struct {
	cfg Config

	logger   *logging.Logger
	tracer   *tracing.Tracer
	recorder *metrics.Recorder

	shutdownTimeout time.Duration
	loggingOpts     []logging.Option
	tracingOpts     []tracing.Option
	metricsOpts     []metrics.Option

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures the bootstrap performed by [Start].
type Option func(*Telemetry)

// WithShutdownTimeout bounds how long [Telemetry.Shutdown] waits for sinks
// to flush. Defaults to [DefaultShutdownTimeout].
func WithShutdownTimeout(d time.Duration) Option {
	return func(t *Telemetry) { t.shutdownTimeout = d }
}

// WithLoggingOptions appends options to the logging pipeline, applied after
// the ones derived from [Config].
func WithLoggingOptions(opts ...logging.Option) Option {
	return func(t *Telemetry) { t.loggingOpts = append(t.loggingOpts, opts...) }
}

// WithTracingOptions appends options to the tracing pipeline.
func WithTracingOptions(opts ...tracing.Option) Option {
	return func(t *Telemetry) { t.tracingOpts = append(t.tracingOpts, opts...) }
}

// WithMetricsOptions appends options to the metrics pipeline. Ignored
// unless [Config.Metrics] is set.
func WithMetricsOptions(opts ...metrics.Option) Option {
	return func(t *Telemetry) { t.metricsOpts = append(t.metricsOpts, opts...) }
}

// Start bootstraps telemetry for the process: it builds the logging,
// tracing, and (when enabled) metrics pipelines from cfg and registers them
// globally. The returned handle sequences shutdown.
//
// Only one bootstrap can be active per process; a second call returns
// [ErrAlreadyStarted] until the first handle has been shut down.
//
// A collector that is unreachable at startup does NOT fail Start: exporters
// buffer and retry, and export errors surface through the logger. Only
// configuration errors (malformed endpoint, unknown level) are fatal.
func Start(ctx context.Context, cfg Config, opts ...Option) (*Telemetry, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !bootstrapActive.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	t := &Telemetry{
		cfg:             cfg,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}

	if err := t.start(ctx); err != nil {
		// Release what was built so the process can correct its
		// configuration and bootstrap again.
		t.teardown()
		bootstrapActive.Store(false)
		return nil, err
	}

	return t, nil
}

// start builds the three pipelines in order: logging first so the tracer
// and recorder can report through it.
func (t *Telemetry) start(ctx context.Context) error {
	if err := t.startLogging(ctx); err != nil {
		return fmt.Errorf("logging bootstrap: %w", err)
	}
	if err := t.startTracing(ctx); err != nil {
		return fmt.Errorf("tracing bootstrap: %w", err)
	}
	if t.cfg.Metrics {
		if err := t.startMetrics(ctx); err != nil {
			return fmt.Errorf("metrics bootstrap: %w", err)
		}
	}

	// Route asynchronous export errors (unreachable collector, dropped
	// batches) through the logger instead of the SDK's stderr default.
	logger := t.logger
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("telemetry export error", "error", err)
	}))

	t.logger.Debug("telemetry started",
		"service", t.cfg.ServiceName,
		"endpoint", t.cfg.Endpoint,
		"console_log", t.cfg.ConsoleLog,
		"otlp_log", t.cfg.OTLPLog,
		"metrics", t.cfg.Metrics,
	)
	return nil
}

func (t *Telemetry) startLogging(ctx context.Context) error {
	opts := []logging.Option{
		logging.WithServiceName(t.cfg.ServiceName),
		logging.WithServiceVersion(t.cfg.ServiceVersion),
		logging.WithEnvironment(t.cfg.Environment),
		logging.WithLevel(t.cfg.LogLevel),
		logging.WithGlobalLogger(),
	}

	if t.cfg.ConsoleLog {
		opts = append(opts,
			logging.WithConsoleHandler(),
			logging.WithSource(true),
		)
	} else {
		// Without the console sink there is no local log output; records
		// still reach the collector when OTLPLog is enabled.
		opts = append(opts, logging.WithOutput(io.Discard))
	}

	if t.cfg.OTLPLog {
		opts = append(opts, logging.WithOTLP(t.cfg.Endpoint))
	}
	opts = append(opts, t.loggingOpts...)

	logger, err := logging.New(opts...)
	if err != nil {
		return err
	}
	if err := logger.Start(ctx); err != nil {
		return err
	}

	t.logger = logger
	return nil
}

func (t *Telemetry) startTracing(ctx context.Context) error {
	opts := []tracing.Option{
		tracing.WithServiceName(t.cfg.ServiceName),
		tracing.WithServiceVersion(t.cfg.ServiceVersion),
		tracing.WithEnvironment(t.cfg.Environment),
		tracing.WithOTLPHTTP(t.cfg.Endpoint),
		tracing.WithGlobalTracerProvider(),
		tracing.WithLogger(t.logger.Logger()),
	}
	opts = append(opts, t.tracingOpts...)

	tracer, err := tracing.New(opts...)
	if err != nil {
		return err
	}

	if err := tracer.Start(ctx); err != nil {
		// Exporter construction failed for a non-configuration reason.
		// Trace export degrades to noop; the process keeps running.
		t.logger.Warn("trace export disabled", "error", err)

		tracer, err = tracing.New(
			tracing.WithServiceName(t.cfg.ServiceName),
			tracing.WithServiceVersion(t.cfg.ServiceVersion),
			tracing.WithEnvironment(t.cfg.Environment),
			tracing.WithNoop(),
			tracing.WithGlobalTracerProvider(),
		)
		if err != nil {
			return err
		}
		if err := tracer.Start(ctx); err != nil {
			return err
		}
	}

	t.tracer = tracer
	return nil
}

func (t *Telemetry) startMetrics(ctx context.Context) error {
	opts := []metrics.Option{
		metrics.WithServiceName(t.cfg.ServiceName),
		metrics.WithServiceVersion(t.cfg.ServiceVersion),
		metrics.WithOTLP(t.cfg.Endpoint),
		metrics.WithGlobalMeterProvider(),
		metrics.WithLogger(t.logger.Logger()),
	}
	opts = append(opts, t.metricsOpts...)

	recorder, err := metrics.New(opts...)
	if err != nil {
		return err
	}
	if err := recorder.Start(ctx); err != nil {
		return err
	}

	t.recorder = recorder
	return nil
}

// Logger returns the logging pipeline.
func (t *Telemetry) Logger() *logging.Logger {
	return t.logger
}

// Tracer returns the tracing pipeline.
func (t *Telemetry) Tracer() *tracing.Tracer {
	return t.tracer
}

// Metrics returns the metrics pipeline, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *metrics.Recorder {
	return t.recorder
}

// Config returns the configuration snapshot this telemetry was built from.
func (t *Telemetry) Config() Config {
	return t.cfg
}

// Shutdown flushes and stops every pipeline, blocking until done or until
// the bounded timeout (default [DefaultShutdownTimeout]) elapses. The flush
// runs on its own goroutine; on timeout, [ErrShutdownTimeout] is returned
// and the process may exit with buffered data unexported. An unreachable
// collector therefore delays shutdown by at most the timeout.
//
// Idempotent; concurrent calls observe the first call's result.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	t.shutdownOnce.Do(func() {
		// The flush must survive an already-cancelled caller context;
		// only the timeout bounds it.
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.shutdownTimeout)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- t.flush(flushCtx)
		}()

		select {
		case err := <-done:
			t.shutdownErr = err
		case <-flushCtx.Done():
			// The flush may have completed in the same instant the
			// deadline fired; its result wins over the timeout.
			select {
			case err := <-done:
				t.shutdownErr = err
			default:
				t.shutdownErr = fmt.Errorf("%w after %s", ErrShutdownTimeout, t.shutdownTimeout)
			}
		}

		bootstrapActive.Store(false)
	})
	return t.shutdownErr
}

// flush stops the pipelines in dependency order: spans and metrics first so
// their final batches can still be logged, the logger last.
func (t *Telemetry) flush(ctx context.Context) error {
	var errs []error

	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}
	if t.recorder != nil {
		if err := t.recorder.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics: %w", err))
		}
	}
	if t.logger != nil {
		if err := t.logger.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("logging: %w", err))
		}
	}

	return errors.Join(errs...)
}

// teardown releases partially built pipelines after a failed bootstrap.
func (t *Telemetry) teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = t.flush(ctx)
}

// Run is the convenience wrapper for short-lived processes: Start, run the
// workload, then Shutdown. Workload and shutdown errors are joined.
func Run(ctx context.Context, cfg Config, workload func(context.Context) error, opts ...Option) error {
	t, err := Start(ctx, cfg, opts...)
	if err != nil {
		return err
	}

	workloadErr := workload(ctx)
	shutdownErr := t.Shutdown(context.Background())

	return errors.Join(workloadErr, shutdownErr)
}
