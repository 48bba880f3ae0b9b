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
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metricNameRegex validates metric names according to OpenTelemetry
// conventions: start with a letter, then alphanumerics, underscores, dots,
// and hyphens.
var metricNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)

// maxMetricNameLength is the maximum allowed length for metric names.
const maxMetricNameLength = 255

// Reserved metric name prefixes that custom metrics must not use.
var reservedPrefixes = []string{
	"__",    // reserved by Prometheus
	"task_", // reserved by this package for workload metrics
}

// validateMetricName validates a custom metric name.
func validateMetricName(name string) error {
	if name == "" {
		return fmt.Errorf("metric name cannot be empty")
	}
	if len(name) > maxMetricNameLength {
		return fmt.Errorf("metric name too long: %d characters (max %d)", len(name), maxMetricNameLength)
	}
	if !metricNameRegex.MatchString(name) {
		return fmt.Errorf("invalid metric name %q: must start with letter and contain only alphanumeric, underscore, dot, or hyphen", name)
	}
	for _, prefix := range reservedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return fmt.Errorf("metric name %q uses reserved prefix %q", name, prefix)
		}
	}
	return nil
}

// initializeInstruments creates the built-in workload instruments. Called
// once the meter provider is available.
func (r *Recorder) initializeInstruments() error {
	var err error

	r.taskDuration, err = r.meter.Float64Histogram(
		"task_duration_seconds",
		metric.WithDescription("Duration of workload tasks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(r.durationBuckets...),
	)
	if err != nil {
		return fmt.Errorf("failed to create task duration histogram: %w", err)
	}

	r.taskCount, err = r.meter.Int64Counter(
		"task_total",
		metric.WithDescription("Total number of workload tasks completed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create task counter: %w", err)
	}

	r.taskFailures, err = r.meter.Int64Counter(
		"task_failures_total",
		metric.WithDescription("Total number of workload tasks that failed"),
	)
	if err != nil {
		return fmt.Errorf("failed to create task failure counter: %w", err)
	}

	r.activeTasks, err = r.meter.Int64UpDownCounter(
		"task_active",
		metric.WithDescription("Number of workload tasks currently in flight"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active task counter: %w", err)
	}

	return nil
}

// TaskMetrics holds in-flight measurement state for a single task.
type TaskMetrics struct {
	StartTime  time.Time
	Attributes []attribute.KeyValue

	// baseAttrs is the attribute set the in-flight gauge was incremented
	// with. The decrement must use the same set even after AddAttributes
	// has extended Attributes, or the original series stays nonzero.
	baseAttrs []attribute.KeyValue
}

// AddAttributes appends attributes recorded with the task's measurements.
// Call before [Recorder.EndTask].
func (m *TaskMetrics) AddAttributes(attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.Attributes = append(m.Attributes, attrs...)
}

// BeginTask starts measuring a task: stamps the start time and increments
// the in-flight gauge. Returns nil when instruments are not ready yet, in
// which case [Recorder.EndTask] is a safe no-op.
func (r *Recorder) BeginTask(ctx context.Context, name string) *TaskMetrics {
	if r.taskDuration == nil {
		r.warnNotStarted.Do(func() {
			r.emitWarning("task measurement before instruments are initialized; call Start first")
		})
		return nil
	}

	base := []attribute.KeyValue{
		r.serviceNameAttr,
		r.serviceVersionAttr,
		attribute.String("task.name", name),
	}
	m := &TaskMetrics{
		StartTime:  time.Now(),
		Attributes: append(make([]attribute.KeyValue, 0, 6), base...),
		baseAttrs:  base,
	}

	r.activeTasks.Add(ctx, 1, metric.WithAttributes(base...))
	return m
}

// EndTask completes measurement of a task: records duration, increments the
// completion counter, decrements the in-flight gauge, and counts a failure
// when err is non-nil.
func (r *Recorder) EndTask(ctx context.Context, m *TaskMetrics, err error) {
	if m == nil {
		return
	}

	duration := time.Since(m.StartTime).Seconds()

	attrs := append(m.Attributes, attribute.Bool("task.failed", err != nil))
	opt := metric.WithAttributes(attrs...)

	r.taskDuration.Record(ctx, duration, opt)
	r.taskCount.Add(ctx, 1, opt)
	r.activeTasks.Add(ctx, -1, metric.WithAttributes(m.baseAttrs...))

	if err != nil {
		r.taskFailures.Add(ctx, 1, opt)
	}
}

// AddCounter increments a custom counter metric, creating it on first use.
func (r *Recorder) AddCounter(ctx context.Context, name string, value int64, attrs ...attribute.KeyValue) error {
	counter, err := r.getOrCreateCounter(name)
	if err != nil {
		return err
	}
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// RecordHistogram records a value in a custom histogram metric, creating it
// on first use.
func (r *Recorder) RecordHistogram(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	histogram, err := r.getOrCreateHistogram(name)
	if err != nil {
		return err
	}
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

// SetGauge sets the value of a custom gauge metric, creating it on first use.
func (r *Recorder) SetGauge(ctx context.Context, name string, value float64, attrs ...attribute.KeyValue) error {
	gauge, err := r.getOrCreateGauge(name)
	if err != nil {
		return err
	}
	gauge.Record(ctx, value, metric.WithAttributes(attrs...))
	return nil
}

func (r *Recorder) getOrCreateCounter(name string) (metric.Int64Counter, error) {
	r.customMu.RLock()
	counter, ok := r.customCounters[name]
	r.customMu.RUnlock()
	if ok {
		return counter, nil
	}

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if counter, ok := r.customCounters[name]; ok {
		return counter, nil
	}
	if err := r.checkCustomMetricLimit(name); err != nil {
		return nil, err
	}

	counter, err := r.meter.Int64Counter(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %q: %w", name, err)
	}
	r.customCounters[name] = counter
	r.customMetricCount++
	return counter, nil
}

func (r *Recorder) getOrCreateHistogram(name string) (metric.Float64Histogram, error) {
	r.customMu.RLock()
	histogram, ok := r.customHistograms[name]
	r.customMu.RUnlock()
	if ok {
		return histogram, nil
	}

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if histogram, ok := r.customHistograms[name]; ok {
		return histogram, nil
	}
	if err := r.checkCustomMetricLimit(name); err != nil {
		return nil, err
	}

	histogram, err := r.meter.Float64Histogram(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %q: %w", name, err)
	}
	r.customHistograms[name] = histogram
	r.customMetricCount++
	return histogram, nil
}

func (r *Recorder) getOrCreateGauge(name string) (metric.Float64Gauge, error) {
	r.customMu.RLock()
	gauge, ok := r.customGauges[name]
	r.customMu.RUnlock()
	if ok {
		return gauge, nil
	}

	if err := validateMetricName(name); err != nil {
		return nil, err
	}

	r.customMu.Lock()
	defer r.customMu.Unlock()

	if gauge, ok := r.customGauges[name]; ok {
		return gauge, nil
	}
	if err := r.checkCustomMetricLimit(name); err != nil {
		return nil, err
	}

	gauge, err := r.meter.Float64Gauge(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %q: %w", name, err)
	}
	r.customGauges[name] = gauge
	r.customMetricCount++
	return gauge, nil
}

// checkCustomMetricLimit enforces the custom metric cap and requires an
// initialized meter. Must be called with customMu held for writing.
func (r *Recorder) checkCustomMetricLimit(name string) error {
	if r.meter == nil {
		return fmt.Errorf("cannot create %q: metrics not started", name)
	}
	if r.customMetricCount >= r.maxCustomMetrics {
		return fmt.Errorf("metrics limit reached: cannot create %q (current: %d, limit: %d)",
			name, r.customMetricCount, r.maxCustomMetrics)
	}
	return nil
}
