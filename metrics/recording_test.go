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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collect gathers all metrics from the manual reader into a flat map by
// metric name.
func collect(t *testing.T, reader interface {
	Collect(context.Context, *metricdata.ResourceMetrics) error
}) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestBeginEndTaskRecordsMetrics(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "task-service")
	ctx := context.Background()

	m := recorder.BeginTask(ctx, "ingest")
	require.NotNil(t, m)
	recorder.EndTask(ctx, m, nil)

	metrics := collect(t, reader)

	count, ok := metrics["task_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.EqualValues(t, 1, count.DataPoints[0].Value)

	name, _ := count.DataPoints[0].Attributes.Value(attribute.Key("task.name"))
	assert.Equal(t, "ingest", name.AsString())
	failed, _ := count.DataPoints[0].Attributes.Value(attribute.Key("task.failed"))
	assert.False(t, failed.AsBool())

	duration, ok := metrics["task_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, duration.DataPoints, 1)
	assert.EqualValues(t, 1, duration.DataPoints[0].Count)

	active, ok := metrics["task_active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.EqualValues(t, 0, active.DataPoints[0].Value)

	_, hasFailures := metrics["task_failures_total"]
	assert.False(t, hasFailures)
}

func TestEndTaskCountsFailures(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "task-service")
	ctx := context.Background()

	m := recorder.BeginTask(ctx, "flaky")
	recorder.EndTask(ctx, m, errors.New("boom"))

	metrics := collect(t, reader)

	failures, ok := metrics["task_failures_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, failures.DataPoints, 1)
	assert.EqualValues(t, 1, failures.DataPoints[0].Value)
}

func TestEndTaskNilIsNoop(t *testing.T) {
	t.Parallel()

	recorder, _ := TestingRecorder(t, "task-service")

	assert.NotPanics(t, func() {
		recorder.EndTask(context.Background(), nil, nil)
	})
}

func TestTaskMetricsAddAttributes(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "task-service")
	ctx := context.Background()

	m := recorder.BeginTask(ctx, "annotated")
	m.AddAttributes(attribute.String("tenant", "acme"))
	recorder.EndTask(ctx, m, nil)

	metrics := collect(t, reader)
	count, ok := metrics["task_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	tenant, _ := count.DataPoints[0].Attributes.Value(attribute.Key("tenant"))
	assert.Equal(t, "acme", tenant.AsString())
}

func TestAnnotatedTaskDrainsActiveGauge(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "task-service")
	ctx := context.Background()

	// The decrement must land on the series the increment created, even
	// though the annotation changed the attributes used for the other
	// instruments. Otherwise the base series stays at 1 forever.
	m := recorder.BeginTask(ctx, "annotated")
	m.AddAttributes(attribute.String("tenant", "acme"))
	recorder.EndTask(ctx, m, nil)

	metrics := collect(t, reader)
	active, ok := metrics["task_active"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, active.DataPoints, 1)
	assert.EqualValues(t, 0, active.DataPoints[0].Value)
}

func TestCustomMetrics(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "custom-service")
	ctx := context.Background()

	require.NoError(t, recorder.AddCounter(ctx, "orders_placed", 2,
		attribute.String("region", "eu")))
	require.NoError(t, recorder.RecordHistogram(ctx, "batch_size", 128))
	require.NoError(t, recorder.SetGauge(ctx, "queue_depth", 42))

	metrics := collect(t, reader)

	counter, ok := metrics["orders_placed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.EqualValues(t, 2, counter.DataPoints[0].Value)

	_, ok = metrics["batch_size"].Data.(metricdata.Histogram[float64])
	assert.True(t, ok)

	gauge, ok := metrics["queue_depth"].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	assert.EqualValues(t, 42, gauge.DataPoints[0].Value)
}

func TestCustomMetricNameValidation(t *testing.T) {
	t.Parallel()

	recorder, _ := TestingRecorder(t, "custom-service")
	ctx := context.Background()

	tests := []struct {
		name       string
		metricName string
	}{
		{"empty", ""},
		{"starts with digit", "1_request"},
		{"invalid characters", "orders placed"},
		{"prometheus reserved prefix", "__internal"},
		{"workload reserved prefix", "task_extra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := recorder.AddCounter(ctx, tt.metricName, 1)
			assert.Error(t, err)
		})
	}
}

func TestCustomMetricLimit(t *testing.T) {
	t.Parallel()

	recorder, _ := TestingRecorder(t, "limited-service", WithMaxCustomMetrics(2))
	ctx := context.Background()

	require.NoError(t, recorder.AddCounter(ctx, "first", 1))
	require.NoError(t, recorder.AddCounter(ctx, "second", 1))

	err := recorder.AddCounter(ctx, "third", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics limit reached")

	// Existing metrics keep working at the limit.
	assert.NoError(t, recorder.AddCounter(ctx, "first", 1))
}

func TestCustomMetricsConcurrent(t *testing.T) {
	t.Parallel()

	recorder, reader := TestingRecorder(t, "concurrent-service")
	ctx := context.Background()

	done := make(chan struct{})
	for i := range 8 {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for range 100 {
				_ = recorder.AddCounter(ctx, "shared_counter", 1,
					attribute.Int("worker", i%2))
			}
		}(i)
	}
	for range 8 {
		<-done
	}

	metrics := collect(t, reader)
	counter, ok := metrics["shared_counter"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range counter.DataPoints {
		total += dp.Value
	}
	assert.EqualValues(t, 800, total)
}

func TestValidateMetricNameLength(t *testing.T) {
	t.Parallel()

	longName := "a"
	for len(longName) <= maxMetricNameLength {
		longName += "a"
	}
	err := validateMetricName(longName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")

	assert.NoError(t, validateMetricName(fmt.Sprintf("ok_%d", maxMetricNameLength)))
}
