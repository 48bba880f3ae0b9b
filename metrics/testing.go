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
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// TestingRecorder creates a [Recorder] for unit tests, backed by a manual
// reader so measurements can be collected and asserted on without any
// exporter or server. Shutdown is registered via t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    recorder, reader := metrics.TestingRecorder(t, "test-service")
//
//	    m := recorder.BeginTask(context.Background(), "work")
//	    recorder.EndTask(context.Background(), m, nil)
//
//	    var rm metricdata.ResourceMetrics
//	    require.NoError(t, reader.Collect(context.Background(), &rm))
//	}
func TestingRecorder(t testing.TB, serviceName string, opts ...Option) (*Recorder, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	defaultOpts := []Option{
		WithServiceName(serviceName),
		WithMeterProvider(provider),
	}

	recorder, err := New(append(defaultOpts, opts...)...)
	if err != nil {
		t.Fatalf("TestingRecorder: failed to create recorder: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := recorder.Shutdown(ctx); err != nil {
			t.Logf("TestingRecorder: shutdown warning: %v", err)
		}
		if err := provider.Shutdown(ctx); err != nil {
			t.Logf("TestingRecorder: provider shutdown warning: %v", err)
		}
	})

	return recorder, reader
}
