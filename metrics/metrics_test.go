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
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	recorder, err := New(WithServerDisabled())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recorder.Shutdown(context.Background()) })

	assert.Equal(t, PrometheusProvider, recorder.Provider())
	assert.Equal(t, "observa-service", recorder.ServiceName())
	assert.Equal(t, "0.1.0", recorder.ServiceVersion())
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{
			name:    "empty service name",
			opts:    []Option{WithServiceName("")},
			wantErr: "service name cannot be empty",
		},
		{
			name:    "empty service version",
			opts:    []Option{WithServiceVersion("")},
			wantErr: "service version cannot be empty",
		},
		{
			name:    "conflicting providers",
			opts:    []Option{WithStdout(), WithOTLP("http://localhost:4318")},
			wantErr: "conflicting provider options",
		},
		{
			name:    "zero custom metric limit",
			opts:    []Option{WithMaxCustomMetrics(0)},
			wantErr: "maxCustomMetrics must be at least 1",
		},
		{
			name:    "empty prometheus port",
			opts:    []Option{WithPrometheus("", "/metrics")},
			wantErr: "metrics port cannot be empty",
		},
		{
			name:    "nil custom meter provider",
			opts:    []Option{WithMeterProvider(nil)},
			wantErr: "custom meter provider is nil",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMustNewPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNew(WithServiceName(""))
	})
}

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	recorder, err := New(WithServerDisabled())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recorder.Shutdown(context.Background()) })

	ctx := context.Background()
	m := recorder.BeginTask(ctx, "scrape-test")
	recorder.EndTask(ctx, m, nil)

	handler, err := recorder.Handler()
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "task_total")
	assert.Contains(t, rec.Body.String(), "task_duration_seconds")
}

func TestHandlerUnavailableForPushProviders(t *testing.T) {
	t.Parallel()

	recorder, _ := TestingRecorder(t, "push-service")

	_, err := recorder.Handler()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Prometheus provider")
}

func TestOTLPProviderDeferredToStart(t *testing.T) {
	t.Parallel()

	// Nothing listens on this endpoint. Construction and Start must both
	// succeed; export failures surface asynchronously.
	recorder, err := New(
		WithOTLP("http://localhost:49151"),
		WithExportInterval(time.Hour),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = recorder.Shutdown(ctx)
	})

	// Instruments are not ready until Start.
	assert.Nil(t, recorder.BeginTask(context.Background(), "early"))

	require.NoError(t, recorder.Start(context.Background()))

	m := recorder.BeginTask(context.Background(), "after-start")
	require.NotNil(t, m)
	recorder.EndTask(context.Background(), m, nil)
}

func TestStartIdempotent(t *testing.T) {
	t.Parallel()

	recorder, err := New(WithServerDisabled())
	require.NoError(t, err)
	t.Cleanup(func() { _ = recorder.Shutdown(context.Background()) })

	require.NoError(t, recorder.Start(context.Background()))
	require.NoError(t, recorder.Start(context.Background()))
}

func TestShutdownIdempotentConcurrent(t *testing.T) {
	t.Parallel()

	recorder, err := New(WithServerDisabled())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = recorder.Shutdown(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestShutdownSkipsCustomProvider(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	recorder, err := New(WithMeterProvider(provider))
	require.NoError(t, err)
	require.NoError(t, recorder.Shutdown(context.Background()))

	// The provider the caller supplied still works after Recorder shutdown.
	_, err = provider.Meter("post-shutdown").Int64Counter("still_alive")
	assert.NoError(t, err)
}

func TestEventHandlerReceivesEvents(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var events []Event
	recorder, err := New(
		WithServerDisabled(),
		WithExportInterval(100*time.Millisecond), // triggers the low-interval warning
		WithEventHandler(func(e Event) {
			mu.Lock()
			events = append(events, e)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = recorder.Shutdown(context.Background()) })

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, EventWarning, events[0].Type)
	assert.Contains(t, events[0].Message, "export interval")
}

func TestDefaultEventHandlerNilLogger(t *testing.T) {
	t.Parallel()

	handler := DefaultEventHandler(nil)
	assert.NotPanics(t, func() {
		handler(Event{Type: EventError, Message: "dropped"})
	})
}
