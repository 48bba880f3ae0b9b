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
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func TestTracerDefaults(t *testing.T) {
	t.Parallel()

	tracer := TestingTracer(t)

	assert.Equal(t, "test-service", tracer.ServiceName())
	assert.Equal(t, "v1.0.0", tracer.ServiceVersion())
	assert.Equal(t, NoopProvider, tracer.GetProvider())
	assert.NotNil(t, tracer.GetTracer())
	assert.NotNil(t, tracer.GetPropagator())
}

func TestTracerValidation(t *testing.T) {
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
			name:    "multiple providers",
			opts:    []Option{WithStdout(), WithNoop()},
			wantErr: "multiple providers configured",
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

func TestSampleRateClamping(t *testing.T) {
	t.Parallel()

	tracer, err := New(WithSampleRate(1.5))
	require.NoError(t, err)
	assert.InEpsilon(t, 1.0, tracer.sampleRate, 1e-9)

	tracer, err = New(WithSampleRate(-0.5))
	require.NoError(t, err)
	assert.Zero(t, tracer.sampleRate)
}

func TestOTLPEndpointDefaults(t *testing.T) {
	t.Parallel()

	tracer, err := New(WithOTLP(""))
	require.NoError(t, err)
	assert.Equal(t, "localhost:4317", tracer.otlpEndpoint)

	tracer, err = New(WithOTLPHTTP(""))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:4318", tracer.otlpEndpoint)
}

func TestMustNewPanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustNew(WithServiceName(""))
	})
}

func TestStartTwiceFails(t *testing.T) {
	t.Parallel()

	tracer, err := New(WithNoop())
	require.NoError(t, err)
	require.NoError(t, tracer.Start(context.Background()))
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	err = tracer.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already started")
}

func TestSpanRecording(t *testing.T) {
	t.Parallel()

	tracer, recorder := TestingTracerWithRecorder(t)

	ctx, span := tracer.StartSpan(context.Background(), "unit-of-work")
	tracer.SetSpanAttribute(span, "job.id", 42)
	tracer.AddSpanEvent(span, "checkpoint", attribute.String("stage", "mid"))

	assert.NotEmpty(t, TraceID(ctx))
	assert.NotEmpty(t, SpanID(ctx))

	tracer.FinishSpan(span, nil)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "unit-of-work", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	var foundAttr bool
	for _, kv := range ended[0].Attributes() {
		if kv.Key == "job.id" && kv.Value.AsInt64() == 42 {
			foundAttr = true
		}
	}
	assert.True(t, foundAttr, "expected job.id attribute on span")

	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "checkpoint", ended[0].Events()[0].Name)
}

func TestFinishSpanWithError(t *testing.T) {
	t.Parallel()

	tracer, recorder := TestingTracerWithRecorder(t)

	_, span := tracer.StartSpan(context.Background(), "failing-work")
	tracer.FinishSpan(span, errors.New("boom"))

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1) // RecordError adds an exception event
}

func TestStartSpanWithCancelledContext(t *testing.T) {
	t.Parallel()

	tracer, recorder := TestingTracerWithRecorder(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, span := tracer.StartSpan(ctx, "should-not-record")
	tracer.FinishSpan(span, nil)

	assert.Empty(t, recorder.Ended())
}

func TestContextHelpersWithoutSpan(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, TraceID(ctx))
	assert.Empty(t, SpanID(ctx))

	// No-ops without an active span.
	SetSpanAttributeFromContext(ctx, "key", "value")
	AddSpanEventFromContext(ctx, "event")
}

func TestShutdownIdempotent(t *testing.T) {
	t.Parallel()

	tracer, err := New(WithNoop())
	require.NoError(t, err)
	require.NoError(t, tracer.Start(context.Background()))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tracer.Shutdown(context.Background()))
		}()
	}
	wg.Wait()
}

func TestShutdownSkipsCustomProvider(t *testing.T) {
	t.Parallel()

	tracer, recorder := TestingTracerWithRecorder(t)

	// Shutdown must not touch the user-managed provider.
	require.NoError(t, tracer.Shutdown(context.Background()))

	_, span := tracer.StartSpan(context.Background(), "after-shutdown")
	tracer.FinishSpan(span, nil)
	assert.Len(t, recorder.Ended(), 1)
}

func TestEventHandlerReceivesEvents(t *testing.T) {
	t.Parallel()

	var events []Event
	tracer, err := New(
		WithOTLP(""),
		WithEventHandler(func(e Event) { events = append(events, e) }),
	)
	require.NoError(t, err)
	require.NotNil(t, tracer)

	require.NotEmpty(t, events)
	assert.Equal(t, EventWarning, events[0].Type)
	assert.Contains(t, events[0].Message, "endpoint not specified")
}

func TestParseHTTPEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		raw          string
		wantEndpoint string
		wantInsecure bool
		wantErr      bool
	}{
		{name: "http scheme", raw: "http://localhost:4318", wantEndpoint: "localhost:4318", wantInsecure: true},
		{name: "https scheme", raw: "https://collector:4318", wantEndpoint: "collector:4318"},
		{name: "bare hostport", raw: "collector:4318", wantEndpoint: "collector:4318"},
		{name: "trailing path stripped", raw: "http://localhost:4318/v1/traces", wantEndpoint: "localhost:4318", wantInsecure: true},
		{name: "scheme only", raw: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			endpoint, insecure, err := parseHTTPEndpoint(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEndpoint, endpoint)
			assert.Equal(t, tt.wantInsecure, insecure)
		})
	}
}
