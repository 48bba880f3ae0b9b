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
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestingTracer creates a started test Tracer with sensible defaults for unit
// tests. The tracer uses NoopProvider to avoid any external dependencies.
// Shutdown is registered via t.Cleanup.
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    t.Parallel()
//	    tracer := tracing.TestingTracer(t)
//	    // Use tracer...
//	}
func TestingTracer(t testing.TB, opts ...Option) *Tracer {
	t.Helper()

	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithNoop(),
		WithSampleRate(1.0),
	}
	allOpts := append(defaultOpts, opts...)

	tracer, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingTracer: failed to create tracer: %v", err)
	}
	if err := tracer.Start(context.Background()); err != nil {
		t.Fatalf("TestingTracer: failed to start tracer: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			t.Logf("TestingTracer: shutdown warning: %v", err)
		}
	})

	return tracer
}

// TestingTracerWithRecorder creates a started test Tracer backed by an
// in-memory span recorder, so tests can assert on exported spans.
//
// Example:
//
//	tracer, spans := tracing.TestingTracerWithRecorder(t)
//	_, span := tracer.StartSpan(ctx, "work")
//	span.End()
//	require.Len(t, spans.Ended(), 1)
func TestingTracerWithRecorder(t testing.TB, opts ...Option) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(recorder),
	)

	defaultOpts := []Option{
		WithServiceName("test-service"),
		WithServiceVersion("v1.0.0"),
		WithTracerProvider(tp),
	}
	allOpts := append(defaultOpts, opts...)

	tracer, err := New(allOpts...)
	if err != nil {
		t.Fatalf("TestingTracerWithRecorder: failed to create tracer: %v", err)
	}
	if err := tracer.Start(context.Background()); err != nil {
		t.Fatalf("TestingTracerWithRecorder: failed to start tracer: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			t.Logf("TestingTracerWithRecorder: shutdown warning: %v", err)
		}
	})

	return tracer, recorder
}
