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

// Package tracing provides OpenTelemetry-based distributed tracing for Go
// services. It supports OTLP (gRPC and HTTP), stdout, and noop exporters
// behind a single Tracer lifecycle.
//
// # Basic Usage
//
//	tracer, err := tracing.New(
//	    tracing.WithServiceName("my-service"),
//	    tracing.WithServiceVersion("v1.0.0"),
//	    tracing.WithOTLPHTTP("http://localhost:4318"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := tracer.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer tracer.Shutdown(context.Background())
//
// # Providers
//
// Four providers are supported:
//
//   - NoopProvider (default): no traces exported (safe default)
//   - StdoutProvider: pretty-prints traces to stdout (development/testing)
//   - OTLPProvider: sends traces to an OTLP collector over gRPC
//   - OTLPHTTPProvider: sends traces to an OTLP collector over HTTP
//
// # Custom Spans
//
//	ctx, span := tracer.StartSpan(ctx, "process-order")
//	defer tracer.FinishSpan(span, err)
//
//	tracer.SetSpanAttribute(span, "order.id", id)
//	tracer.AddSpanEvent(span, "cache_hit")
//
// # Shutdown
//
// Call Shutdown with a bounded context before process exit so batched spans
// are flushed to the collector:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	if err := tracer.Shutdown(ctx); err != nil {
//	    slog.Warn("trace flush incomplete", "error", err)
//	}
package tracing
