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

// Package metrics provides OpenTelemetry-based metrics collection with
// Prometheus, OTLP, and stdout exporters.
//
// # Basic Usage
//
//	recorder := metrics.MustNew(
//	    metrics.WithPrometheus(":9090", "/metrics"),
//	    metrics.WithServiceName("my-service"),
//	)
//	if err := recorder.Start(ctx); err != nil {
//	    // handle
//	}
//	defer recorder.Shutdown(context.Background())
//
//	m := recorder.BeginTask(ctx, "process-order")
//	err := process(ctx)
//	recorder.EndTask(ctx, m, err)
//
// Built-in instruments cover workload tasks: a duration histogram, a
// completion counter, a failure counter, and an in-flight gauge.
//
// # Custom Metrics
//
// Custom counters, histograms, and gauges are created on first use and
// capped (default 1000) to prevent unbounded metric creation:
//
//	_ = recorder.AddCounter(ctx, "orders_placed", 1,
//	    attribute.String("region", "eu"))
//	_ = recorder.RecordHistogram(ctx, "batch_size", 128)
//	_ = recorder.SetGauge(ctx, "queue_depth", 42)
//
// # Providers
//
//   - [PrometheusProvider] (default): exposes a scrape endpoint, optionally
//     on a dedicated server
//   - [OTLPProvider]: pushes to an OTLP collector over HTTP on a fixed
//     interval
//   - [StdoutProvider]: prints to stdout (development/testing)
//
// # Global State
//
// By default, this package does NOT set the global OpenTelemetry meter
// provider. Use [WithGlobalMeterProvider] if you want global registration.
// All [Recorder] methods are safe for concurrent use.
package metrics
