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

// Command observa-demo bootstraps telemetry from the environment, runs a
// short simulated workload that produces spans, logs, and metric points,
// then shuts everything down.
//
// Point it at a local collector:
//
//	export OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
//	export OBSERVA_CONSOLE_LOG=true
//	observa-demo
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"observa.dev/observa"
	"observa.dev/observa/tracing"
)

func main() {
	cfg, err := observa.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := observa.Start(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry bootstrap error: %v\n", err)
		os.Exit(1)
	}

	simulateWork(ctx, tel)

	// An unreachable collector delays exit by at most the shutdown timeout.
	// The logger is already silenced at this point, so report on stderr.
	if err := tel.Shutdown(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry shutdown incomplete: %v\n", err)
	}
}

// simulateWork produces a span around a short task, with structured logs
// before and after and a task metric when metrics are enabled.
func simulateWork(ctx context.Context, tel *observa.Telemetry) {
	logger := tel.Logger()
	tracer := tel.Tracer()

	logger.Info("starting simulated work")

	ctx, span := tracer.StartSpan(ctx, "simulated-work")
	tracer.SetSpanAttribute(span, "work.kind", "demo")

	if rec := tel.Metrics(); rec != nil {
		m := rec.BeginTask(ctx, "simulated-work")
		defer func() { rec.EndTask(ctx, m, nil) }()
		_ = rec.AddCounter(ctx, "demo_iterations", 1,
			attribute.String("phase", "main"))
	}

	select {
	case <-time.After(150 * time.Millisecond):
	case <-ctx.Done():
	}

	tracer.FinishSpan(span, ctx.Err())

	logger.Info("simulated work complete",
		"trace_id", tracing.TraceID(ctx),
		"duration_ms", 150,
	)
}
