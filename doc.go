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

// Package observa bootstraps telemetry for a service process: structured
// logging, distributed tracing, and optional metrics, wired to an
// OpenTelemetry collector over OTLP.
//
// Configuration is a snapshot read once at startup, typically from the
// environment:
//
//	cfg, err := observa.ConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err) // configuration errors are the only fatal ones
//	}
//
//	tel, err := observa.Start(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// By default only traces are exported. OBSERVA_CONSOLE_LOG enables local
// human-readable log output with source attribution, OBSERVA_OTLP_LOG
// exports log records to the collector, and OBSERVA_METRICS enables the
// metrics pipeline. A collector that is down at startup never fails the
// process; export degrades to best-effort and errors surface through the
// logger.
//
// Shutdown flushes every sink on a dedicated goroutine and always returns
// within its bounded timeout (default 10s), so an unreachable collector
// cannot hang process exit.
//
// For short-lived processes, [Run] wraps the whole lifecycle:
//
//	err := observa.Run(ctx, cfg, func(ctx context.Context) error {
//	    // the workload, with globals installed
//	    return nil
//	})
//
// The underlying pipelines are usable on their own; see the logging,
// tracing, and metrics packages.
package observa
