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

// Package logging provides structured logging built on [log/slog], with an
// optional OTLP export pipeline.
//
// Three local handlers are available: JSON (default), key=value text, and a
// colored console handler for development. Independently of the local
// handler, log records can be exported to an OpenTelemetry collector over
// OTLP/HTTP; the same record stream feeds both destinations.
//
// # Basic Usage
//
//	logger := logging.MustNew(logging.WithConsoleHandler())
//	defer logger.Shutdown(context.Background())
//	logger.Info("service started", "port", 8080)
//
// # OTLP Export
//
//	logger := logging.MustNew(
//	    logging.WithJSONHandler(),
//	    logging.WithServiceName("my-service"),
//	    logging.WithOTLP("http://localhost:4318"),
//	)
//	if err := logger.Start(ctx); err != nil {
//	    // local logging still works; export is best-effort
//	}
//	defer logger.Shutdown(context.Background())
//
// Start builds the exporter; Shutdown flushes buffered records within the
// bound of its context. A collector that is down when Start runs does not
// fail the process.
//
// # Dynamic Log Levels
//
//	logger.SetLevel(logging.LevelDebug)
//	logger.SetLevel(logging.LevelWarn)
//
// # Global Logger Registration
//
// By default, loggers are NOT registered globally, so multiple independent
// logger instances can coexist in one process. Opt in with
// [WithGlobalLogger] to make slog.Info and friends use this logger.
//
// # Sensitive Data Redaction
//
// Attributes named password, token, secret, api_key, or authorization are
// redacted from all output. Additional rules can be added with
// [WithReplaceAttr].
//
// # Trace Correlation
//
// [NewContextLogger] stamps trace_id and span_id from an active
// OpenTelemetry span onto every entry, so logs can be joined to the trace
// that produced them.
package logging
