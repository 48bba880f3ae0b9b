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

package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const loggerScope = "observa.dev/observa/logging"

// loggerProvider is the slice of the OTel SDK logger provider this package
// manages: flush-and-stop on shutdown.
type loggerProvider interface {
	Shutdown(ctx context.Context) error
}

// buildLogProvider constructs the OTel SDK logger provider and the slog
// bridge handler that feeds it. Records are batched and exported over
// OTLP/HTTP, or pretty-printed to stdout when WithStdoutExporter is set.
//
// The context is passed to exporter construction; the HTTP exporter does not
// dial eagerly, so an unreachable collector surfaces at export time, not here.
func (l *Logger) buildLogProvider(ctx context.Context) (loggerProvider, slog.Handler, error) {
	exporter, err := l.buildLogExporter(ctx)
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(l.serviceName),
		semconv.ServiceVersion(l.serviceVersion),
		attribute.String("deployment.environment", l.environment),
	)

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	if l.registerGlobal {
		global.SetLoggerProvider(provider)
	}

	bridge := otelslog.NewHandler(loggerScope, otelslog.WithLoggerProvider(provider))
	return provider, bridge, nil
}

func (l *Logger) buildLogExporter(ctx context.Context) (sdklog.Exporter, error) {
	if l.stdoutExporter {
		exporter, err := stdoutlog.New(stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout log exporter: %w", err)
		}
		return exporter, nil
	}

	opts := []otlploghttp.Option{}
	if l.otlpEndpoint != "" {
		endpoint, insecure, err := parseHTTPEndpoint(l.otlpEndpoint)
		if err != nil {
			return nil, err
		}
		opts = append(opts, otlploghttp.WithEndpoint(endpoint))
		if insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
	}

	exporter, err := otlploghttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}
	return exporter, nil
}

// parseHTTPEndpoint reduces an OTLP HTTP endpoint to host:port, reporting
// whether the scheme requests an insecure connection. The per-signal path
// (/v1/logs) is appended by the exporter itself.
func parseHTTPEndpoint(raw string) (endpoint string, insecure bool, err error) {
	endpoint = raw

	if trimmed, ok := strings.CutPrefix(endpoint, "http://"); ok {
		endpoint = trimmed
		insecure = true
	} else if trimmed, ok := strings.CutPrefix(endpoint, "https://"); ok {
		endpoint = trimmed
	}

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	if endpoint == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q", raw)
	}

	return endpoint, insecure, nil
}
