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
	"io"
	"log/slog"
)

// WithHandlerType sets the logging handler type.
func WithHandlerType(t HandlerType) Option {
	return func(l *Logger) { l.handlerType = t }
}

// WithJSONHandler uses JSON structured logging (default).
func WithJSONHandler() Option {
	return WithHandlerType(JSONHandler)
}

// WithTextHandler uses text key=value logging.
func WithTextHandler() Option {
	return WithHandlerType(TextHandler)
}

// WithConsoleHandler uses human-readable console logging.
func WithConsoleHandler() Option {
	return WithHandlerType(ConsoleHandler)
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option {
	return func(l *Logger) { l.level.Set(level) }
}

// WithDebugLevel enables debug logging.
func WithDebugLevel() Option {
	return WithLevel(LevelDebug)
}

// WithServiceName sets the service name attached to the export resource.
func WithServiceName(name string) Option {
	return func(l *Logger) { l.serviceName = name }
}

// WithServiceVersion sets the service version attached to the export resource.
func WithServiceVersion(version string) Option {
	return func(l *Logger) { l.serviceVersion = version }
}

// WithEnvironment sets the deployment environment attached to the export
// resource.
func WithEnvironment(env string) Option {
	return func(l *Logger) { l.environment = env }
}

// WithSource enables source code location in log entries.
func WithSource(enabled bool) Option {
	return func(l *Logger) { l.addSource = enabled }
}

// WithReplaceAttr sets a custom attribute replacer function.
// The function receives groups and an [slog.Attr], and returns a modified
// attribute. Return an empty [slog.Attr] to drop the attribute from output.
//
// Sensitive fields (password, token, secret, api_key, authorization) are
// redacted before the replacer runs.
func WithReplaceAttr(fn func(groups []string, a slog.Attr) slog.Attr) Option {
	return func(l *Logger) { l.replaceAttr = fn }
}

// WithCustomLogger uses a custom [slog.Logger] instead of creating one.
// When using a custom logger, [Logger.SetLevel] is not supported, and OTLP
// export cannot be enabled.
func WithCustomLogger(customLogger *slog.Logger) Option {
	return func(l *Logger) {
		l.customLogger = customLogger
		l.useCustom = true
	}
}

// WithOTLP enables exporting log records to an OTLP collector over HTTP,
// in addition to the local handler. The endpoint accepts "host:port" or a
// full "http://host:port" URL; an http scheme selects an insecure
// connection. An empty endpoint defers to the exporter's own defaults
// (localhost:4318 or the OTEL_EXPORTER_OTLP_ENDPOINT environment variable).
//
// The exporter is built by [Logger.Start]. An unreachable collector does
// not fail Start; export errors surface at delivery time.
func WithOTLP(endpoint string) Option {
	return func(l *Logger) {
		l.otlpEnabled = true
		l.otlpEndpoint = endpoint
	}
}

// WithStdoutExporter routes the export pipeline to a pretty-printed stdout
// exporter instead of OTLP. Useful for inspecting the exact records a
// collector would receive.
func WithStdoutExporter() Option {
	return func(l *Logger) {
		l.stdoutExporter = true
	}
}

// WithGlobalLogger registers this logger as the global slog default logger,
// and the export provider (if any) as the global OTel logger provider.
// By default, loggers are not registered globally to allow multiple logger
// instances to coexist in the same process.
func WithGlobalLogger() Option {
	return func(l *Logger) {
		l.registerGlobal = true
	}
}
