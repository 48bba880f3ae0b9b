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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// HandlerType represents the type of logging handler.
type HandlerType string

const (
	// JSONHandler outputs structured JSON logs.
	JSONHandler HandlerType = "json"
	// TextHandler outputs key=value text logs.
	TextHandler HandlerType = "text"
	// ConsoleHandler outputs human-readable colored logs.
	ConsoleHandler HandlerType = "console"
)

// Level represents log level.
type Level = slog.Level

const (
	// LevelDebug is the debug log level.
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel converts a level name ("debug", "info", "warn", "error") into a
// Level. Unknown names return LevelInfo and ErrInvalidLevel.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "debug", "DEBUG":
		return LevelDebug, nil
	case "info", "INFO", "":
		return LevelInfo, nil
	case "warn", "warning", "WARN", "WARNING":
		return LevelWarn, nil
	case "error", "ERROR":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Package-level cached context reused across log calls.
//
// context.Background() is immutable and safe for concurrent access; the
// slog.Logger.Log signature requires a context we don't use for cancellation.
var bgCtx = context.Background()

// Logger holds the logging configuration and the active slog logger.
//
// Thread-safety: all public methods are safe for concurrent use.
//   - the slog logger is stored in an atomic.Pointer for lock-free reads
//   - level changes go through a slog.LevelVar
//   - isShuttingDown uses atomic.Bool for shutdown checks
type Logger struct {
	// Handler configuration
	handlerType HandlerType
	output      io.Writer
	level       slog.LevelVar

	// Service information
	serviceName    string
	serviceVersion string
	environment    string

	// Features
	addSource   bool
	replaceAttr func(groups []string, a slog.Attr) slog.Attr

	// OTLP log export (optional)
	otlpEnabled    bool
	otlpEndpoint   string
	stdoutExporter bool
	provider       loggerProvider

	// Custom logger
	customLogger *slog.Logger
	useCustom    bool

	// Internal state
	logger         atomic.Pointer[slog.Logger]
	isShuttingDown atomic.Bool
	shutdownOnce   sync.Once
	shutdownErr    error
	started        bool

	// Global registration control
	registerGlobal bool // If true, sets slog.SetDefault()
}

// Option is a functional option for configuring the logger.
type Option func(*Logger)

// newDefaultLogger returns a Logger with default configuration.
func newDefaultLogger() *Logger {
	l := &Logger{
		handlerType:    JSONHandler,
		output:         os.Stdout,
		serviceName:    "observa-service",
		serviceVersion: "0.1.0",
		environment:    "dev",
	}
	l.level.Set(LevelInfo)
	return l
}

// New creates a new Logger and validates its configuration. The local
// handler is usable immediately; call Start to build the optional OTLP log
// exporter configured via WithOTLP.
//
// By default this function does NOT set the global slog default logger.
// Use WithGlobalLogger if you want this logger registered as the global
// default. This keeps multiple logging configurations able to coexist in
// the same process.
func New(opts ...Option) (*Logger, error) {
	l := newDefaultLogger()

	for _, opt := range opts {
		opt(l)
	}

	if err := l.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := l.initializeHandler(nil); err != nil {
		return nil, err
	}
	return l, nil
}

// MustNew creates a new Logger or panics on error.
func MustNew(opts ...Option) *Logger {
	l, err := New(opts...)
	if err != nil {
		panic("logging initialization failed: " + err.Error())
	}
	return l
}

// validate checks if the configuration is valid.
func (l *Logger) validate() error {
	if l.output == nil {
		return errors.New("output writer cannot be nil")
	}
	if l.serviceName == "" {
		return errors.New("service name cannot be empty")
	}
	if l.useCustom && l.customLogger == nil {
		return ErrNilLogger
	}
	switch l.handlerType {
	case JSONHandler, TextHandler, ConsoleHandler:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}
	return nil
}

// Start builds the OTLP log exporter when one is configured and swaps in a
// fan-out handler that feeds both the local handler and the export bridge.
// Without WithOTLP or WithStdoutExporter, Start is a no-op.
//
// Exporter construction failure is returned but leaves the local handler
// functional, so callers can treat export as best-effort.
func (l *Logger) Start(ctx context.Context) error {
	if l.started {
		return errors.New("logger already started")
	}
	l.started = true

	if !l.otlpEnabled && !l.stdoutExporter {
		return nil
	}
	if l.useCustom {
		return errors.New("cannot combine OTLP export with a custom logger")
	}

	provider, bridge, err := l.buildLogProvider(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize log export: %w", err)
	}
	l.provider = provider

	return l.initializeHandler(bridge)
}

// initializeHandler creates and stores the slog logger, fanning out to the
// export bridge when one is supplied.
func (l *Logger) initializeHandler(bridge slog.Handler) error {
	if l.useCustom {
		l.logger.Store(l.customLogger)
		if l.registerGlobal {
			slog.SetDefault(l.customLogger)
		}
		return nil
	}

	opts := &slog.HandlerOptions{
		Level:       &l.level,
		AddSource:   l.addSource,
		ReplaceAttr: l.buildReplaceAttr(),
	}

	var handler slog.Handler
	switch l.handlerType {
	case JSONHandler:
		handler = slog.NewJSONHandler(l.output, opts)
	case TextHandler:
		handler = slog.NewTextHandler(l.output, opts)
	case ConsoleHandler:
		handler = newConsoleHandler(l.output, opts)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidHandler, l.handlerType)
	}

	if bridge != nil {
		// The bridge reports itself enabled at every level; the gate
		// keeps the configured minimum level authoritative for export.
		handler = newMultiHandler(handler, newLevelGateHandler(bridge, &l.level))
	}

	newLogger := slog.New(handler)
	l.logger.Store(newLogger)
	if l.registerGlobal {
		slog.SetDefault(newLogger)
	}
	return nil
}

// buildReplaceAttr creates the attribute replacer function.
func (l *Logger) buildReplaceAttr() func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		// Sanitize sensitive fields
		switch a.Key {
		case "password", "token", "secret", "api_key", "authorization":
			return slog.String(a.Key, "***REDACTED***")
		}
		if l.replaceAttr != nil {
			return l.replaceAttr(groups, a)
		}
		return a
	}
}

// Logger returns the underlying slog.Logger.
// Safe for concurrent access via atomic.Pointer.
func (l *Logger) Logger() *slog.Logger {
	return l.logger.Load()
}

// With returns a slog logger with additional attributes.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.Logger().With(args...)
}

// WithGroup returns a slog logger with a group name.
func (l *Logger) WithGroup(name string) *slog.Logger {
	return l.Logger().WithGroup(name)
}

// log consolidates the shutdown check and level check into a single code
// path shared by Debug/Info/Warn/Error.
func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l.isShuttingDown.Load() {
		return
	}

	logger := l.Logger()
	if !logger.Enabled(bgCtx, level) {
		return
	}

	logger.Log(bgCtx, level, msg, args...)
}

// Debug logs a debug message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) {
	l.log(slog.LevelDebug, msg, args...)
}

// Info logs an informational message with structured attributes.
func (l *Logger) Info(msg string, args ...any) {
	l.log(slog.LevelInfo, msg, args...)
}

// Warn logs a warning message with structured attributes.
func (l *Logger) Warn(msg string, args ...any) {
	l.log(slog.LevelWarn, msg, args...)
}

// Error logs an error message with structured attributes.
func (l *Logger) Error(msg string, args ...any) {
	l.log(slog.LevelError, msg, args...)
}

// SetLevel dynamically changes the minimum log level at runtime.
//
// Not supported with custom loggers: their level is controlled externally,
// so ErrCannotChangeLevel is returned.
func (l *Logger) SetLevel(level Level) error {
	if l.useCustom {
		return ErrCannotChangeLevel
	}
	l.level.Set(level)
	return nil
}

// GetLevel returns the current minimum log level.
func (l *Logger) GetLevel() Level {
	return l.level.Level()
}

// Shutdown gracefully shuts down the logger: further log calls become
// no-ops and the OTLP logger provider (if any) is flushed and stopped.
// The context bounds the flush.
//
// Shutdown is idempotent; concurrent calls observe the same result.
func (l *Logger) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() {
		l.isShuttingDown.Store(true)

		if l.provider != nil {
			if err := l.provider.Shutdown(ctx); err != nil {
				l.shutdownErr = fmt.Errorf("logger provider shutdown: %w", err)
			}
		}
	})
	return l.shutdownErr
}
