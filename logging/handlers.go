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
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[37m"
	colorWhite  = "\033[97m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// consoleBuilderPool provides reusable [strings.Builder] instances
// for formatting console log entries.
var consoleBuilderPool = sync.Pool{
	New: func() any {
		return &strings.Builder{}
	},
}

// consoleHandler implements [slog.Handler] for human-readable colored
// console output during development. Production log aggregation should use
// [JSONHandler] instead.
//
// Thread-safe: safe for concurrent use by multiple goroutines.
type consoleHandler struct {
	opts   *slog.HandlerOptions
	output io.Writer
	attrs  []slog.Attr
	prefix string // dotted group path applied to attribute keys
}

// newConsoleHandler creates a new console handler with the given options.
func newConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *consoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &consoleHandler{
		opts:   opts,
		output: w,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

// Handle formats and writes a log record.
func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	b := consoleBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer consoleBuilderPool.Put(b)

	// Timestamp
	b.WriteString(colorDim)
	b.WriteString(r.Time.Format("15:04:05.000"))
	b.WriteString(colorReset)
	b.WriteString(" ")

	// Level with color
	b.WriteString(levelColor(r.Level))
	b.WriteString(colorBold)
	b.WriteString(levelTag(r.Level))
	b.WriteString(colorReset)
	b.WriteString(" ")

	// Message
	b.WriteString(colorWhite)
	b.WriteString(r.Message)
	b.WriteString(colorReset)

	// Attributes: handler-bound first, then record attributes.
	if r.NumAttrs() > 0 || len(h.attrs) > 0 {
		b.WriteString(" ")
		for _, a := range h.attrs {
			h.appendAttr(b, a)
		}
		r.Attrs(func(a slog.Attr) bool {
			h.appendAttr(b, a)
			return true
		})
	}

	// Source location
	if h.opts.AddSource && r.PC != 0 {
		if src := recordSource(r.PC); src != "" {
			b.WriteString(" ")
			b.WriteString(colorGray)
			b.WriteString("(" + src + ")")
			b.WriteString(colorReset)
		}
	}

	b.WriteString("\n")

	_, err := h.output.Write([]byte(b.String()))
	return err
}

// WithAttrs returns a new handler with additional attributes.
// Implements [slog.Handler.WithAttrs].
func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &consoleHandler{
		opts:   h.opts,
		output: h.output,
		attrs:  newAttrs,
		prefix: h.prefix,
	}
}

// WithGroup returns a new handler with a group name. Group names become a
// dotted prefix on attribute keys.
// Implements [slog.Handler.WithGroup].
func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	prefix := h.prefix + name + "."
	return &consoleHandler{
		opts:   h.opts,
		output: h.output,
		attrs:  h.attrs,
		prefix: prefix,
	}
}

// levelTag returns a fixed-width label for a log level.
func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}

// levelColor returns the ANSI color code for a log level.
func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colorRed
	case level >= slog.LevelWarn:
		return colorYellow
	case level >= slog.LevelInfo:
		return colorGreen
	default:
		return colorBlue
	}
}

// appendAttr formats and appends an attribute to the output, applying the
// ReplaceAttr hook and the group prefix first.
func (h *consoleHandler) appendAttr(b *strings.Builder, a slog.Attr) {
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(nil, a)
	}
	if a.Equal(slog.Attr{}) {
		return
	}

	b.WriteString(h.prefix)
	b.WriteString(a.Key)
	b.WriteString("=")

	switch v := a.Value.Any().(type) {
	case string:
		b.WriteString(v)
	case int:
		b.WriteString(strconv.Itoa(v))
	case int64:
		b.WriteString(strconv.FormatInt(v, 10))
	case uint64:
		b.WriteString(strconv.FormatUint(v, 10))
	case bool:
		b.WriteString(strconv.FormatBool(v))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case time.Duration:
		b.WriteString(v.String())
	case time.Time:
		b.WriteString(v.Format(time.RFC3339))
	case error:
		b.WriteString(v.Error())
	default:
		// Catch-all for types without specialized formatting.
		b.WriteString(fmt.Sprint(v))
	}

	b.WriteString(" ")
}

// recordSource returns "file:line" for a pc if available. Only the base
// filename is kept; full paths are redundant within one project.
func recordSource(pc uintptr) string {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()
	if f.File == "" {
		return ""
	}
	file := f.File
	if idx := strings.LastIndex(file, "/"); idx != -1 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(f.Line)
}

// levelGateHandler enforces a minimum level in front of a handler whose own
// Enabled is unconditional, such as the OTLP export bridge. The leveler is
// consulted on every record, so dynamic level changes apply immediately.
type levelGateHandler struct {
	handler slog.Handler
	level   slog.Leveler
}

func newLevelGateHandler(h slog.Handler, level slog.Leveler) *levelGateHandler {
	return &levelGateHandler{handler: h, level: level}
}

// Enabled reports whether the record clears the gate and the wrapped handler
// accepts it.
func (g *levelGateHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= g.level.Level() && g.handler.Enabled(ctx, level)
}

// Handle delivers the record to the wrapped handler.
func (g *levelGateHandler) Handle(ctx context.Context, r slog.Record) error {
	return g.handler.Handle(ctx, r)
}

// WithAttrs implements [slog.Handler.WithAttrs].
func (g *levelGateHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelGateHandler{handler: g.handler.WithAttrs(attrs), level: g.level}
}

// WithGroup implements [slog.Handler.WithGroup].
func (g *levelGateHandler) WithGroup(name string) slog.Handler {
	return &levelGateHandler{handler: g.handler.WithGroup(name), level: g.level}
}

// multiHandler fans a record out to every wrapped handler. It is how the
// local console/JSON handler and the OTLP export bridge both observe the
// same log stream.
type multiHandler struct {
	handlers []slog.Handler
}

// newMultiHandler wraps the given handlers into a single [slog.Handler].
func newMultiHandler(handlers ...slog.Handler) *multiHandler {
	return &multiHandler{handlers: handlers}
}

// Enabled reports whether at least one wrapped handler is enabled at level.
func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle dispatches the record to every enabled handler. A failing handler
// does not stop delivery to the others; errors are joined.
func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements [slog.Handler.WithAttrs].
func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

// WithGroup implements [slog.Handler.WithGroup].
func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
