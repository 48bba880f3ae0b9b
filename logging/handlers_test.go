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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandlerEnabled(t *testing.T) {
	t.Parallel()

	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	h := newConsoleHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: &level})

	ctx := context.Background()
	assert.False(t, h.Enabled(ctx, slog.LevelDebug))
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.True(t, h.Enabled(ctx, slog.LevelError))
}

func TestConsoleHandlerAttrFormatting(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(newConsoleHandler(buf, nil))

	logger.Info("formats",
		"str", "value",
		"count", 42,
		"ok", true,
		"ratio", 0.5,
		"elapsed", 150*time.Millisecond,
		"err", errors.New("boom"),
	)

	out := buf.String()
	assert.Contains(t, out, "str=value")
	assert.Contains(t, out, "count=42")
	assert.Contains(t, out, "ok=true")
	assert.Contains(t, out, "ratio=0.5")
	assert.Contains(t, out, "elapsed=150ms")
	assert.Contains(t, out, "err=boom")
}

func TestConsoleHandlerSourceLocation(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := MustNew(WithConsoleHandler(), WithOutput(buf), WithSource(true))

	logger.Info("locating")

	assert.Contains(t, buf.String(), "handlers_test.go:")
}

func TestConsoleHandlerWithAttrsAndGroup(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(newConsoleHandler(buf, nil))

	logger.With("service", "api").WithGroup("http").Info("handled", "status", 200)

	out := buf.String()
	assert.Contains(t, out, "service=api")
	assert.Contains(t, out, "http.status=200")
}

func TestConsoleHandlerLevelTags(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(newConsoleHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "ERROR")
}

// capturingHandler records every slog.Record it receives.
type capturingHandler struct {
	records []slog.Record
	fail    error
}

func (c *capturingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (c *capturingHandler) Handle(_ context.Context, r slog.Record) error {
	if c.fail != nil {
		return c.fail
	}
	c.records = append(c.records, r)
	return nil
}

func (c *capturingHandler) WithAttrs([]slog.Attr) slog.Handler { return c }
func (c *capturingHandler) WithGroup(string) slog.Handler      { return c }

func TestMultiHandlerFanOut(t *testing.T) {
	t.Parallel()

	first := &capturingHandler{}
	second := &capturingHandler{}
	logger := slog.New(newMultiHandler(first, second))

	logger.Info("fan out")

	require.Len(t, first.records, 1)
	require.Len(t, second.records, 1)
	assert.Equal(t, "fan out", first.records[0].Message)
}

func TestMultiHandlerFailureDoesNotStopDelivery(t *testing.T) {
	t.Parallel()

	failing := &capturingHandler{fail: errors.New("sink down")}
	working := &capturingHandler{}
	h := newMultiHandler(failing, working)

	var r slog.Record
	r = slog.NewRecord(time.Now(), slog.LevelInfo, "still delivered", 0)
	err := h.Handle(context.Background(), r)

	require.Error(t, err)
	require.Len(t, working.records, 1)
	assert.Equal(t, "still delivered", working.records[0].Message)
}

func TestMultiHandlerEnabledRespectsLevels(t *testing.T) {
	t.Parallel()

	var warnOnly slog.LevelVar
	warnOnly.Set(slog.LevelWarn)
	console := newConsoleHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: &warnOnly})
	capture := &capturingHandler{}
	h := newMultiHandler(console, capture)

	// The capturing handler accepts everything, so the fan-out is enabled
	// at debug even though the console handler is not.
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestLevelGateHandlerFiltersBelowMinimum(t *testing.T) {
	t.Parallel()

	var level slog.LevelVar
	level.Set(slog.LevelInfo)
	capture := &capturingHandler{}
	logger := slog.New(newMultiHandler(
		slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: &level}),
		newLevelGateHandler(capture, &level),
	))

	// The wrapped handler accepts everything, like the export bridge; the
	// gate keeps sub-threshold records away from it.
	logger.Debug("filtered")
	logger.Info("delivered")

	require.Len(t, capture.records, 1)
	assert.Equal(t, "delivered", capture.records[0].Message)
}

func TestLevelGateHandlerTracksDynamicLevel(t *testing.T) {
	t.Parallel()

	var level slog.LevelVar
	level.Set(slog.LevelWarn)
	capture := &capturingHandler{}
	logger := slog.New(newLevelGateHandler(capture, &level))

	logger.Info("dropped")
	level.Set(slog.LevelDebug)
	logger.Info("delivered")

	require.Len(t, capture.records, 1)
	assert.Equal(t, "delivered", capture.records[0].Message)
}
