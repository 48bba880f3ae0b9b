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
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

// LogEntry represents a parsed JSON log entry for test assertions.
type LogEntry struct {
	Level   string
	Message string
	Attrs   map[string]any
}

// TestHelper pairs a debug-level JSON logger with an in-memory buffer so
// tests can assert on emitted entries.
type TestHelper struct {
	Logger *Logger
	Buffer *bytes.Buffer
}

// NewTestHelper creates a [TestHelper]. Additional [Option] values can be
// passed to customize the logger; they are applied after the defaults.
func NewTestHelper(t *testing.T, opts ...Option) *TestHelper {
	t.Helper()

	buf := &bytes.Buffer{}
	defaultOpts := []Option{
		WithJSONHandler(),
		WithOutput(buf),
		WithLevel(LevelDebug),
	}
	logger := MustNew(append(defaultOpts, opts...)...)

	return &TestHelper{
		Logger: logger,
		Buffer: buf,
	}
}

// Logs returns all log entries parsed from the buffer. The buffer is not
// consumed.
func (th *TestHelper) Logs() ([]LogEntry, error) {
	return ParseJSONLogEntries(th.Buffer)
}

// LastLog returns the most recent log entry.
func (th *TestHelper) LastLog() (*LogEntry, error) {
	entries, err := th.Logs()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no log entries found")
	}
	return &entries[len(entries)-1], nil
}

// ContainsLog reports whether any entry has the given message.
func (th *TestHelper) ContainsLog(msg string) bool {
	entries, err := th.Logs()
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if entry.Message == msg {
			return true
		}
	}
	return false
}

// CountLevel returns the number of log entries at the given level name
// ("DEBUG", "INFO", "WARN", "ERROR").
func (th *TestHelper) CountLevel(level string) int {
	entries, err := th.Logs()
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if entry.Level == level {
			count++
		}
	}
	return count
}

// Reset clears the buffer.
func (th *TestHelper) Reset() {
	th.Buffer.Reset()
}

// ParseJSONLogEntries parses newline-delimited JSON log entries. Standard
// slog fields (time, level, msg) are lifted out; everything else lands in
// Attrs.
func ParseJSONLogEntries(buf *bytes.Buffer) ([]LogEntry, error) {
	var entries []LogEntry
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var raw map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &raw); err != nil {
			return nil, err
		}

		le := LogEntry{Attrs: make(map[string]any)}
		for k, v := range raw {
			switch k {
			case "time":
			case "level":
				le.Level, _ = v.(string)
			case "msg":
				le.Message, _ = v.(string)
			default:
				le.Attrs[k] = v
			}
		}
		entries = append(entries, le)
	}
	return entries, scanner.Err()
}
