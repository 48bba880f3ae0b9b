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

package observa

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"observa.dev/observa/logging"
)

// Environment variable names consumed by [ConfigFromEnv].
const (
	// EnvOTLPEndpoint is the OTLP collector base endpoint. The standard
	// OpenTelemetry variable name is used so existing collector deployments
	// work unchanged.
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
	// EnvServiceName is the service name reported on every signal.
	EnvServiceName = "OTEL_SERVICE_NAME"
	// EnvEnvironment is the deployment environment tag (dev, staging, prod).
	EnvEnvironment = "OBSERVA_ENV"
	// EnvLogLevel is the minimum log level: debug, info, warn, error.
	EnvLogLevel = "OBSERVA_LOG_LEVEL"
	// EnvConsoleLog enables human-readable console log output with
	// source attribution.
	EnvConsoleLog = "OBSERVA_CONSOLE_LOG"
	// EnvOTLPLog enables exporting log records to the OTLP collector.
	EnvOTLPLog = "OBSERVA_OTLP_LOG"
	// EnvMetrics enables the metrics pipeline.
	EnvMetrics = "OBSERVA_METRICS"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultEndpoint    = "http://localhost:4318"
	DefaultServiceName = "observa-service"
	DefaultEnvironment = "dev"
)

// Config is the telemetry configuration snapshot. It is read once at
// startup and never consulted again: changing environment variables after
// [Start] has no effect on a running process.
type Config struct {
	// ServiceName is reported as service.name on every signal.
	ServiceName string
	// ServiceVersion is reported as service.version on every signal.
	ServiceVersion string
	// Environment is reported as deployment.environment on every signal.
	Environment string
	// Endpoint is the OTLP collector base endpoint, scheme included.
	Endpoint string
	// LogLevel is the minimum level for log output.
	LogLevel logging.Level

	// ConsoleLog enables colored, human-readable log output with file:line
	// attribution. Off by default; without it (and without OTLPLog) log
	// records are discarded.
	ConsoleLog bool
	// OTLPLog enables exporting log records to the collector.
	OTLPLog bool
	// Metrics enables the metrics pipeline. Traces are always exported.
	Metrics bool
}

// DefaultConfig returns the configuration used when no environment
// variables are set: traces exported to a local collector, logs and
// metrics off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: "0.1.0",
		Environment:    DefaultEnvironment,
		Endpoint:       DefaultEndpoint,
		LogLevel:       logging.LevelInfo,
	}
}

// ConfigFromEnv builds a [Config] from the process environment, applying
// defaults for anything unset. A malformed endpoint URL or an unknown log
// level name is a configuration error and fails immediately.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	applyEnvString(EnvOTLPEndpoint, &cfg.Endpoint)
	applyEnvString(EnvServiceName, &cfg.ServiceName)
	applyEnvString(EnvEnvironment, &cfg.Environment)

	if v := os.Getenv(EnvLogLevel); v != "" {
		level, err := logging.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid environment variable %s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}

	cfg.ConsoleLog = envBool(EnvConsoleLog)
	cfg.OTLPLog = envBool(EnvOTLPLog)
	cfg.Metrics = envBool(EnvMetrics)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate checks the configuration for errors that must fail startup.
func (c Config) validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("invalid OTLP endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid OTLP endpoint %q: scheme must be http or https", c.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid OTLP endpoint %q: missing host", c.Endpoint)
	}

	return nil
}

// applyEnvString sets a string value from the environment if present.
func applyEnvString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envBool parses a boolean flag from the environment. Unset means false.
func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
