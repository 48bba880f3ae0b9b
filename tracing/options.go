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

package tracing

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Option defines functional options for Tracer configuration.
// Options are applied during Tracer creation via New().
type Option func(*Tracer)

// WithTracerProvider allows you to provide a custom OpenTelemetry
// TracerProvider. When using this option the package will NOT set the global
// otel.SetTracerProvider() by default; use WithGlobalTracerProvider for
// global registration.
//
// This is useful when:
//   - You want to manage the tracer provider lifecycle yourself
//   - You need multiple independent tracing configurations
//   - You want to avoid global state in your application
//
// Note: when using WithTracerProvider, provider options (WithOTLP, WithStdout,
// etc.) are ignored since you're managing the provider yourself.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(t *Tracer) {
		t.tracerProvider = provider
		t.customTracerProvider = true
	}
}

// WithGlobalTracerProvider registers the tracer provider as the global
// OpenTelemetry tracer provider via otel.SetTracerProvider().
// By default tracer providers are not registered globally so that multiple
// tracing configurations can coexist in the same process.
func WithGlobalTracerProvider() Option {
	return func(t *Tracer) {
		t.registerGlobal = true
	}
}

// WithServiceName sets the service name reported as 'service.name'.
func WithServiceName(name string) Option {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// WithServiceVersion sets the service version reported as 'service.version'.
func WithServiceVersion(version string) Option {
	return func(t *Tracer) {
		t.serviceVersion = version
	}
}

// WithEnvironment sets the deployment environment reported as
// 'deployment.environment' (e.g., "dev", "staging", "production").
func WithEnvironment(env string) Option {
	return func(t *Tracer) {
		t.environment = env
	}
}

// WithSampleRate sets the sampling rate (0.0 to 1.0).
// Values outside this range are clamped.
//
// A rate of 1.0 samples all traces, 0.5 samples 50%, 0.0 samples none.
// Sampling is parent-based: child spans follow their parent's decision.
func WithSampleRate(rate float64) Option {
	return func(t *Tracer) {
		if rate < 0.0 {
			rate = 0.0
		}
		if rate > 1.0 {
			rate = 1.0
		}
		t.sampleRate = rate
	}
}

// WithCustomPropagator allows using a custom OpenTelemetry propagator.
// By default, uses the global propagator from otel.GetTextMapPropagator().
func WithCustomPropagator(propagator propagation.TextMapPropagator) Option {
	return func(t *Tracer) {
		t.propagator = propagator
	}
}

// WithEventHandler sets a custom handler for internal operational events.
// Use this for advanced cases like custom alerting or non-slog logging
// systems.
//
// Example:
//
//	tracing.New(tracing.WithEventHandler(func(e tracing.Event) {
//	    if e.Type == tracing.EventError {
//	        alerting.Notify(e.Message)
//	    }
//	}))
func WithEventHandler(handler EventHandler) Option {
	return func(t *Tracer) {
		t.eventHandler = handler
	}
}

// WithLogger routes internal operational events to the provided slog.Logger
// using the default event handler. Convenience wrapper around
// WithEventHandler.
func WithLogger(logger *slog.Logger) Option {
	return WithEventHandler(DefaultEventHandler(logger))
}

// OTLPOption configures OTLP-specific behavior for WithOTLP.
type OTLPOption func(*otlpConfig)

type otlpConfig struct {
	insecure bool
}

// OTLPInsecure enables insecure gRPC for OTLP.
// Default is false (uses TLS). Set for local development collectors.
func OTLPInsecure() OTLPOption {
	return func(c *otlpConfig) {
		c.insecure = true
	}
}

// WithOTLP configures the OTLP gRPC provider with an endpoint.
// Endpoint format: "host:port" (e.g., "localhost:4317").
//
// Only one provider can be configured. Configuring multiple providers
// (e.g., WithOTLP and WithStdout) results in a validation error.
//
// Example:
//
//	tracer := tracing.MustNew(tracing.WithOTLP("localhost:4317", tracing.OTLPInsecure()))
func WithOTLP(endpoint string, opts ...OTLPOption) Option {
	return func(t *Tracer) {
		if !t.setProvider(OTLPProvider) {
			return
		}
		t.otlpEndpoint = endpoint
		cfg := &otlpConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		t.otlpInsecure = cfg.insecure
	}
}

// WithOTLPHTTP configures the OTLP HTTP provider with an endpoint.
// Endpoint format: "http://host:port" (e.g., "http://localhost:4318").
// An "http://" scheme implies an insecure connection; "https://" uses TLS.
//
// Only one provider can be configured.
func WithOTLPHTTP(endpoint string) Option {
	return func(t *Tracer) {
		if !t.setProvider(OTLPHTTPProvider) {
			return
		}
		t.otlpEndpoint = endpoint
	}
}

// WithStdout configures the stdout provider for development/debugging.
//
// Only one provider can be configured.
func WithStdout() Option {
	return func(t *Tracer) {
		t.setProvider(StdoutProvider)
	}
}

// WithNoop configures the noop provider (default, no traces exported).
//
// Only one provider can be configured.
func WithNoop() Option {
	return func(t *Tracer) {
		t.setProvider(NoopProvider)
	}
}

// setProvider records the provider choice, collecting a validation error when
// more than one provider option is applied.
func (t *Tracer) setProvider(p Provider) bool {
	if t.providerSet {
		t.validationErrors = append(t.validationErrors,
			fmt.Errorf("provider: multiple providers configured (already have %q, cannot add %q); only one provider allowed", t.provider, p))
		return false
	}
	t.provider = p
	t.providerSet = true
	return true
}
