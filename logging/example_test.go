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

package logging_test

import (
	"context"

	"observa.dev/observa/logging"
)

func ExampleNew() {
	logger, err := logging.New(
		logging.WithJSONHandler(),
		logging.WithServiceName("checkout"),
	)
	if err != nil {
		panic(err)
	}
	defer logger.Shutdown(context.Background())

	logger.Info("order placed", "order_id", "o-42", "total_cents", 1999)
}

func ExampleWithOTLP() {
	logger := logging.MustNew(
		logging.WithConsoleHandler(),
		logging.WithServiceName("checkout"),
		logging.WithOTLP("http://localhost:4318"),
	)

	ctx := context.Background()
	if err := logger.Start(ctx); err != nil {
		// Local logging keeps working even when export setup fails.
		logger.Warn("log export disabled", "error", err)
	}
	defer logger.Shutdown(ctx)

	logger.Info("service started")
}

func ExampleNewContextLogger() {
	logger := logging.MustNew()
	defer logger.Shutdown(context.Background())

	ctx := context.Background() // typically a request context with a span
	cl := logging.NewContextLogger(ctx, logger)
	cl.Info("handling request", "path", "/api/orders")
}
