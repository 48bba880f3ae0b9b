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

package observa_test

import (
	"context"
	"log"

	"observa.dev/observa"
)

func ExampleStart() {
	cfg, err := observa.ConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	tel, err := observa.Start(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer tel.Shutdown(context.Background())

	ctx, span := tel.Tracer().StartSpan(ctx, "handle-request")
	tel.Logger().Info("handling request")
	tel.Tracer().FinishSpan(span, nil)
	_ = ctx
}

func ExampleRun() {
	cfg := observa.DefaultConfig()
	cfg.ServiceName = "batch-job"

	err := observa.Run(context.Background(), cfg, func(ctx context.Context) error {
		// the workload, with slog and otel globals installed
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
}
