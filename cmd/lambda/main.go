package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/osvaldoandrade/quotegen/pkg/app"
	"github.com/osvaldoandrade/quotegen/pkg/config"
	"github.com/osvaldoandrade/quotegen/pkg/domain"

	"github.com/aws/aws-lambda-go/lambda"
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// handler runs the job once per invocation. Pipeline failures come back as
// the failure variant of the result, not as an invocation error, so the
// caller always sees statusCode and body.
type handler struct {
	application *app.Application
}

func (h *handler) Handle(ctx context.Context, _ json.RawMessage) (*domain.RunResult, error) {
	rec, err := h.application.Job.Run(ctx)
	if rec == nil {
		return nil, err
	}
	// Metrics and traces are flushed per invocation; the execution
	// environment may be frozen right after we return.
	h.application.Flush(context.WithoutCancel(ctx))
	return rec, nil
}

func main() {
	cfg, err := config.LoadConfigOptional(getenv("QUOTEGEN_CONFIG_PATH", ""))
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] load config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] invalid config:", err)
		os.Exit(1)
	}

	application, err := app.NewApplication(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR] init app:", err)
		os.Exit(1)
	}

	h := &handler{application: application}
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(func() {
		application.Close(context.Background())
	}))
}
