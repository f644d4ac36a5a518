package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"finassist/internal/app"
	"finassist/internal/config"
	"finassist/internal/executor"
	"finassist/internal/handlers"
	"finassist/internal/logging"
	"finassist/internal/summarize"
)

func main() {
	ctx := context.Background()

	cfg, _, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	awsCfg, err := cfg.AWS(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger := logging.Must(cfg.LogLevel)

	svc := app.NewServices(awsCfg)
	model, err := svc.LLM(ctx, cfg)
	if err != nil {
		log.Fatalf("resolve model: %v", err)
	}

	// Requests without data read the stores directly.
	exec := executor.New(svc.LocalInvoker(logger), logger)
	h := handlers.NewSummarize(summarize.New(model, logger), exec, logger)
	lambda.Start(h.Handle)
}
