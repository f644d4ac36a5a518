package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"finassist/internal/app"
	"finassist/internal/config"
	"finassist/internal/handlers"
	"finassist/internal/logging"
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

	// The catalog cache lives as long as the execution environment.
	h := handlers.NewFunctionMatcher(svc.CatalogRouter(cfg, model, logger), logger)
	lambda.Start(h.Handle)
}
