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

	pipeline, err := app.NewServices(awsCfg).Pipeline(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	h := handlers.NewAskHandler(pipeline, logger)
	lambda.Start(h.Handle)
}
