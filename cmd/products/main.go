package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"finassist/internal/app"
	"finassist/internal/config"
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

	h := app.NewServices(awsCfg).ProductsHandler(logging.Must(cfg.LogLevel))
	lambda.Start(h.Handle)
}
