package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"finassist/internal/config"
	"finassist/internal/db"
	"finassist/internal/handlers"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, _, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	h := handlers.NewHealth(version, cfg.ModelSource(), map[string]string{
		"catalog":       db.FunctionCatalogTableName(),
		"subscriptions": db.SubscriptionsTableName(),
		"products":      db.ProductsTableName(),
		"goals":         db.GoalsTableName(),
	})
	lambda.Start(h.Handle)
}
