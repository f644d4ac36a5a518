package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"finassist/internal/config"
	"finassist/internal/db"
	"finassist/internal/export"
	"finassist/internal/logging"
	"finassist/internal/store"
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

	opt, err := export.SnapshotOptionsFromEnv()
	if err != nil {
		log.Fatalf("%v", err)
	}

	goals := store.NewGoals(db.NewDynamoClient(awsCfg), db.GoalsTableName())
	h := export.NewGoalsSnapshot(goals, s3.NewFromConfig(awsCfg), athena.NewFromConfig(awsCfg), opt, logging.Must(cfg.LogLevel))
	lambda.Start(h.Handle)
}
