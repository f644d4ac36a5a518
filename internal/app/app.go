// Package app builds the collaborators shared by the Lambda mains and the CLI.
package app

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"

	"finassist/internal/alerts"
	"finassist/internal/assistant"
	"finassist/internal/catalog"
	"finassist/internal/config"
	"finassist/internal/db"
	"finassist/internal/executor"
	"finassist/internal/handlers"
	"finassist/internal/invoke"
	"finassist/internal/llm"
	"finassist/internal/logging"
	"finassist/internal/matcher"
	"finassist/internal/store"
	"finassist/internal/summarize"
)

// Services holds one client per AWS service.
type Services struct {
	DynamoDB *dynamodb.Client
	Bedrock  *bedrockruntime.Client
	Lambda   *lambda.Client
	SNS      *sns.Client
	SSM      *ssm.Client
}

func NewServices(awsCfg aws.Config) *Services {
	return &Services{
		DynamoDB: db.NewDynamoClient(awsCfg),
		Bedrock:  bedrockruntime.NewFromConfig(awsCfg),
		Lambda:   lambda.NewFromConfig(awsCfg),
		SNS:      sns.NewFromConfig(awsCfg),
		SSM:      ssm.NewFromConfig(awsCfg),
	}
}

// LLM resolves the model id and returns a Bedrock client for it.
func (s *Services) LLM(ctx context.Context, cfg config.Config) (*llm.Client, error) {
	modelID, err := cfg.ResolveModelID(ctx, s.SSM)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(s.Bedrock, modelID), nil
}

// Notifier is nil when GOAL_ALERTS_TOPIC_ARN is unset.
func (s *Services) Notifier(log *zap.Logger) handlers.GoalNotifier {
	arn := alerts.TopicArnFromEnv()
	if arn == "" {
		return nil
	}
	return alerts.NewNotifier(s.SNS, arn, log)
}

func (s *Services) SubscriptionsHandler(log *zap.Logger) *handlers.Subscriptions {
	return handlers.NewSubscriptions(store.NewSubscriptions(s.DynamoDB, db.SubscriptionsTableName()), log)
}

func (s *Services) ProductsHandler(log *zap.Logger) *handlers.Products {
	return handlers.NewProducts(store.NewProducts(s.DynamoDB, db.ProductsTableName()), log)
}

func (s *Services) GoalsHandler(log *zap.Logger) *handlers.Goals {
	return handlers.NewGoals(store.NewGoals(s.DynamoDB, db.GoalsTableName()), s.Notifier(log), log)
}

// LocalInvoker runs the three domain handlers in this process.
func (s *Services) LocalInvoker(log *zap.Logger) *invoke.LocalInvoker {
	return invoke.NewLocalInvoker(s.SubscriptionsHandler(log), s.ProductsHandler(log), s.GoalsHandler(log))
}

// CatalogRouter matches with model against the cached DynamoDB catalog.
func (s *Services) CatalogRouter(cfg config.Config, model llm.Completer, log *zap.Logger) *matcher.CatalogRouter {
	src := catalog.NewCache(catalog.NewDynamoSource(s.DynamoDB, db.FunctionCatalogTableName()), cfg.CatalogTTL(), log)
	return matcher.NewCatalogRouter(src, matcher.New(model, log))
}

// Pipeline wires the request pipeline. Local mode talks to DynamoDB and Bedrock
// directly; otherwise matching, domain calls and summaries go through the
// deployed functions.
func (s *Services) Pipeline(ctx context.Context, cfg config.Config, log *zap.Logger) (*assistant.Pipeline, error) {
	log = logging.OrNop(log)

	if !cfg.Local {
		exec := executor.New(invoke.NewLambdaInvoker(s.Lambda, cfg.Functions.Domains(), log), log)
		router := invoke.NewRemoteRouter(s.Lambda, cfg.Functions.Matcher, cfg.UserID)
		return assistant.New(router, exec, invoke.NewRemoteSummarizer(s.Lambda, cfg.Functions.Summarize), log), nil
	}

	model, err := s.LLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	exec := executor.New(s.LocalInvoker(log), log)
	return assistant.New(s.CatalogRouter(cfg, model, log), exec, summarize.New(model, log), log), nil
}

// Seeder writes the catalog and sample records to the configured tables.
func (s *Services) Seeder(log *zap.Logger) *catalog.Seeder {
	return catalog.NewSeeder(s.DynamoDB, catalog.Tables{
		Catalog:       db.FunctionCatalogTableName(),
		Subscriptions: db.SubscriptionsTableName(),
		Products:      db.ProductsTableName(),
		Goals:         db.GoalsTableName(),
	}, log)
}
