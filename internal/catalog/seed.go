package catalog

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/logging"
)

// Functions is the catalog the assistant ships with.
var Functions = []finance.FunctionDescriptor{
	{
		FunctionID:  finance.FuncGetSubscriptions,
		Title:       "Get User Subscriptions",
		ToolTitle:   "Subscription Manager",
		Description: "Retrieves all active subscriptions for a user, including subscription name, amount, frequency, and category.",
		Category:    "subscriptions",
		ExamplePrompts: []string{
			"Show me my subscriptions",
			"What subscriptions do I have?",
			"List all my monthly subscriptions",
		},
	},
	{
		FunctionID:  finance.FuncGetProducts,
		Title:       "Get Financial Products",
		ToolTitle:   "Financial Products Catalog",
		Description: "Retrieves available financial products (e.g. loans) with details about interest rates, terms, and amount ranges.",
		Category:    "products",
		ExamplePrompts: []string{
			"Show me available financial products",
			"What loans are available?",
			"List all financial products",
		},
	},
	{
		FunctionID:  finance.FuncManageGoals,
		Title:       "Manage Financial Goals",
		ToolTitle:   "Financial Goals Manager",
		Description: "Create, read, update, and delete financial goals. Track progress towards savings targets, emergency funds, and other financial objectives.",
		Category:    "goals",
		ExamplePrompts: []string{
			"Show me my financial goals",
			"Create a new savings goal",
			"Update my emergency fund goal",
			"Delete my vacation fund goal",
		},
	},
	{
		FunctionID:  finance.FuncSummarize,
		Title:       "Summarize Financial Data",
		ToolTitle:   "Financial Summary Generator",
		Description: "Generates a natural language summary of a user's financial data, including subscriptions, available products, and financial goals. Highlights key insights and patterns.",
		Category:    "summary",
		ExamplePrompts: []string{
			"Summarize my financial situation",
			"Give me an overview of my finances",
			"What's my current financial status?",
			"Show me a summary of my subscriptions and goals",
		},
	},
}

var SampleSubscriptions = []finance.Record{
	{"user_id": "test_user", "subscription_id": "sub-001", "name": "Spotify", "amount": 9.99, "frequency": "monthly", "category": "Entertainment", "start_date": "2024-01-01"},
	{"user_id": "test_user", "subscription_id": "sub-002", "name": "Netflix", "amount": 15.99, "frequency": "monthly", "category": "Entertainment", "start_date": "2024-01-01"},
}

var SampleProducts = []finance.Record{
	{"product_id": "prod-001", "name": "Mortgage", "description": "30-year fixed rate mortgage", "min_amount": 50000, "max_amount": 500000, "interest_rate": 6.5, "term_years": 30, "type": "loan"},
	{"product_id": "prod-002", "name": "Auto Loan", "description": "5-year auto loan", "min_amount": 10000, "max_amount": 100000, "interest_rate": 5.5, "term_years": 5, "type": "loan"},
}

var SampleGoals = []finance.Record{
	{"user_id": "user-001", "goal_id": "goal-001", "name": "Buy a House", "description": "Save for a down payment on a house", "target_amount": 50000, "current_amount": 10000, "target_date": "2025-12-31", "status": "in_progress"},
	{"user_id": "user-001", "goal_id": "goal-002", "name": "Emergency Fund", "description": "Build emergency fund", "target_amount": 25000, "current_amount": 15000, "target_date": "2024-12-31", "status": "in_progress"},
}

type ItemPutter interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Tables names the four tables a seed run writes to.
type Tables struct {
	Catalog       string
	Subscriptions string
	Products      string
	Goals         string
}

// Seeder writes the shipped catalog and the sample domain records.
type Seeder struct {
	ddb    ItemPutter
	tables Tables
	log    *zap.Logger
}

func NewSeeder(ddb ItemPutter, tables Tables, log *zap.Logger) *Seeder {
	return &Seeder{ddb: ddb, tables: tables, log: logging.OrNop(log)}
}

// Seed returns the number of items written.
func (s *Seeder) Seed(ctx context.Context) (int, error) {
	written := 0
	for _, fn := range Functions {
		if err := s.put(ctx, s.tables.Catalog, fn); err != nil {
			return written, fmt.Errorf("seed function %s: %w", fn.FunctionID, err)
		}
		written++
	}

	sets := []struct {
		table   string
		records []finance.Record
	}{
		{s.tables.Subscriptions, SampleSubscriptions},
		{s.tables.Products, SampleProducts},
		{s.tables.Goals, SampleGoals},
	}
	for _, set := range sets {
		for _, rec := range set.records {
			if err := s.put(ctx, set.table, rec); err != nil {
				return written, fmt.Errorf("seed %s: %w", set.table, err)
			}
			written++
		}
	}
	return written, nil
}

func (s *Seeder) put(ctx context.Context, table string, v any) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}
	if _, err := s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}); err != nil {
		return err
	}
	s.log.Info("seeded item", zap.String("table", table))
	return nil
}
