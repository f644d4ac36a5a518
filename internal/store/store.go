package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"finassist/internal/db"
	"finassist/internal/finance"
)

var (
	ErrMissingUser   = errors.New("missing user_id")
	ErrMissingGoalID = errors.New("missing goal_id")
	ErrMissingGoal   = errors.New("missing goal")
)

type DDBClient interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Subscriptions is keyed by user_id + subscription_id.
type Subscriptions struct {
	ddb   DDBClient
	table string
}

func NewSubscriptions(ddb DDBClient, table string) *Subscriptions {
	return &Subscriptions{ddb: ddb, table: table}
}

func (s *Subscriptions) List(ctx context.Context, userID string) ([]finance.Record, error) {
	return queryUser(ctx, s.ddb, s.table, userID)
}

// Products is keyed by product_id only.
type Products struct {
	ddb   DDBClient
	table string
}

func NewProducts(ddb DDBClient, table string) *Products {
	return &Products{ddb: ddb, table: table}
}

func (p *Products) List(ctx context.Context) ([]finance.Record, error) {
	items, err := db.ScanAll(ctx, p.ddb, p.table)
	if err != nil {
		return nil, err
	}
	return unmarshalRecords(items)
}

// Goals is keyed by user_id + goal_id.
type Goals struct {
	ddb   DDBClient
	table string
}

func NewGoals(ddb DDBClient, table string) *Goals {
	return &Goals{ddb: ddb, table: table}
}

func (g *Goals) List(ctx context.Context, userID string) ([]finance.Record, error) {
	return queryUser(ctx, g.ddb, g.table, userID)
}

// Put upserts a goal for userID and returns the stored item.
// A goal without goal_id gets a fresh one.
func (g *Goals) Put(ctx context.Context, userID string, goal finance.Record) (finance.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}
	if goal == nil {
		return nil, ErrMissingGoal
	}

	item := make(finance.Record, len(goal)+2)
	for k, v := range goal {
		item[k] = v
	}
	item["user_id"] = userID
	if id, _ := item["goal_id"].(string); strings.TrimSpace(id) == "" {
		item["goal_id"] = uuid.NewString()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, fmt.Errorf("marshal goal: %w", err)
	}
	if _, err := g.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(g.table),
		Item:      av,
	}); err != nil {
		return nil, fmt.Errorf("dynamodb put %s: %w", g.table, err)
	}
	return item, nil
}

func (g *Goals) Delete(ctx context.Context, userID, goalID string) error {
	userID = strings.TrimSpace(userID)
	goalID = strings.TrimSpace(goalID)
	if userID == "" {
		return ErrMissingUser
	}
	if goalID == "" {
		return ErrMissingGoalID
	}

	_, err := g.ddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(g.table),
		Key: map[string]ddbtypes.AttributeValue{
			"user_id": &ddbtypes.AttributeValueMemberS{Value: userID},
			"goal_id": &ddbtypes.AttributeValueMemberS{Value: goalID},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete %s: %w", g.table, err)
	}
	return nil
}

// All scans every goal of every user.
func (g *Goals) All(ctx context.Context) ([]finance.Record, error) {
	items, err := db.ScanAll(ctx, g.ddb, g.table)
	if err != nil {
		return nil, err
	}
	return unmarshalRecords(items)
}

func queryUser(ctx context.Context, ddb DDBClient, table, userID string) ([]finance.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrMissingUser
	}

	var items []map[string]ddbtypes.AttributeValue
	var startKey map[string]ddbtypes.AttributeValue
	for {
		out, err := ddb.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(table),
			KeyConditionExpression: aws.String("#u = :u"),
			ExpressionAttributeNames: map[string]string{
				"#u": "user_id",
			},
			ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
				":u": &ddbtypes.AttributeValueMemberS{Value: userID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb query %s: %w", table, err)
		}
		items = append(items, out.Items...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return unmarshalRecords(items)
}

func unmarshalRecords(items []map[string]ddbtypes.AttributeValue) ([]finance.Record, error) {
	out := make([]finance.Record, 0, len(items))
	for _, it := range items {
		var rec map[string]any
		if err := attributevalue.UnmarshalMap(it, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
