package app

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/config"
)

func testServices() *Services {
	return NewServices(aws.Config{Region: "us-east-1", Credentials: aws.AnonymousCredentials{}})
}

func TestNotifierNilWithoutTopic(t *testing.T) {
	t.Setenv("GOAL_ALERTS_TOPIC_ARN", "")
	assert.Nil(t, testServices().Notifier(nil))

	t.Setenv("GOAL_ALERTS_TOPIC_ARN", "arn:aws:sns:us-east-1:123456789012:goal-alerts")
	assert.NotNil(t, testServices().Notifier(nil))
}

func TestLLMUsesConfiguredModel(t *testing.T) {
	c, err := testServices().LLM(context.Background(), config.Config{ModelID: "anthropic.claude-3-haiku-20240307-v1:0"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", c.ModelID())
}

func TestPipelineModes(t *testing.T) {
	ctx := context.Background()
	s := testServices()

	p, err := s.Pipeline(ctx, config.Config{UserID: "test_user"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = s.Pipeline(ctx, config.Config{UserID: "test_user", Local: true, ModelID: "m"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestSeederTables(t *testing.T) {
	t.Setenv("FUNCTION_CATALOG_TABLE", "catalog-test")
	assert.NotNil(t, testServices().Seeder(nil))
}
