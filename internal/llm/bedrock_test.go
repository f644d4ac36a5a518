package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrockruntime "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBedrock struct {
	in   *bedrockruntime.InvokeModelInput
	body string
	err  error
}

func (f *fakeBedrock) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestCompleteSendsAnthropicPayload(t *testing.T) {
	fake := &fakeBedrock{body: `{"content":[{"type":"text","text":"  get_"},{"type":"tool_use"},{"type":"text","text":"goals \n"}]}`}
	c := NewClient(fake, "")

	text, err := c.Complete(context.Background(), "hello", 100, 0.1)
	require.NoError(t, err)
	assert.Equal(t, "get_goals", text)

	assert.Equal(t, DefaultModelID, aws.ToString(fake.in.ModelId))
	assert.Equal(t, "application/json", aws.ToString(fake.in.ContentType))

	var sent struct {
		Version     string  `json:"anthropic_version"`
		MaxTokens   int     `json:"max_tokens"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(fake.in.Body, &sent))
	assert.Equal(t, "bedrock-2023-05-31", sent.Version)
	assert.Equal(t, 100, sent.MaxTokens)
	assert.InDelta(t, 0.1, sent.Temperature, 1e-9)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
	assert.Equal(t, "hello", sent.Messages[0].Content[0].Text)
}

func TestCompleteErrors(t *testing.T) {
	_, err := NewClient(&fakeBedrock{err: errors.New("throttled")}, "m").Complete(context.Background(), "p", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")

	_, err = NewClient(&fakeBedrock{body: "not json"}, "m").Complete(context.Background(), "p", 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestNewClientModelID(t *testing.T) {
	assert.Equal(t, "custom", NewClient(nil, " custom ").ModelID())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "éé", Truncate("éé", 2))

	got := Truncate(strings.Repeat("é", 10), 3)
	assert.Equal(t, "ééé...", got)
	assert.True(t, utf8.ValidString(got))
}
