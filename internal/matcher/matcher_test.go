package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finassist/internal/catalog"
	"finassist/internal/finance"
)

type fakeLLM struct {
	reply       string
	err         error
	prompt      string
	maxTokens   int
	temperature float64
}

func (f *fakeLLM) Complete(_ context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	f.prompt, f.maxTokens, f.temperature = prompt, maxTokens, temperature
	return f.reply, f.err
}

var subsOnly = []finance.FunctionDescriptor{catalog.Functions[0]}

func TestMatchVerifiedID(t *testing.T) {
	llm := &fakeLLM{reply: "get_subscriptions"}
	res, err := New(llm, nil).Match(context.Background(), "show me my monthly subscriptions", subsOnly)
	require.NoError(t, err)
	assert.Equal(t, finance.FuncGetSubscriptions, res.FunctionID)
	assert.NotNil(t, res.Parameters)

	assert.Equal(t, 100, llm.maxTokens)
	assert.InDelta(t, 0.1, llm.temperature, 1e-9)
	assert.Contains(t, llm.prompt, "- get_subscriptions: Get User Subscriptions. Retrieves all active subscriptions")
	assert.Contains(t, llm.prompt, "User request: show me my monthly subscriptions")
	assert.Contains(t, llm.prompt, "most specific function")
	assert.Contains(t, llm.prompt, "or null if none match")
}

func TestMatchNormalizesReply(t *testing.T) {
	for _, reply := range []string{"  GET_SUBSCRIPTIONS\n", "`get_subscriptions`", "\"get_subscriptions\".", "\n\nget_subscriptions\nbecause you asked"} {
		res, err := New(&fakeLLM{reply: reply}, nil).Match(context.Background(), "subs", subsOnly)
		require.NoError(t, err, reply)
		assert.Equal(t, finance.FuncGetSubscriptions, res.FunctionID, reply)
	}
}

func TestMatchNullSentinels(t *testing.T) {
	for _, reply := range []string{"null", "None", "NO MATCH", "'none'"} {
		llm := &fakeLLM{reply: reply}
		res, err := New(llm, nil).Match(context.Background(), "what's the weather", subsOnly)
		require.NoError(t, err, reply)
		assert.False(t, res.Matched(), reply)
	}
}

func TestMatchRejectsUnverifiedID(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	res, err := New(&fakeLLM{reply: "get_nonexistent"}, zap.New(core)).Match(context.Background(), "x", subsOnly)
	require.NoError(t, err)
	assert.False(t, res.Matched())

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "model returned unknown function id", entry.Message)
	assert.Equal(t, "get_nonexistent", entry.ContextMap()["function_id"])
}

func TestMatchIDMustBeInSnapshot(t *testing.T) {
	// get_products is a real function, but not part of this snapshot.
	res, err := New(&fakeLLM{reply: "get_products"}, nil).Match(context.Background(), "loans", subsOnly)
	require.NoError(t, err)
	assert.False(t, res.Matched())
}

func TestMatchErrors(t *testing.T) {
	_, err := New(&fakeLLM{err: errors.New("bedrock down")}, nil).Match(context.Background(), "x", subsOnly)
	var me *finance.MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "inference call", me.Reason)

	_, err = New(&fakeLLM{reply: "  \n "}, nil).Match(context.Background(), "x", subsOnly)
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "empty response", me.Reason)
}

func TestListing(t *testing.T) {
	got := Listing([]finance.FunctionDescriptor{
		{FunctionID: "a", Title: "Alpha.", Description: "Does a."},
		{FunctionID: "b", Title: "Beta"},
		{FunctionID: "c", Description: "Only description"},
	})
	assert.Equal(t, "- a: Alpha. Does a.\n- b: Beta\n- c: Only description\n", got)
}

func TestCatalogRouter(t *testing.T) {
	r := NewCatalogRouter(catalog.Static(catalog.Functions), New(&fakeLLM{reply: "manage_goals"}, nil))
	res, err := r.Route(context.Background(), "add a goal")
	require.NoError(t, err)
	assert.Equal(t, finance.FuncManageGoals, res.FunctionID)

	_, err = NewCatalogRouter(catalog.Static(nil), New(&fakeLLM{}, nil)).Route(context.Background(), "x")
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}
