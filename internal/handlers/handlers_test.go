package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finassist/internal/assistant"
	"finassist/internal/catalog"
	"finassist/internal/finance"
	"finassist/internal/matcher"
)

type fakeGoals struct {
	list    []finance.Record
	putUser string
	putGoal finance.Record
	delUser string
	delID   string
	err     error
}

func (f *fakeGoals) List(_ context.Context, userID string) ([]finance.Record, error) {
	return f.list, f.err
}

func (f *fakeGoals) Put(_ context.Context, userID string, goal finance.Record) (finance.Record, error) {
	f.putUser, f.putGoal = userID, goal
	stored := finance.Record{"goal_id": "g-new"}
	for k, v := range goal {
		stored[k] = v
	}
	return stored, f.err
}

func (f *fakeGoals) Delete(_ context.Context, userID, goalID string) error {
	f.delUser, f.delID = userID, goalID
	return f.err
}

type fakeNotifier struct {
	goals []finance.Record
	err   error
}

func (f *fakeNotifier) GoalReached(_ context.Context, _ string, goal finance.Record) (bool, error) {
	f.goals = append(f.goals, goal)
	return f.err == nil, f.err
}

func TestGoalsActions(t *testing.T) {
	store := &fakeGoals{list: []finance.Record{{"name": "Trip"}}}
	notifier := &fakeNotifier{}
	h := NewGoals(store, notifier, nil)
	ctx := context.Background()

	res, err := h.Handle(ctx, DomainRequest{Action: "get", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, finance.ExecutionResult{"goals": store.list}, res)

	goal := finance.Record{"name": "Vacation", "target_amount": 5000.0, "current_amount": 5000.0}
	res, err = h.Handle(ctx, DomainRequest{Action: "put", UserID: "u1", Goal: goal})
	require.NoError(t, err)
	assert.Equal(t, "put success", res["status"])
	assert.Equal(t, "g-new", res["goal_id"])
	assert.Equal(t, goal, store.putGoal)
	assert.Len(t, notifier.goals, 1)

	res, err = h.Handle(ctx, DomainRequest{Action: "delete", GoalID: "g-1"})
	require.NoError(t, err)
	assert.Equal(t, finance.ExecutionResult{"status": "delete success"}, res)
	assert.Equal(t, DefaultUserID, store.delUser)
	assert.Equal(t, "g-1", store.delID)

	_, err = h.Handle(ctx, DomainRequest{Action: "archive"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestGoalsAlertFailureDoesNotFailPut(t *testing.T) {
	h := NewGoals(&fakeGoals{}, &fakeNotifier{err: errors.New("sns down")}, nil)
	res, err := h.Handle(context.Background(), DomainRequest{Action: "put", UserID: "u1", Goal: finance.Record{"name": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "put success", res["status"])
}

func TestGoalsStoreError(t *testing.T) {
	cause := errors.New("throttled")
	_, err := NewGoals(&fakeGoals{err: cause}, nil, nil).Handle(context.Background(), DomainRequest{Action: "get"})
	assert.ErrorIs(t, err, cause)
}

type listerFunc func(ctx context.Context, userID string) ([]finance.Record, error)

func (f listerFunc) List(ctx context.Context, userID string) ([]finance.Record, error) {
	return f(ctx, userID)
}

type productsFunc func(ctx context.Context) ([]finance.Record, error)

func (f productsFunc) List(ctx context.Context) ([]finance.Record, error) { return f(ctx) }

func TestSubscriptionsAndProducts(t *testing.T) {
	var gotUser string
	subs := NewSubscriptions(listerFunc(func(_ context.Context, u string) ([]finance.Record, error) {
		gotUser = u
		return []finance.Record{{"name": "Spotify"}}, nil
	}), nil)
	res, err := subs.Handle(context.Background(), DomainRequest{UserID: "test_user"})
	require.NoError(t, err)
	assert.Equal(t, "test_user", gotUser)
	assert.Len(t, res["subscriptions"], 1)

	_, err = subs.Handle(context.Background(), DomainRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultUserID, gotUser)

	products := NewProducts(productsFunc(func(context.Context) ([]finance.Record, error) {
		return []finance.Record{{"name": "Mortgage"}, {"name": "Auto Loan"}}, nil
	}), nil)
	res, err = products.Handle(context.Background(), DomainRequest{})
	require.NoError(t, err)
	assert.Len(t, res["products"], 2)
}

func TestDecodeDomainRequest(t *testing.T) {
	req, err := DecodeDomainRequest(map[string]any{
		"action":  "put",
		"user_id": "u1",
		"goal":    map[string]any{"name": "Car", "target_amount": 8000},
		"extra":   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "put", req.Action)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, finance.Record{"name": "Car", "target_amount": 8000.0}, req.Goal)
}

type fakeLLM struct{ reply string }

func (f fakeLLM) Complete(context.Context, string, int, float64) (string, error) { return f.reply, nil }

func TestFunctionMatcher(t *testing.T) {
	router := matcher.NewCatalogRouter(catalog.Static(catalog.Functions), matcher.New(fakeLLM{reply: "get_products"}, nil))
	h := NewFunctionMatcher(router, nil)

	out, err := h.Handle(context.Background(), MatchRequest{Prompt: "what loans are there", UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, out.FunctionID)
	assert.Equal(t, "get_products", *out.FunctionID)
	assert.Equal(t, "Get Financial Products", out.Title)
	assert.Equal(t, "u1", out.Parameters["user_id"])

	_, err = h.Handle(context.Background(), MatchRequest{Prompt: "  "})
	assert.ErrorIs(t, err, ErrNoPrompt)
}

// rotatingSource returns a different catalog on every List call.
type rotatingSource struct {
	calls     int
	snapshots [][]finance.FunctionDescriptor
}

func (r *rotatingSource) List(context.Context) ([]finance.FunctionDescriptor, error) {
	s := r.snapshots[r.calls%len(r.snapshots)]
	r.calls++
	return s, nil
}

func TestFunctionMatcherDescribesFromVerifiedSnapshot(t *testing.T) {
	src := &rotatingSource{snapshots: [][]finance.FunctionDescriptor{
		{{FunctionID: "get_products", Title: "Products v1", Description: "first"}},
		{{FunctionID: "get_products", Title: "Products v2", Description: "second"}},
	}}
	router := matcher.NewCatalogRouter(src, matcher.New(fakeLLM{reply: "get_products"}, nil))

	out, err := NewFunctionMatcher(router, nil).Handle(context.Background(), MatchRequest{Prompt: "loans"})
	require.NoError(t, err)
	require.NotNil(t, out.FunctionID)
	assert.Equal(t, 1, src.calls)
	assert.Equal(t, "Products v1", out.Title)
	assert.Equal(t, "first", out.Description)
}

func TestFunctionMatcherNoMatchIsNull(t *testing.T) {
	router := matcher.NewCatalogRouter(catalog.Static(catalog.Functions), matcher.New(fakeLLM{reply: "none"}, nil))
	out, err := NewFunctionMatcher(router, nil).Handle(context.Background(), MatchRequest{Prompt: "weather"})
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"function_id":null,"parameters":{}}`, string(b))
}

func TestFunctionMatcherEmptyCatalog(t *testing.T) {
	router := matcher.NewCatalogRouter(catalog.Static(nil), matcher.New(fakeLLM{reply: "none"}, nil))
	_, err := NewFunctionMatcher(router, nil).Handle(context.Background(), MatchRequest{Prompt: "hi"})
	assert.ErrorIs(t, err, matcher.ErrEmptyCatalog)
}

type fakeSummarizer struct{ got finance.Records }

func (f *fakeSummarizer) Summarize(_ context.Context, recs finance.Records) (string, error) {
	f.got = recs
	return "summary", nil
}

type fakeExec struct{ ids []string }

func (f *fakeExec) Execute(_ context.Context, id string, params map[string]any) (finance.ExecutionResult, error) {
	f.ids = append(f.ids, id+":"+params["user_id"].(string))
	return finance.ExecutionResult{}, nil
}

func TestSummarizeHandler(t *testing.T) {
	sum := &fakeSummarizer{}
	exec := &fakeExec{}
	h := NewSummarize(sum, exec, nil)

	data := &finance.Records{Goals: []finance.Record{{"name": "Trip"}}}
	out, err := h.Handle(context.Background(), SummarizeRequest{Data: data})
	require.NoError(t, err)
	assert.Equal(t, "summary", out.Summary)
	assert.Empty(t, exec.ids)
	assert.Equal(t, *data, sum.got)

	_, err = h.Handle(context.Background(), SummarizeRequest{UserID: "u9"})
	require.NoError(t, err)
	assert.Equal(t, []string{"get_subscriptions:u9", "get_products:u9", "get_goals:u9"}, exec.ids)
}

type fakeAsker struct {
	user, prompt string
}

func (f *fakeAsker) Ask(_ context.Context, userID, prompt string, _ assistant.Options) assistant.Outcome {
	f.user, f.prompt = userID, prompt
	return assistant.Outcome{Kind: assistant.KindResult, FunctionID: "get_goals", Text: "No goals found."}
}

func authed(body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		Body: body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			Authorizer: &events.APIGatewayV2HTTPRequestContextAuthorizerDescription{
				JWT: &events.APIGatewayV2HTTPRequestContextAuthorizerJWTDescription{
					Claims: map[string]string{"sub": "cognito-sub-1"},
				},
			},
		},
	}
}

func TestAskHandler(t *testing.T) {
	asker := &fakeAsker{}
	h := NewAskHandler(asker, nil)

	resp, err := h.Handle(context.Background(), authed(`{"question":" my goals "}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"type":"result","function_id":"get_goals","text":"No goals found."}`, resp.Body)
	assert.Equal(t, "cognito-sub-1", asker.user)
	assert.Equal(t, "my goals", asker.prompt)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
}

func TestAskHandlerRejects(t *testing.T) {
	h := NewAskHandler(&fakeAsker{}, nil)

	resp, _ := h.Handle(context.Background(), authed(`not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.Handle(context.Background(), authed(`{"question":""}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `{"error":"question_required"}`, resp.Body)

	resp, _ = h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{Body: `{"question":"hi"}`})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	h := NewHealth("", "ssm:/finassist/model-id", map[string]string{"goals": "financial_goals"})

	resp, err := h.Handle(context.Background(), events.APIGatewayV2HTTPRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true,"service":"finassist","version":"dev","model":"ssm:/finassist/model-id","tables":{"goals":"financial_goals"}}`, resp.Body)
}
