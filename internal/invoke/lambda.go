package invoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/logging"
)

type LambdaClient interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// call invokes a function synchronously and returns its raw payload.
// A function error is turned into a Go error carrying errorMessage.
func call(ctx context.Context, c LambdaClient, name string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	out, err := c.Invoke(ctx, &lambda.InvokeInput{
		FunctionName: aws.String(name),
		Payload:      body,
	})
	if err != nil {
		return nil, fmt.Errorf("lambda invoke %s: %w", name, err)
	}
	if out.FunctionError != nil {
		var fe struct {
			ErrorMessage string `json:"errorMessage"`
			ErrorType    string `json:"errorType"`
		}
		_ = json.Unmarshal(out.Payload, &fe)
		if fe.ErrorMessage == "" {
			fe.ErrorMessage = aws.ToString(out.FunctionError)
		}
		return nil, fmt.Errorf("lambda %s: %s", name, fe.ErrorMessage)
	}
	return out.Payload, nil
}

// LambdaInvoker reaches the deployed domain functions.
type LambdaInvoker struct {
	client    LambdaClient
	functions map[string]string
	log       *zap.Logger
}

// NewLambdaInvoker maps each domain to a function name or ARN.
func NewLambdaInvoker(c LambdaClient, functions map[string]string, log *zap.Logger) *LambdaInvoker {
	return &LambdaInvoker{client: c, functions: functions, log: logging.OrNop(log)}
}

func (l *LambdaInvoker) Invoke(ctx context.Context, domain string, payload map[string]any) (finance.ExecutionResult, error) {
	name, ok := l.functions[domain]
	if !ok || name == "" {
		return nil, fmt.Errorf("no function configured for domain %q", domain)
	}

	raw, err := call(ctx, l.client, name, payload)
	if err != nil {
		return nil, err
	}
	res, err := Normalize(raw)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("lambda %s: %w", name, se)
		}
		return nil, err
	}
	l.log.Debug("lambda invoked", zap.String("function", name), zap.Int("bytes", len(raw)))
	return res, nil
}

// RemoteRouter asks the deployed function-matcher instead of calling the model locally.
type RemoteRouter struct {
	client   LambdaClient
	function string
	userID   string
}

func NewRemoteRouter(c LambdaClient, function, userID string) *RemoteRouter {
	return &RemoteRouter{client: c, function: function, userID: userID}
}

func (r *RemoteRouter) Route(ctx context.Context, prompt string) (finance.MatchResult, error) {
	raw, err := call(ctx, r.client, r.function, map[string]any{"prompt": prompt, "user_id": r.userID})
	if err != nil {
		return finance.NoMatch(), &finance.MatchError{Reason: "remote matcher", Err: err}
	}
	return MatchFromPayload(raw)
}

// RemoteSummarizer hands already collected records to the deployed summarize function.
type RemoteSummarizer struct {
	client   LambdaClient
	function string
}

func NewRemoteSummarizer(c LambdaClient, function string) *RemoteSummarizer {
	return &RemoteSummarizer{client: c, function: function}
}

func (r *RemoteSummarizer) Summarize(ctx context.Context, recs finance.Records) (string, error) {
	raw, err := call(ctx, r.client, r.function, map[string]any{"data": recs})
	if err != nil {
		return "", err
	}
	payload, err := Normalize(raw)
	if err != nil {
		return "", fmt.Errorf("lambda %s: %w", r.function, err)
	}
	text, _ := payload["summary"].(string)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("lambda %s: empty summary", r.function)
	}
	return text, nil
}
