package assistant

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/formatter"
	"finassist/internal/logging"
	"finassist/internal/matcher"
)

const (
	UnmatchedMessage = "🤷‍♂️ I'm not equipped to help with that request. Try rephrasing or ask about subscriptions, products, or goals."
	EmptyMessage     = "Please provide a request."
	errorPrefix      = "❌ Error: "
)

// Outcome kinds.
const (
	KindResult  = "result"
	KindNoMatch = "no_match"
	KindError   = "error"
)

type Executor interface {
	Execute(ctx context.Context, functionID string, params map[string]any) (finance.ExecutionResult, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, recs finance.Records) (string, error)
}

// Outcome is what the front end prints. Text is always set.
type Outcome struct {
	Kind       string                  `json:"type"`
	FunctionID string                  `json:"function_id,omitempty"`
	Text       string                  `json:"text"`
	Raw        finance.ExecutionResult `json:"-"`
	Err        error                   `json:"-"`
}

type Options struct {
	// SkipExecution stops after matching.
	SkipExecution bool
}

// Pipeline chains matcher, executor and formatter (or summarizer) for one request.
type Pipeline struct {
	router     matcher.Router
	exec       Executor
	summarizer Summarizer
	log        *zap.Logger
}

func New(r matcher.Router, exec Executor, s Summarizer, log *zap.Logger) *Pipeline {
	return &Pipeline{router: r, exec: exec, summarizer: s, log: logging.OrNop(log)}
}

// Ask runs one request for userID. Every failure is turned into user-facing text.
func (p *Pipeline) Ask(ctx context.Context, userID, prompt string, opts Options) Outcome {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Outcome{Kind: KindError, Text: EmptyMessage}
	}

	match, err := p.router.Route(ctx, prompt)
	if err != nil {
		return p.fail("", err)
	}
	if !match.Matched() {
		return Outcome{Kind: KindNoMatch, Text: UnmatchedMessage}
	}
	id := match.FunctionID

	if opts.SkipExecution {
		return Outcome{Kind: KindResult, FunctionID: id, Text: "Matched function: " + id}
	}

	params := make(map[string]any, len(match.Parameters)+1)
	for k, v := range match.Parameters {
		params[k] = v
	}
	if _, ok := params["user_id"]; !ok && userID != "" {
		params["user_id"] = userID
	}

	if id == finance.FuncSummarize {
		return p.summarize(ctx, params)
	}

	raw, err := p.exec.Execute(ctx, id, params)
	if err != nil {
		return p.fail(id, err)
	}
	text, err := formatter.Format(raw, id)
	if err != nil {
		return p.fail(id, err)
	}
	return Outcome{Kind: KindResult, FunctionID: id, Text: text, Raw: raw}
}

func (p *Pipeline) summarize(ctx context.Context, params map[string]any) Outcome {
	if p.summarizer == nil {
		return p.fail(finance.FuncSummarize, errors.New("summarizer is not configured"))
	}
	recs, err := Collect(ctx, p.exec, params)
	if err != nil {
		return p.fail(finance.FuncSummarize, err)
	}
	text, err := p.summarizer.Summarize(ctx, recs)
	if err != nil {
		return p.fail(finance.FuncSummarize, err)
	}
	return Outcome{Kind: KindResult, FunctionID: finance.FuncSummarize, Text: text}
}

// Collect reads all three domains for a summary.
func Collect(ctx context.Context, exec Executor, params map[string]any) (finance.Records, error) {
	var recs finance.Records
	for _, step := range []struct {
		id, domain string
		dst        *[]finance.Record
	}{
		{finance.FuncGetSubscriptions, finance.DomainSubscriptions, &recs.Subscriptions},
		{finance.FuncGetProducts, finance.DomainProducts, &recs.Products},
		{finance.FuncGetGoals, finance.DomainGoals, &recs.Goals},
	} {
		raw, err := exec.Execute(ctx, step.id, params)
		if err != nil {
			return finance.Records{}, err
		}
		*step.dst = Records(formatter.Items(raw, step.domain))
	}
	return recs, nil
}

// Records keeps the object entries of a raw list. The result is never nil.
func Records(items []any) []finance.Record {
	out := make([]finance.Record, 0, len(items))
	for _, it := range items {
		if r, ok := it.(map[string]any); ok {
			out = append(out, r)
		}
	}
	return out
}

func (p *Pipeline) fail(id string, err error) Outcome {
	p.log.Error("request failed", zap.String("function_id", id), zap.Error(err))
	return Outcome{Kind: KindError, FunctionID: id, Text: ErrorText(err), Err: err}
}

// ErrorText is the apology shown for any failure.
func ErrorText(err error) string {
	return errorPrefix + err.Error()
}
