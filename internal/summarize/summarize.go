package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/formatter"
	"finassist/internal/llm"
	"finassist/internal/logging"
)

const (
	maxTokens   = 500
	temperature = 0.7
)

var ErrNoData = errors.New("no data provided")

// Summarizer asks the model for a prose overview of a user's records.
type Summarizer struct {
	llm llm.Completer
	log *zap.Logger
}

func New(c llm.Completer, log *zap.Logger) *Summarizer {
	return &Summarizer{llm: c, log: logging.OrNop(log)}
}

// Summarize returns the model text as is.
func (s *Summarizer) Summarize(ctx context.Context, recs finance.Records) (string, error) {
	if recs.Empty() {
		return "", ErrNoData
	}
	out, err := s.llm.Complete(ctx, BuildPrompt(recs), maxTokens, temperature)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	s.log.Debug("summary generated",
		zap.Int("subscriptions", len(recs.Subscriptions)),
		zap.Int("products", len(recs.Products)),
		zap.Int("goals", len(recs.Goals)),
	)
	return out, nil
}

// BuildPrompt includes only the sections that are present.
func BuildPrompt(recs finance.Records) string {
	var sb strings.Builder
	sb.WriteString("You are a friendly financial assistant. Write a short, conversational summary of the user's ")
	sb.WriteString("financial situation based on the data below. Mention totals where they help, point out anything ")
	sb.WriteString("notable, and suggest a sensible next step.\n")

	if recs.Subscriptions != nil {
		sb.WriteString("\nSubscriptions:\n")
		writeLines(&sb, recs.Subscriptions, SubscriptionLine)
	}
	if recs.Products != nil {
		sb.WriteString("\nAvailable financial products:\n")
		writeLines(&sb, recs.Products, ProductLine)
	}
	if recs.Goals != nil {
		sb.WriteString("\nFinancial goals:\n")
		writeLines(&sb, recs.Goals, GoalLine)
	}
	sb.WriteString("\nSummary:")
	return sb.String()
}

func writeLines(sb *strings.Builder, recs []finance.Record, line func(finance.Record) string) {
	if len(recs) == 0 {
		sb.WriteString("(none)\n")
		return
	}
	for _, r := range recs {
		sb.WriteString(line(r))
		sb.WriteByte('\n')
	}
}

func SubscriptionLine(r finance.Record) string {
	return fmt.Sprintf("- %s: $%s (%s, %s)", field(r, "name"), field(r, "amount"), field(r, "frequency"), field(r, "category"))
}

func ProductLine(r finance.Record) string {
	return fmt.Sprintf("- %s: %s ($%s - $%s, %s%% for %s years)",
		field(r, "name"), field(r, "description"), field(r, "min_amount"), field(r, "max_amount"),
		field(r, "interest_rate"), field(r, "term_years"))
}

func GoalLine(r finance.Record) string {
	due := field(r, "due_date")
	if _, ok := formatter.Value(r, "due_date"); !ok {
		due = field(r, "target_date")
	}
	return fmt.Sprintf("- %s: $%s of $%s (%s complete, due %s)",
		field(r, "name"), field(r, "current_amount"), field(r, "target_amount"), Progress(r), due)
}

// Progress is current/target as a percentage with one decimal.
func Progress(r finance.Record) string {
	current, _ := finance.Number(r["current_amount"])
	target, ok := finance.Number(r["target_amount"])
	if !ok || target == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", current/target*100)
}

func field(r finance.Record, key string) string {
	if s, ok := formatter.Value(r, key); ok {
		return s
	}
	return "n/a"
}
