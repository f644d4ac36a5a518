package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/catalog"
	"finassist/internal/finance"
	"finassist/internal/llm"
	"finassist/internal/logging"
)

const (
	maxTokens   = 100
	temperature = 0.1
)

var nullSentinels = map[string]bool{
	"null":     true,
	"none":     true,
	"no match": true,
}

// ErrEmptyCatalog is returned by Route when there is nothing to match against.
var ErrEmptyCatalog = errors.New("function catalog is empty")

// Matcher picks the catalog function that best fits a free-text request.
type Matcher struct {
	llm llm.Completer
	log *zap.Logger
}

func New(c llm.Completer, log *zap.Logger) *Matcher {
	return &Matcher{llm: c, log: logging.OrNop(log)}
}

// Match returns a verified function id, an empty result when nothing fits,
// or a *finance.MatchError when the model could not be consulted.
func (m *Matcher) Match(ctx context.Context, prompt string, fns []finance.FunctionDescriptor) (finance.MatchResult, error) {
	text, err := m.llm.Complete(ctx, BuildPrompt(prompt, fns), maxTokens, temperature)
	if err != nil {
		return finance.NoMatch(), &finance.MatchError{Reason: "inference call", Err: err}
	}

	id, ok := normalize(text)
	if !ok {
		return finance.NoMatch(), &finance.MatchError{Reason: "empty response"}
	}
	if nullSentinels[id] {
		m.log.Info("no function matched", zap.String("prompt", prompt))
		return finance.NoMatch(), nil
	}

	for _, fn := range fns {
		if fn.FunctionID == id {
			m.log.Info("matched function", zap.String("function_id", id), zap.String("prompt", prompt))
			return finance.MatchResult{FunctionID: id, Parameters: map[string]any{}}, nil
		}
	}

	m.log.Warn("model returned unknown function id",
		zap.String("function_id", llm.Truncate(id, 80)),
		zap.String("prompt", prompt),
	)
	return finance.NoMatch(), nil
}

// BuildPrompt renders the single instruction prompt sent to the model.
func BuildPrompt(prompt string, fns []finance.FunctionDescriptor) string {
	var sb strings.Builder
	sb.WriteString("You are a function matcher for a financial tools system. ")
	sb.WriteString("Your job is to analyze a user request and decide which function should handle it.\n\n")
	sb.WriteString("Available functions:\n")
	sb.WriteString(Listing(fns))
	sb.WriteString("\nRules for matching:\n")
	sb.WriteString("1. Match similar phrases and variations (e.g. 'financial tools', 'financial products' and 'available loans' all describe the same capability).\n")
	sb.WriteString("2. Consider the intent behind the request, not just the exact wording.\n")
	sb.WriteString("3. Choose the most specific function if more than one could handle the request.\n")
	sb.WriteString("4. Respond with only the function_id of the most appropriate function, or null if none match.\n\n")
	fmt.Fprintf(&sb, "User request: %s\n\n", prompt)
	sb.WriteString("Function ID:")
	return sb.String()
}

// Listing renders one "- id: title. description" line per descriptor.
func Listing(fns []finance.FunctionDescriptor) string {
	var sb strings.Builder
	for _, fn := range fns {
		desc := strings.TrimSpace(fn.Description)
		title := strings.TrimSuffix(strings.TrimSpace(fn.Title), ".")
		switch {
		case title != "" && desc != "":
			fmt.Fprintf(&sb, "- %s: %s. %s\n", fn.FunctionID, title, desc)
		case title != "":
			fmt.Fprintf(&sb, "- %s: %s\n", fn.FunctionID, title)
		default:
			fmt.Fprintf(&sb, "- %s: %s\n", fn.FunctionID, desc)
		}
	}
	return sb.String()
}

// normalize keeps the first non-empty line, strips quoting and a trailing period, lowercases.
func normalize(text string) (string, bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ".")
		line = strings.Trim(line, "`\"'")
		line = strings.TrimSuffix(line, ".")
		line = strings.ToLower(strings.TrimSpace(line))
		if line != "" {
			return line, true
		}
	}
	return "", false
}

// Router resolves a request without the caller handling the catalog.
type Router interface {
	Route(ctx context.Context, prompt string) (finance.MatchResult, error)
}

// CatalogRouter matches against the current catalog snapshot.
type CatalogRouter struct {
	catalog catalog.Source
	matcher *Matcher
}

func NewCatalogRouter(src catalog.Source, m *Matcher) *CatalogRouter {
	return &CatalogRouter{catalog: src, matcher: m}
}

func (r *CatalogRouter) Route(ctx context.Context, prompt string) (finance.MatchResult, error) {
	res, _, err := r.RouteWithCatalog(ctx, prompt)
	return res, err
}

// RouteWithCatalog also returns the snapshot the result was verified against.
func (r *CatalogRouter) RouteWithCatalog(ctx context.Context, prompt string) (finance.MatchResult, []finance.FunctionDescriptor, error) {
	fns, err := r.Catalog(ctx)
	if err != nil {
		return finance.NoMatch(), nil, err
	}
	res, err := r.matcher.Match(ctx, prompt, fns)
	return res, fns, err
}

// Catalog returns the snapshot Route would match against.
func (r *CatalogRouter) Catalog(ctx context.Context) ([]finance.FunctionDescriptor, error) {
	fns, err := r.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if len(fns) == 0 {
		return nil, ErrEmptyCatalog
	}
	return fns, nil
}
