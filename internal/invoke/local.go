package invoke

import (
	"context"
	"fmt"

	"finassist/internal/finance"
	"finassist/internal/handlers"
)

// LocalInvoker runs the domain handlers in-process.
type LocalInvoker struct {
	funcs map[string]handlers.DomainFunc
}

func NewLocalInvoker(subs *handlers.Subscriptions, products *handlers.Products, goals *handlers.Goals) *LocalInvoker {
	return &LocalInvoker{funcs: map[string]handlers.DomainFunc{
		finance.DomainSubscriptions: subs.Handle,
		finance.DomainProducts:      products.Handle,
		finance.DomainGoals:         goals.Handle,
	}}
}

func (l *LocalInvoker) Invoke(ctx context.Context, domain string, payload map[string]any) (finance.ExecutionResult, error) {
	fn, ok := l.funcs[domain]
	if !ok {
		return nil, fmt.Errorf("no handler for domain %q", domain)
	}
	req, err := handlers.DecodeDomainRequest(payload)
	if err != nil {
		return nil, err
	}
	return fn(ctx, req)
}
