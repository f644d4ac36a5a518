package executor

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/logging"
)

// Invoker delivers one request to a domain accessor and returns its raw payload.
type Invoker interface {
	Invoke(ctx context.Context, domain string, payload map[string]any) (finance.ExecutionResult, error)
}

// Route is where a function id lands.
type Route struct {
	FunctionID string
	Domain     string
	Action     string
}

var routes = map[string]Route{
	finance.FuncGetSubscriptions: {finance.FuncGetSubscriptions, finance.DomainSubscriptions, finance.ActionGet},
	finance.FuncGetProducts:      {finance.FuncGetProducts, finance.DomainProducts, finance.ActionGet},
	finance.FuncGetGoals:         {finance.FuncGetGoals, finance.DomainGoals, finance.ActionGet},
	finance.FuncPutGoal:          {finance.FuncPutGoal, finance.DomainGoals, finance.ActionPut},
	finance.FuncDeleteGoal:       {finance.FuncDeleteGoal, finance.DomainGoals, finance.ActionDelete},
	// The generic alias only reads.
	finance.FuncManageGoals: {finance.FuncGetGoals, finance.DomainGoals, finance.ActionGet},
}

// Resolve looks up the route for id, following aliases.
func Resolve(id string) (Route, bool) {
	r, ok := routes[id]
	return r, ok
}

// FunctionIDs lists every routable id in sorted order.
func FunctionIDs() []string {
	ids := make([]string, 0, len(routes))
	for id := range routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Executor dispatches matched functions to their domain accessor.
type Executor struct {
	inv Invoker
	log *zap.Logger
}

func New(inv Invoker, log *zap.Logger) *Executor {
	return &Executor{inv: inv, log: logging.OrNop(log)}
}

// Execute runs functionID with a copy of params whose "action" is set by the route.
func (e *Executor) Execute(ctx context.Context, functionID string, params map[string]any) (finance.ExecutionResult, error) {
	route, ok := Resolve(functionID)
	if !ok {
		return nil, &finance.UnknownFunctionError{FunctionID: functionID}
	}

	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["action"] = route.Action

	e.log.Debug("executing function",
		zap.String("function_id", functionID),
		zap.String("resolved", route.FunctionID),
		zap.String("domain", route.Domain),
		zap.String("action", route.Action),
	)

	res, err := e.inv.Invoke(ctx, route.Domain, payload)
	if err != nil {
		return nil, &finance.ExecutionError{FunctionID: functionID, Message: err.Error(), Err: err}
	}
	if msg, ok := reportedError(res); ok {
		return nil, &finance.ExecutionError{FunctionID: functionID, Message: fmt.Sprintf("error from %s: %s", route.Domain, msg)}
	}
	return res, nil
}

// reportedError picks up failures a domain accessor returns inside its payload.
func reportedError(res finance.ExecutionResult) (string, bool) {
	for _, key := range []string{"errorMessage", "error"} {
		v, ok := res[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
		return fmt.Sprint(v), true
	}
	return "", false
}
