package handlers

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/logging"
	"finassist/internal/matcher"
)

var ErrNoPrompt = errors.New("no prompt provided")

type MatchRequest struct {
	Prompt string `json:"prompt"`
	UserID string `json:"user_id,omitempty"`
}

// MatchResponse carries a null function_id when nothing matched.
type MatchResponse struct {
	FunctionID  *string        `json:"function_id"`
	Parameters  map[string]any `json:"parameters"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
}

type FunctionMatcher struct {
	router *matcher.CatalogRouter
	log    *zap.Logger
}

func NewFunctionMatcher(r *matcher.CatalogRouter, log *zap.Logger) *FunctionMatcher {
	return &FunctionMatcher{router: r, log: logging.OrNop(log)}
}

func (h *FunctionMatcher) Handle(ctx context.Context, req MatchRequest) (MatchResponse, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return MatchResponse{}, ErrNoPrompt
	}

	res, fns, err := h.router.RouteWithCatalog(ctx, prompt)
	if err != nil {
		h.log.Error("match failed", zap.Error(err))
		return MatchResponse{}, err
	}

	out := MatchResponse{Parameters: res.Parameters}
	if out.Parameters == nil {
		out.Parameters = map[string]any{}
	}
	if u := strings.TrimSpace(req.UserID); u != "" {
		out.Parameters["user_id"] = u
	}
	if !res.Matched() {
		return out, nil
	}

	id := res.FunctionID
	out.FunctionID = &id
	if d := describe(fns, id); d != nil {
		out.Title = d.Title
		out.Description = d.Description
	}
	return out, nil
}

func describe(fns []finance.FunctionDescriptor, id string) *finance.FunctionDescriptor {
	for i := range fns {
		if fns[i].FunctionID == id {
			return &fns[i]
		}
	}
	return nil
}
