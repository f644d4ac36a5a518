package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/finance"
	"finassist/internal/logging"
)

// DefaultUserID is used when a direct invocation carries no user_id.
const DefaultUserID = "user-123"

var ErrUnknownAction = errors.New("unknown action")

// DomainRequest is the payload every domain function accepts.
type DomainRequest struct {
	Action string         `json:"action,omitempty"`
	UserID string         `json:"user_id,omitempty"`
	Goal   finance.Record `json:"goal,omitempty"`
	GoalID string         `json:"goal_id,omitempty"`
}

func (r DomainRequest) user() string {
	if u := strings.TrimSpace(r.UserID); u != "" {
		return u
	}
	return DefaultUserID
}

// DecodeDomainRequest converts a loosely typed payload into a DomainRequest.
func DecodeDomainRequest(payload map[string]any) (DomainRequest, error) {
	var req DomainRequest
	b, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(b, &req); err != nil {
		return req, fmt.Errorf("decode payload: %w", err)
	}
	return req, nil
}

type SubscriptionLister interface {
	List(ctx context.Context, userID string) ([]finance.Record, error)
}

type ProductLister interface {
	List(ctx context.Context) ([]finance.Record, error)
}

type GoalStore interface {
	List(ctx context.Context, userID string) ([]finance.Record, error)
	Put(ctx context.Context, userID string, goal finance.Record) (finance.Record, error)
	Delete(ctx context.Context, userID, goalID string) error
}

type GoalNotifier interface {
	GoalReached(ctx context.Context, userID string, goal finance.Record) (bool, error)
}

// DomainFunc is the signature shared by the three domain functions.
type DomainFunc func(ctx context.Context, req DomainRequest) (finance.ExecutionResult, error)

type Subscriptions struct {
	store SubscriptionLister
	log   *zap.Logger
}

func NewSubscriptions(store SubscriptionLister, log *zap.Logger) *Subscriptions {
	return &Subscriptions{store: store, log: logging.OrNop(log)}
}

func (h *Subscriptions) Handle(ctx context.Context, req DomainRequest) (finance.ExecutionResult, error) {
	recs, err := h.store.List(ctx, req.user())
	if err != nil {
		h.log.Error("list subscriptions", zap.String("user_id", req.user()), zap.Error(err))
		return nil, err
	}
	return finance.ExecutionResult{finance.DomainSubscriptions: recs}, nil
}

type Products struct {
	store ProductLister
	log   *zap.Logger
}

func NewProducts(store ProductLister, log *zap.Logger) *Products {
	return &Products{store: store, log: logging.OrNop(log)}
}

func (h *Products) Handle(ctx context.Context, _ DomainRequest) (finance.ExecutionResult, error) {
	recs, err := h.store.List(ctx)
	if err != nil {
		h.log.Error("list products", zap.Error(err))
		return nil, err
	}
	return finance.ExecutionResult{finance.DomainProducts: recs}, nil
}

type Goals struct {
	store    GoalStore
	notifier GoalNotifier
	log      *zap.Logger
}

// NewGoals builds the goals function. notifier may be nil.
func NewGoals(store GoalStore, notifier GoalNotifier, log *zap.Logger) *Goals {
	return &Goals{store: store, notifier: notifier, log: logging.OrNop(log)}
}

func (h *Goals) Handle(ctx context.Context, req DomainRequest) (finance.ExecutionResult, error) {
	user := req.user()

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case finance.ActionGet:
		recs, err := h.store.List(ctx, user)
		if err != nil {
			return nil, err
		}
		return finance.ExecutionResult{finance.DomainGoals: recs}, nil

	case finance.ActionPut:
		stored, err := h.store.Put(ctx, user, req.Goal)
		if err != nil {
			return nil, err
		}
		h.notify(ctx, user, stored)
		return finance.ExecutionResult{"status": "put success", "goal_id": stored["goal_id"]}, nil

	case finance.ActionDelete:
		if err := h.store.Delete(ctx, user, req.GoalID); err != nil {
			return nil, err
		}
		return finance.ExecutionResult{"status": "delete success"}, nil
	}

	return nil, ErrUnknownAction
}

// notify never fails the write that triggered it.
func (h *Goals) notify(ctx context.Context, user string, goal finance.Record) {
	if h.notifier == nil {
		return
	}
	if _, err := h.notifier.GoalReached(ctx, user, goal); err != nil {
		h.log.Warn("goal alert failed", zap.String("user_id", user), zap.Error(err))
	}
}
