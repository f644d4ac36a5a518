package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"finassist/internal/assistant"
	"finassist/internal/logging"
)

type Asker interface {
	Ask(ctx context.Context, userID, prompt string, opts assistant.Options) assistant.Outcome
}

type AskHandler struct {
	pipeline Asker
	log      *zap.Logger
}

func NewAskHandler(p Asker, log *zap.Logger) *AskHandler {
	return &AskHandler{pipeline: p, log: logging.OrNop(log)}
}

type AskRequest struct {
	Question      string `json:"question"`
	SkipExecution bool   `json:"skip_execution,omitempty"`
}

func (h *AskHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body AskRequest
	if err := json.Unmarshal([]byte(req.Body), &body); err != nil {
		return jsonErr(http.StatusBadRequest, "invalid_json", err), nil
	}
	body.Question = strings.TrimSpace(body.Question)
	if body.Question == "" {
		return jsonErr(http.StatusBadRequest, "question_required", nil), nil
	}

	sub, err := userSub(req)
	if err != nil {
		return jsonErr(http.StatusUnauthorized, "missing_user_sub", err), nil
	}

	out := h.pipeline.Ask(ctx, sub, body.Question, assistant.Options{SkipExecution: body.SkipExecution})
	h.log.Info("ask handled",
		zap.String("user_sub", sub),
		zap.String("type", out.Kind),
		zap.String("function_id", out.FunctionID),
	)
	return jsonOK(out), nil
}
