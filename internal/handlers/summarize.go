package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"finassist/internal/assistant"
	"finassist/internal/finance"
	"finassist/internal/logging"
)

type SummarizeRequest struct {
	UserID string          `json:"user_id,omitempty"`
	Data   *finance.Records `json:"data,omitempty"`
}

type SummarizeResponse struct {
	Summary string `json:"summary"`
}

type Summarize struct {
	summarizer assistant.Summarizer
	exec       assistant.Executor
	log        *zap.Logger
}

// NewSummarize builds the summarize function. Without data in the request it
// reads the user's records through exec.
func NewSummarize(s assistant.Summarizer, exec assistant.Executor, log *zap.Logger) *Summarize {
	return &Summarize{summarizer: s, exec: exec, log: logging.OrNop(log)}
}

func (h *Summarize) Handle(ctx context.Context, req SummarizeRequest) (SummarizeResponse, error) {
	var recs finance.Records
	if req.Data != nil {
		recs = *req.Data
	} else {
		user := strings.TrimSpace(req.UserID)
		if user == "" {
			user = DefaultUserID
		}
		var err error
		recs, err = assistant.Collect(ctx, h.exec, map[string]any{"user_id": user})
		if err != nil {
			return SummarizeResponse{}, err
		}
	}

	text, err := h.summarizer.Summarize(ctx, recs)
	if err != nil {
		h.log.Error("summarize failed", zap.Error(err))
		return SummarizeResponse{}, err
	}
	return SummarizeResponse{Summary: text}, nil
}
