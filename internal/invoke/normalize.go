package invoke

import (
	"encoding/json"
	"fmt"
	"strings"

	"finassist/internal/finance"
)

// StatusError is an HTTP-style failure wrapped inside a function payload.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// Normalize turns any function payload into one flat object. It unwraps
// {"statusCode", "body"} envelopes whose body may be a JSON string or an object,
// and reports envelopes with status >= 400 as *StatusError.
func Normalize(raw []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return map[string]any{}, nil
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	status, ok := payload["statusCode"].(float64)
	if !ok {
		return payload, nil
	}

	inner := map[string]any{}
	switch b := payload["body"].(type) {
	case string:
		if strings.TrimSpace(b) != "" {
			if err := json.Unmarshal([]byte(b), &inner); err != nil {
				inner = map[string]any{"message": b}
			}
		}
	case map[string]any:
		inner = b
	}

	if status >= 400 {
		msg, _ := inner["error"].(string)
		if msg == "" {
			msg, _ = inner["message"].(string)
		}
		return inner, &StatusError{StatusCode: int(status), Message: msg}
	}
	return inner, nil
}

// MatchFromPayload reads the function-matcher reply in any of the shapes it has
// used: {"function_id": id|null}, {"matched_function": {...}}, or either of
// those inside a status envelope. A 404 envelope means no match.
func MatchFromPayload(raw []byte) (finance.MatchResult, error) {
	payload, err := Normalize(raw)
	if err != nil {
		if se, ok := err.(*StatusError); ok && se.StatusCode == 404 {
			return finance.NoMatch(), nil
		}
		return finance.NoMatch(), &finance.MatchError{Reason: "remote matcher", Err: err}
	}

	res := finance.NoMatch()
	if params, ok := payload["parameters"].(map[string]any); ok {
		res.Parameters = params
	}

	src := payload
	if mf, ok := payload["matched_function"].(map[string]any); ok {
		src = mf
	}
	if id, ok := src["function_id"].(string); ok {
		id = strings.TrimSpace(id)
		switch strings.ToLower(id) {
		case "", "none", "null":
		default:
			res.FunctionID = id
		}
	}
	return res, nil
}
