package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"finassist/internal/finance"
)

// Format renders an execution result for display. It performs no I/O and never mutates result.
// Ids are matched by prefix, so variants such as get_goals_v2 keep their listing.
func Format(result finance.ExecutionResult, functionID string) (string, error) {
	has := func(prefixes ...string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(functionID, p) {
				return true
			}
		}
		return false
	}

	switch {
	case has(finance.FuncGetSubscriptions):
		return listing(result, functionID, finance.DomainSubscriptions, "Subscriptions:", subscriptionLine)
	case has(finance.FuncGetProducts):
		return listing(result, functionID, finance.DomainProducts, "Available Products:", productLine)
	case has(finance.FuncGetGoals, finance.FuncManageGoals):
		return listing(result, functionID, finance.DomainGoals, "Financial Goals:", goalLine)
	case has(finance.FuncPutGoal, finance.FuncDeleteGoal):
		return "Operation successful: " + mutationMessage(result), nil
	default:
		return Pretty(result)
	}
}

// Pretty is the lossless fallback rendering.
func Pretty(result finance.ExecutionResult) (string, error) {
	b, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("format result: %w", err)
	}
	return string(b), nil
}

type lineFunc func(rec map[string]any) (string, string)

func listing(result finance.ExecutionResult, functionID, domain, header string, line lineFunc) (string, error) {
	items := Items(result, domain)
	if len(items) == 0 {
		return fmt.Sprintf("No %s found.", domain), nil
	}

	lines := make([]string, 0, len(items))
	for i, it := range items {
		rec, ok := it.(map[string]any)
		if !ok {
			return "", &finance.FormattingError{FunctionID: functionID, Index: i}
		}
		text, missing := line(rec)
		if missing != "" {
			return "", &finance.FormattingError{FunctionID: functionID, Index: i, Field: missing}
		}
		lines = append(lines, text)
	}
	return "\n" + header + "\n" + strings.Join(lines, "\n"), nil
}

// Items returns the list under the domain key, falling back to the raw scan key "Items".
func Items(result finance.ExecutionResult, domain string) []any {
	if items := asList(result[domain]); len(items) > 0 {
		return items
	}
	return asList(result["Items"])
}

func asList(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	default:
		return nil
	}
}

func subscriptionLine(r map[string]any) (string, string) {
	f, missing := fields(r, "name", "amount", "frequency")
	if missing != "" {
		return "", missing
	}
	return fmt.Sprintf("- %s: $%s (%s)", f[0], f[1], f[2]), ""
}

func productLine(r map[string]any) (string, string) {
	f, missing := fields(r, "name", "description", "min_amount", "max_amount")
	if missing != "" {
		return "", missing
	}
	return fmt.Sprintf("- %s: %s\n  Amount Range: $%s - $%s", f[0], f[1], f[2], f[3]), ""
}

func goalLine(r map[string]any) (string, string) {
	f, missing := fields(r, "name", "current_amount", "target_amount")
	if missing != "" {
		return "", missing
	}
	due, ok := Value(r, "due_date")
	if !ok {
		if due, ok = Value(r, "target_date"); !ok {
			return "", "due_date"
		}
	}
	return fmt.Sprintf("- %s: $%s / $%s (Due: %s)", f[0], f[1], f[2], due), ""
}

func mutationMessage(result finance.ExecutionResult) string {
	for _, key := range []string{"message", "status"} {
		if s, ok := Value(result, key); ok && s != "" {
			return s
		}
	}
	return "No message"
}

func fields(r map[string]any, keys ...string) ([]string, string) {
	out := make([]string, len(keys))
	for i, k := range keys {
		s, ok := Value(r, k)
		if !ok {
			return nil, k
		}
		out[i] = s
	}
	return out, ""
}

// Value renders a scalar field. Whole numbers print without a decimal point.
func Value(r map[string]any, key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case json.Number:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}
