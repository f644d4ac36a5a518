package finance

import "fmt"

// MatchError means the inference call failed or its answer could not be read.
type MatchError struct {
	Reason string
	Err    error
}

func (e *MatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("match failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("match failed: %s", e.Reason)
}

func (e *MatchError) Unwrap() error { return e.Err }

// UnknownFunctionError is returned for identifiers outside the routing table.
type UnknownFunctionError struct {
	FunctionID string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function id: %s", e.FunctionID)
}

// ExecutionError wraps a failure reported by a domain accessor.
type ExecutionError struct {
	FunctionID string
	Message    string
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("error executing function %s: %s", e.FunctionID, e.Message)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// FormattingError means a record lacks a field its listing needs.
type FormattingError struct {
	FunctionID string
	Index      int
	Field      string
}

func (e *FormattingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("format %s: record %d is not an object", e.FunctionID, e.Index)
	}
	return fmt.Sprintf("format %s: record %d is missing field %q", e.FunctionID, e.Index, e.Field)
}
