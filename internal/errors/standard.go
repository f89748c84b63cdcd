// Package errors provides standardized error values for tierforge synthesis.
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryType      ErrorCategory = "TYPE"
	CategoryConfig    ErrorCategory = "CONFIG"
	CategorySynthesis ErrorCategory = "SYNTHESIS"
)

// Error codes. Two errors match under errors.Is when their codes are equal.
const (
	CodeTypeMismatch       = "TYPE_MISMATCH"
	CodeRegistryExhausted  = "REGISTRY_EXHAUSTED"
	CodeInvalidWeight      = "INVALID_WEIGHT"
	CodeNoEligibleVariable = "NO_ELIGIBLE_VARIABLE"
	CodeBudgetExceeded     = "BUDGET_EXCEEDED"
	CodeUnknownBuiltin     = "UNKNOWN_BUILTIN"
	CodeFinalized          = "FINALIZED"
	CodePhaseOrder         = "PHASE_ORDER"
	CodeInvalidProfile     = "INVALID_PROFILE"
)

// Sentinels for errors.Is comparisons.
var (
	ErrTypeMismatch       = &StandardError{Category: CategoryType, Code: CodeTypeMismatch, Message: "type mismatch"}
	ErrRegistryExhausted  = &StandardError{Category: CategoryConfig, Code: CodeRegistryExhausted, Message: "registry has no positive weight"}
	ErrInvalidWeight      = &StandardError{Category: CategoryConfig, Code: CodeInvalidWeight, Message: "invalid weight"}
	ErrNoEligibleVariable = &StandardError{Category: CategorySynthesis, Code: CodeNoEligibleVariable, Message: "no eligible variable"}
	ErrBudgetExceeded     = &StandardError{Category: CategorySynthesis, Code: CodeBudgetExceeded, Message: "recursion budget exhausted"}
	ErrUnknownBuiltin     = &StandardError{Category: CategoryType, Code: CodeUnknownBuiltin, Message: "unknown builtin"}
	ErrFinalized          = &StandardError{Category: CategorySynthesis, Code: CodeFinalized, Message: "program already finalized"}
	ErrPhaseOrder         = &StandardError{Category: CategorySynthesis, Code: CodePhaseOrder, Message: "invalid phase transition"}
	ErrInvalidProfile     = &StandardError{Category: CategoryConfig, Code: CodeInvalidProfile, Message: "invalid profile"}
)

// StandardError provides a consistent error format
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

// Error implements the error interface
func (e *StandardError) Error() string {
	if e.Caller == "" {
		return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	}

	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// Is reports whether target carries the same error code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}

	return t.Code == e.Code
}

// NewStandardError creates a new standardized error
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller(1),
	}
}

func caller(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}

	if fn := runtime.FuncForPC(pc); fn != nil {
		return fn.Name()
	}

	return "unknown"
}

// Common error constructors
func TypeMismatch(operation, have, want string) *StandardError {
	return &StandardError{
		Category: CategoryType,
		Code:     CodeTypeMismatch,
		Message:  fmt.Sprintf("%s requires %s, got %s", operation, want, have),
		Context:  map[string]interface{}{"operation": operation, "have": have, "want": want},
		Caller:   caller(1),
	}
}

func RegistryExhausted(entries int) *StandardError {
	return &StandardError{
		Category: CategoryConfig,
		Code:     CodeRegistryExhausted,
		Message:  fmt.Sprintf("registry with %d entries has zero total weight", entries),
		Context:  map[string]interface{}{"entries": entries},
		Caller:   caller(1),
	}
}

func InvalidWeight(name string, weight int) *StandardError {
	return &StandardError{
		Category: CategoryConfig,
		Code:     CodeInvalidWeight,
		Message:  fmt.Sprintf("entry %q has non-positive weight %d", name, weight),
		Context:  map[string]interface{}{"name": name, "weight": weight},
		Caller:   caller(1),
	}
}

func UnknownBuiltin(name string) *StandardError {
	return &StandardError{
		Category: CategoryType,
		Code:     CodeUnknownBuiltin,
		Message:  fmt.Sprintf("builtin %q is not in the environment", name),
		Context:  map[string]interface{}{"name": name},
		Caller:   caller(1),
	}
}

func PhaseOrder(from, to string) *StandardError {
	return &StandardError{
		Category: CategorySynthesis,
		Code:     CodePhaseOrder,
		Message:  fmt.Sprintf("cannot move from %s to %s", from, to),
		Context:  map[string]interface{}{"from": from, "to": to},
		Caller:   caller(1),
	}
}

func InvalidProfile(field, reason string) *StandardError {
	return &StandardError{
		Category: CategoryConfig,
		Code:     CodeInvalidProfile,
		Message:  fmt.Sprintf("%s: %s", field, reason),
		Context:  map[string]interface{}{"field": field},
		Caller:   caller(1),
	}
}

// SynthesisError reports which template and generator unit faulted.
type SynthesisError struct {
	Template string
	Unit     string
	Err      error
}

func (e *SynthesisError) Error() string {
	switch {
	case e.Template != "" && e.Unit != "":
		return fmt.Sprintf("template %s, unit %s: %v", e.Template, e.Unit, e.Err)
	case e.Template != "":
		return fmt.Sprintf("template %s: %v", e.Template, e.Err)
	case e.Unit != "":
		return fmt.Sprintf("unit %s: %v", e.Unit, e.Err)
	default:
		return e.Err.Error()
	}
}

func (e *SynthesisError) Unwrap() error { return e.Err }
