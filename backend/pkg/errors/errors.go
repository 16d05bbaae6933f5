package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeClassification represents mood classification errors
	ErrorTypeClassification ErrorType = "classification"
	// ErrorTypeAgent represents model/dispatch loop errors
	ErrorTypeAgent ErrorType = "agent"
	// ErrorTypeTool represents tool lookup and execution errors
	ErrorTypeTool ErrorType = "tool"
	// ErrorTypeStore represents session store and knowledge base errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// Kinds reported to callers in an ErrorResult
const (
	KindClassification     = "classification_error"
	KindUnknownTool        = "unknown_tool"
	KindToolExecution      = "tool_execution_error"
	KindLoopBudgetExceeded = "loop_budget_exceeded"
	KindModelCommunication = "model_communication_error"
	KindCancelled          = "cancelled"
	KindInvalidRequest     = "invalid_request"
	KindInternal           = "internal"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Classification Errors

// ErrClassificationFailed is returned when the mood classification call fails
type ErrClassificationFailed struct {
	*BaseError
	RawOutput string
}

func NewClassificationFailed(rawOutput string, err error) *ErrClassificationFailed {
	return &ErrClassificationFailed{
		BaseError: NewBaseError(ErrorTypeClassification, "mood classification failed", err),
		RawOutput: rawOutput,
	}
}

// Agent Errors

// ErrModelCommunication is returned when a model request fails or yields
// nothing usable at a decision step
type ErrModelCommunication struct {
	*BaseError
	Model    string
	Attempts int
	// StatusCode is the HTTP status of the failed request, 0 when none was received
	StatusCode int
}

func NewModelCommunication(model string, attempts int, err error) *ErrModelCommunication {
	return &ErrModelCommunication{
		BaseError: NewBaseError(ErrorTypeAgent, fmt.Sprintf("model request failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
	}
}

// ErrAgentNoResponse is returned when the model answers with neither text nor a tool call
var ErrAgentNoResponse = NewBaseError(ErrorTypeAgent, "no response from model", nil)

// ErrLoopBudgetExceeded is returned when the dispatch loop runs out of cycles
type ErrLoopBudgetExceeded struct {
	*BaseError
	MaxIterations int
}

func NewLoopBudgetExceeded(maxIterations int) *ErrLoopBudgetExceeded {
	return &ErrLoopBudgetExceeded{
		BaseError:     NewBaseError(ErrorTypeAgent, fmt.Sprintf("dispatch loop exceeded %d tool cycles", maxIterations), nil),
		MaxIterations: maxIterations,
	}
}

// Tool Errors

// ErrToolExecutionFailed is returned when tool execution fails
type ErrToolExecutionFailed struct {
	*BaseError
	ToolName string
	Reason   string
}

func NewToolExecutionFailed(toolName, reason string, err error) *ErrToolExecutionFailed {
	return &ErrToolExecutionFailed{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool execution failed: %s", toolName), err),
		ToolName:  toolName,
		Reason:    reason,
	}
}

// ErrToolNotFound is returned when a requested tool is not in the registry
type ErrToolNotFound struct {
	*BaseError
	ToolName string
}

func NewToolNotFound(toolName string) *ErrToolNotFound {
	return &ErrToolNotFound{
		BaseError: NewBaseError(ErrorTypeTool, fmt.Sprintf("tool not found: %s", toolName), nil),
		ToolName:  toolName,
	}
}

// Store Errors

// ErrStoreUnavailable is returned when a backing store cannot be reached
type ErrStoreUnavailable struct {
	*BaseError
	Store string
}

func NewStoreUnavailable(store string, err error) *ErrStoreUnavailable {
	return &ErrStoreUnavailable{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("%s unavailable", store), err),
		Store:     store,
	}
}

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	// typeOf is promoted through every error that embeds *BaseError
	for err != nil {
		if typed, ok := err.(interface{ typeOf() ErrorType }); ok && typed.typeOf() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

func (e *BaseError) typeOf() ErrorType { return e.Type }

// Kind maps an error to the kind string reported in an ErrorResult
func Kind(err error) string {
	var (
		notFound   *ErrToolNotFound
		budget     *ErrLoopBudgetExceeded
		model      *ErrModelCommunication
		toolFailed *ErrToolExecutionFailed
		classify   *ErrClassificationFailed
		cancelled  *ErrContextCancelled
	)
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &budget):
		return KindLoopBudgetExceeded
	case stderrors.As(err, &notFound):
		return KindUnknownTool
	case stderrors.As(err, &cancelled):
		return KindCancelled
	case stderrors.As(err, &model):
		return KindModelCommunication
	case stderrors.As(err, &toolFailed):
		return KindToolExecution
	case stderrors.As(err, &classify):
		return KindClassification
	case IsErrorType(err, ErrorTypeAgent):
		return KindModelCommunication
	default:
		return KindInternal
	}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var model *ErrModelCommunication
	if stderrors.As(err, &model) {
		// Client errors repeat on every attempt, except rate limiting
		if model.StatusCode >= 400 && model.StatusCode < 500 {
			return model.StatusCode == 429
		}
		return true
	}
	// Store outages are usually transient
	return IsErrorType(err, ErrorTypeStore)
}
