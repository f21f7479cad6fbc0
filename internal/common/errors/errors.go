// Package errors provides standardized error handling for the report client,
// the tool server and BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	ErrCodeCredentialMissing    ErrorCode = "CREDENTIAL_MISSING"

	ErrCodeSchemaValidationFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeInvalidPayload         ErrorCode = "INVALID_PAYLOAD"

	ErrCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRateLimited   ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeLLMRequestFailed ErrorCode = "LLM_REQUEST_FAILED"
	ErrCodeLLMEmptyResponse ErrorCode = "LLM_EMPTY_RESPONSE"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeToolNotFound        ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeToolExecutionFailed ErrorCode = "TOOL_EXECUTION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so errors.Is keeps working on
// sentinels wrapped by a constructor.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newStandardError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewConfigurationError reports an invalid configuration value.
func NewConfigurationError(details string) *StandardError {
	return newStandardError(ErrCodeConfigurationInvalid, "Invalid configuration", details, false, nil)
}

// NewCredentialMissingError is fatal at construction time and never retried.
func NewCredentialMissingError(envVar string, cause error) *StandardError {
	return newStandardError(ErrCodeCredentialMissing,
		"API credential not set",
		fmt.Sprintf("%s not set. Add it to your environment or .env", envVar),
		false, cause)
}

// NewSchemaValidationError carries field-level failures in Metadata["fields"].
func NewSchemaValidationError(record string, fields []string) *StandardError {
	err := newStandardError(ErrCodeSchemaValidationFailed,
		"Record failed schema validation",
		fmt.Sprintf("%s: %s", record, strings.Join(fields, "; ")),
		false, nil)
	err.Metadata = map[string]interface{}{"record": record, "fields": fields}
	return err
}

func NewInvalidPayloadError(details string) *StandardError {
	return newStandardError(ErrCodeInvalidPayload, "Invalid job payload", details, false, nil)
}

func NewLLMTimeoutError(cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return newStandardError(ErrCodeLLMTimeout, "Completion endpoint timed out", details, true, cause)
}

func NewLLMRateLimitedError(cause error) *StandardError {
	return newStandardError(ErrCodeLLMRateLimited, "Completion endpoint rate limited", cause.Error(), true, cause)
}

func NewLLMRequestFailedError(cause error) *StandardError {
	return newStandardError(ErrCodeLLMRequestFailed, "Completion request failed", cause.Error(), true, cause)
}

func NewLLMEmptyResponseError(model string, cause error) *StandardError {
	return newStandardError(ErrCodeLLMEmptyResponse, "Completion returned no choices",
		fmt.Sprintf("model: %s", model), true, cause)
}

func NewCacheUnavailableError(cause error) *StandardError {
	return newStandardError(ErrCodeCacheUnavailable, "Report cache unavailable", cause.Error(), true, cause)
}

func NewToolNotFoundError(name string) *StandardError {
	return newStandardError(ErrCodeToolNotFound, "Tool not registered", fmt.Sprintf("tool: %s", name), false, nil)
}

func NewToolExecutionError(name string, cause error) *StandardError {
	err := newStandardError(ErrCodeToolExecutionFailed, "Tool execution failed", cause.Error(), false, cause)
	err.Metadata = map[string]interface{}{"tool": name}
	return err
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfigurationInvalid:   "CONFIGURATION_INVALID",
	ErrCodeCredentialMissing:      "CREDENTIAL_MISSING",
	ErrCodeSchemaValidationFailed: "SCHEMA_VALIDATION_FAILED",
	ErrCodeInvalidPayload:         "INVALID_PAYLOAD",
	ErrCodeLLMTimeout:             "LLM_TIMEOUT",
	ErrCodeLLMRateLimited:         "LLM_RATE_LIMITED",
	ErrCodeLLMRequestFailed:       "LLM_REQUEST_FAILED",
	ErrCodeLLMEmptyResponse:       "LLM_REQUEST_FAILED",
	ErrCodeCacheUnavailable:       "CACHE_UNAVAILABLE",
	ErrCodeToolNotFound:           "TOOL_NOT_FOUND",
	ErrCodeToolExecutionFailed:    "TOOL_EXECUTION_FAILED",
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeLLMRequestFailed,
		ErrCodeLLMEmptyResponse,
		ErrCodeCacheUnavailable:
		return 3

	case ErrCodeLLMRateLimited:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0 // configuration and validation errors are not retried
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups error codes for logs and dashboards.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION") || strings.Contains(codeStr, "CREDENTIAL"):
		return "CONFIG"
	case strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	case strings.Contains(codeStr, "TOOL"):
		return "TOOL"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
