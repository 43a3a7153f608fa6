// Package errors provides standardized error handling for matching and pipeline workers.
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

// Matching errors
const (
	ErrCodeMissingMatrix       ErrorCode = "MISSING_MATRIX"
	ErrCodeMatrixSchemaInvalid ErrorCode = "MATRIX_SCHEMA_INVALID"
	ErrCodeMatchNotFound       ErrorCode = "MATCH_NOT_FOUND"
	ErrCodeInvalidDecision     ErrorCode = "INVALID_DECISION"
)

// Pipeline errors
const (
	ErrCodeInvalidStageTarget    ErrorCode = "INVALID_STAGE_TARGET"
	ErrCodeStageInUse            ErrorCode = "STAGE_IN_USE"
	ErrCodeDefaultStageProtected ErrorCode = "DEFAULT_STAGE_PROTECTED"
	ErrCodeDuplicateDefaultStage ErrorCode = "DUPLICATE_DEFAULT_STAGE"
	ErrCodeInvalidReorder        ErrorCode = "INVALID_REORDER"
	ErrCodeStageNotFound         ErrorCode = "STAGE_NOT_FOUND"
	ErrCodeApplicationNotFound   ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeDuplicateApplication  ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeTerminalStage         ErrorCode = "TERMINAL_STAGE"
	ErrCodeStageOrderViolation   ErrorCode = "STAGE_ORDER_VIOLATION"
)

// Infrastructure errors
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeInvalidInput             ErrorCode = "INVALID_INPUT"
	ErrCodeInternal                 ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any StandardError carrying the same code, so the sentinels
// below work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Sentinels for errors.Is checks.
var (
	ErrMissingMatrix         = &StandardError{Code: ErrCodeMissingMatrix}
	ErrMatrixSchemaInvalid   = &StandardError{Code: ErrCodeMatrixSchemaInvalid}
	ErrMatchNotFound         = &StandardError{Code: ErrCodeMatchNotFound}
	ErrInvalidDecision       = &StandardError{Code: ErrCodeInvalidDecision}
	ErrInvalidStageTarget    = &StandardError{Code: ErrCodeInvalidStageTarget}
	ErrStageInUse            = &StandardError{Code: ErrCodeStageInUse}
	ErrDefaultStageProtected = &StandardError{Code: ErrCodeDefaultStageProtected}
	ErrDuplicateDefaultStage = &StandardError{Code: ErrCodeDuplicateDefaultStage}
	ErrInvalidReorder        = &StandardError{Code: ErrCodeInvalidReorder}
	ErrStageNotFound         = &StandardError{Code: ErrCodeStageNotFound}
	ErrApplicationNotFound   = &StandardError{Code: ErrCodeApplicationNotFound}
	ErrDuplicateApplication  = &StandardError{Code: ErrCodeDuplicateApplication}
	ErrTerminalStage         = &StandardError{Code: ErrCodeTerminalStage}
	ErrStageOrderViolation   = &StandardError{Code: ErrCodeStageOrderViolation}
	ErrInvalidInput          = &StandardError{Code: ErrCodeInvalidInput}

	ErrQueryExecutionFailed   = &StandardError{Code: ErrCodeQueryExecutionFailed}
	ErrDatabaseInsertFailed   = &StandardError{Code: ErrCodeDatabaseInsertFailed}
	ErrNotificationSendFailed = &StandardError{Code: ErrCodeNotificationSendFailed}
	ErrSearchQueryFailed      = &StandardError{Code: ErrCodeSearchQueryFailed}
)

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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingMatrixError reports that a candidate or job matrix has not been generated yet.
func NewMissingMatrixError(side, id string) *StandardError {
	e := newError(ErrCodeMissingMatrix, "Matrix not generated yet", fmt.Sprintf("%s: %s", side, id), false)
	e.Metadata = map[string]interface{}{"side": side, "id": id}
	return e
}

// NewMatrixSchemaInvalidError reports a stored matrix that does not match the expected schema.
func NewMatrixSchemaInvalidError(side, id string, problems []string) *StandardError {
	e := newError(ErrCodeMatrixSchemaInvalid, "Matrix payload failed schema validation",
		fmt.Sprintf("%s: %s: %s", side, id, strings.Join(problems, "; ")), false)
	e.Metadata = map[string]interface{}{"side": side, "id": id}
	return e
}

func NewMatchNotFoundError(matchID string) *StandardError {
	return newError(ErrCodeMatchNotFound, "Match not found", fmt.Sprintf("matchId: %s", matchID), false)
}

func NewInvalidDecisionError(decision string) *StandardError {
	return newError(ErrCodeInvalidDecision, "Unsupported match decision", fmt.Sprintf("decision: %s", decision), false)
}

// NewInvalidStageTargetError reports a target stage outside the application's company registry.
func NewInvalidStageTargetError(stageID, companyID string) *StandardError {
	e := newError(ErrCodeInvalidStageTarget, "Stage is not part of the company pipeline",
		fmt.Sprintf("stageId: %s, companyId: %s", stageID, companyID), false)
	e.Metadata = map[string]interface{}{"stageId": stageID, "companyId": companyID}
	return e
}

// NewStageInUseError reports a delete blocked by applications still sitting in the stage.
func NewStageInUseError(stageID string, occupants int) *StandardError {
	e := newError(ErrCodeStageInUse, "Stage still has applications",
		fmt.Sprintf("stageId: %s, applications: %d", stageID, occupants), false)
	e.Metadata = map[string]interface{}{"stageId": stageID, "applications": occupants}
	return e
}

func NewDefaultStageProtectedError(stageID, reason string) *StandardError {
	return newError(ErrCodeDefaultStageProtected, "Default stage cannot be changed this way",
		fmt.Sprintf("stageId: %s, reason: %s", stageID, reason), false)
}

// NewDuplicateDefaultStageError describes a registry with more than one default stage.
// It is logged as a data-integrity warning and never returned to callers.
func NewDuplicateDefaultStageError(companyID string, stageIDs []string) *StandardError {
	e := newError(ErrCodeDuplicateDefaultStage, "Company has more than one default stage",
		fmt.Sprintf("companyId: %s, stages: %s", companyID, strings.Join(stageIDs, ",")), false)
	e.Metadata = map[string]interface{}{"companyId": companyID, "stageIds": stageIDs}
	return e
}

func NewInvalidReorderError(companyID, details string) *StandardError {
	return newError(ErrCodeInvalidReorder, "Reorder does not match the company stages",
		fmt.Sprintf("companyId: %s, %s", companyID, details), false)
}

func NewStageNotFoundError(stageID string) *StandardError {
	return newError(ErrCodeStageNotFound, "Pipeline stage not found", fmt.Sprintf("stageId: %s", stageID), false)
}

func NewApplicationNotFoundError(applicationID string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found", fmt.Sprintf("applicationId: %s", applicationID), false)
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(candidateID, jobID string) *StandardError {
	return newError(ErrCodeDuplicateApplication, "Application already exists",
		fmt.Sprintf("candidateId: %s, jobId: %s", candidateID, jobID), false)
}

func NewTerminalStageError(applicationID, stageName string) *StandardError {
	return newError(ErrCodeTerminalStage, "Application is in a terminal stage",
		fmt.Sprintf("applicationId: %s, stage: %s", applicationID, stageName), false)
}

func NewStageOrderViolationError(fromStage, toStage string) *StandardError {
	return newError(ErrCodeStageOrderViolation, "Move skips pipeline stages",
		fmt.Sprintf("from: %s, to: %s", fromStage, toStage), false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	e := newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
	e.cause = err
	return e
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	e := newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()), true)
	e.cause = err
	return e
}

// NewDatabaseInsertFailedError creates a retryable database write error.
func NewDatabaseInsertFailedError(operation string, err error) *StandardError {
	e := newError(ErrCodeDatabaseInsertFailed, "Database write failed",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true)
	e.cause = err
	return e
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	e := newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()), true)
	e.cause = err
	return e
}

func NewSearchQueryFailedError(index string, err error) *StandardError {
	e := newError(ErrCodeSearchQueryFailed, "Elasticsearch query error",
		fmt.Sprintf("index: %s, error: %s", index, err.Error()), true)
	e.cause = err
	return e
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed:
		return 3
	case ErrCodeSearchQueryFailed:
		return 2
	default:
		return 0 // business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandardError returns the StandardError in err's chain, or wraps err as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	for e := err; e != nil; {
		if std, ok := e.(*StandardError); ok {
			return std
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	std := newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
	std.cause = err
	return std
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "MATRIX") || strings.Contains(codeStr, "MATCH") || strings.Contains(codeStr, "DECISION"):
		return "MATCHING"
	case strings.Contains(codeStr, "STAGE") || strings.Contains(codeStr, "REORDER") || strings.Contains(codeStr, "APPLICATION"):
		return "PIPELINE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
