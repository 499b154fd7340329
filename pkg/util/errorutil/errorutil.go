package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes shared by services and the HTTP layer.
const (
	CodeNotFound          = "NOT_FOUND"
	CodeDuplicateID       = "DUPLICATE_ID"
	CodeAgentAtCapacity   = "AGENT_AT_CAPACITY"
	CodeNoAvailableAgent  = "NO_AVAILABLE_AGENT"
	CodeStaleAssignment   = "STALE_ASSIGNMENT"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeValidationFailed  = "VALIDATION_FAILED"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Any DomainError with the same code matches.
var (
	ErrNotFound          = &DomainError{Code: CodeNotFound, Message: "not found", HTTPStatus: http.StatusNotFound}
	ErrDuplicateID       = &DomainError{Code: CodeDuplicateID, Message: "duplicate id", HTTPStatus: http.StatusConflict}
	ErrAgentAtCapacity   = &DomainError{Code: CodeAgentAtCapacity, Message: "agent at capacity", HTTPStatus: http.StatusConflict}
	ErrNoAvailableAgent  = &DomainError{Code: CodeNoAvailableAgent, Message: "no available agent", HTTPStatus: http.StatusConflict}
	ErrStaleAssignment   = &DomainError{Code: CodeStaleAssignment, Message: "assignment changed", HTTPStatus: http.StatusConflict}
	ErrInvalidTransition = &DomainError{Code: CodeInvalidTransition, Message: "invalid status transition", HTTPStatus: http.StatusConflict}
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on code so detailed errors compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewDuplicateID(resource, id string) error {
	return NewDomainError(CodeDuplicateID, fmt.Sprintf("%s %s already exists", resource, id), http.StatusConflict,
		map[string]any{"id": id})
}

func NewAgentAtCapacity(agentID string, maxCapacity int) error {
	return NewDomainError(CodeAgentAtCapacity, fmt.Sprintf("agent %s is at capacity (%d tickets)", agentID, maxCapacity),
		http.StatusConflict, map[string]any{"agent_id": agentID, "max_capacity": maxCapacity})
}

func NewNoAvailableAgent(details map[string]any) error {
	return NewDomainError(CodeNoAvailableAgent, "no available agent", http.StatusConflict, details)
}

func NewStaleAssignment(ticketID string) error {
	return NewDomainError(CodeStaleAssignment, "ticket assignment changed since decision", http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

func NewInvalidTransition(from, to string) error {
	return NewDomainError(CodeInvalidTransition, fmt.Sprintf("cannot change status from %s to %s", from, to),
		http.StatusConflict, map[string]any{"from": from, "to": to})
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// IsBusinessOutcome reports errors that describe a normal queueing outcome rather than a fault.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrNoAvailableAgent)
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &DomainError{Code: CodeNotFound, Message: "resource not found", HTTPStatus: http.StatusNotFound, Err: err}
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// CodeForStatus maps a bare HTTP status onto the closest error code.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeValidationFailed
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusConflict:
		return "CONFLICT"
	default:
		if status >= http.StatusInternalServerError {
			return CodeInternal
		}
		return "REQUEST_FAILED"
	}
}
