package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestDomainErrorMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("assign: %w", NewAgentAtCapacity("A", 3))
	if !errors.Is(err, ErrAgentAtCapacity) {
		t.Error("wrapped capacity error does not match sentinel")
	}
	if errors.Is(err, ErrNoAvailableAgent) {
		t.Error("capacity error matched a different code")
	}
	var de *DomainError
	if !errors.As(err, &de) || de.Details["agent_id"] != "A" || de.HTTPStatus != http.StatusConflict {
		t.Errorf("details = %+v", de)
	}
}

func TestIsBusinessOutcome(t *testing.T) {
	if !IsBusinessOutcome(NewNoAvailableAgent(nil)) {
		t.Error("NoAvailableAgent should be a business outcome")
	}
	if IsBusinessOutcome(NewStaleAssignment("T1")) || IsBusinessOutcome(errors.New("x")) {
		t.Error("other errors are not business outcomes")
	}
}

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"domain error passes through", NewInvalidTransition("CLOSED", "OPEN"), CodeInvalidTransition, http.StatusConflict},
		{"no rows", fmt.Errorf("query: %w", pgx.ErrNoRows), CodeNotFound, http.StatusNotFound},
		{"unknown", errors.New("disk on fire"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			if got.Code != tt.code || got.HTTPStatus != tt.status {
				t.Errorf("got %s/%d, want %s/%d", got.Code, got.HTTPStatus, tt.code, tt.status)
			}
		})
	}
	if ToDomainError(nil) != nil {
		t.Error("nil should map to nil")
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternalError(cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	var de *DomainError
	errors.As(err, &de)
	if de.Message != "internal server error" {
		t.Errorf("message = %q", de.Message)
	}
}

func TestCodeForStatus(t *testing.T) {
	tests := map[int]string{
		http.StatusNotFound:              CodeNotFound,
		http.StatusBadRequest:            CodeValidationFailed,
		http.StatusUnauthorized:          CodeUnauthorized,
		http.StatusForbidden:             CodeForbidden,
		http.StatusBadGateway:            CodeInternal,
		http.StatusRequestEntityTooLarge: "REQUEST_FAILED",
	}
	for status, want := range tests {
		if got := CodeForStatus(status); got != want {
			t.Errorf("CodeForStatus(%d) = %s, want %s", status, got, want)
		}
	}
}
