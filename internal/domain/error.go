package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound                     = errors.New("entity not found")
	ErrInvalidTransition            = errors.New("action not allowed from state")
	ErrMaxAttemptsExceeded          = errors.New("max attempts exceeded")
	ErrInvalidStateForCertification = errors.New("job is not ready for certification")
	ErrDuplicateIdentity            = errors.New("unit identifier already in use")
	ErrInvalidArgument              = errors.New("invalid argument")

	// Storage errors
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// WorkflowError carries the context a technician-facing caller needs to
// explain a rejected operation. Kind is one of the sentinels above.
type WorkflowError struct {
	Kind         error
	JobID        string
	State        string
	Action       string
	AttemptCount int
	MaxAttempts  int
	Detail       string
}

func (e *WorkflowError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.Error())
	if e.JobID != "" {
		fmt.Fprintf(&sb, ": job %s", e.JobID)
	}
	if e.State != "" {
		fmt.Fprintf(&sb, " in state %s", e.State)
	}
	if e.Action != "" {
		fmt.Fprintf(&sb, ", action %s", e.Action)
	}
	if errors.Is(e.Kind, ErrMaxAttemptsExceeded) {
		fmt.Fprintf(&sb, " (attempts %d of %d, use FAIL instead)", e.AttemptCount, e.MaxAttempts)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

func (e *WorkflowError) Unwrap() error { return e.Kind }

// NotFound builds a not-found error for the named entity.
func NotFound(entity, id string) error {
	return &WorkflowError{Kind: ErrNotFound, Detail: fmt.Sprintf("%s %q", entity, id)}
}

// InvalidArgument wraps ErrInvalidArgument with a human readable reason.
func InvalidArgument(format string, args ...any) error {
	return &WorkflowError{Kind: ErrInvalidArgument, Detail: fmt.Sprintf(format, args...)}
}
