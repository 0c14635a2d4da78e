package apiv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"refurb-workflow/internal/domain"
	"refurb-workflow/internal/infra/logging"
)

type errorBody struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	JobID        string `json:"job_id,omitempty"`
	State        string `json:"state,omitempty"`
	Action       string `json:"action,omitempty"`
	AttemptCount *int   `json:"attempt_count,omitempty"`
	MaxAttempts  *int   `json:"max_attempts,omitempty"`
}

var errNotImplemented = errors.New("not implemented")

// badRequest marks body decoding failures.
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error onto an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, errNotImplemented):
		return http.StatusNotImplemented, "not_implemented"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return http.StatusConflict, "duplicate_identity"
	case errors.Is(err, domain.ErrMaxAttemptsExceeded):
		return http.StatusConflict, "max_attempts_exceeded"
	case errors.Is(err, domain.ErrInvalidStateForCertification):
		return http.StatusConflict, "invalid_state_for_certification"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusUnprocessableEntity, "invalid_argument"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	body := errorBody{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		body.Message = "internal error"
	}
	var we *domain.WorkflowError
	if errors.As(err, &we) {
		body.JobID, body.State, body.Action = we.JobID, we.State, we.Action
		if errors.Is(we.Kind, domain.ErrMaxAttemptsExceeded) {
			body.AttemptCount, body.MaxAttempts = &we.AttemptCount, &we.MaxAttempts
		}
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

// decode reads a JSON body into v and runs struct validation. Validation
// failures are invalid arguments; unreadable bodies are bad requests.
func (s *Server) decode(r *http.Request, v any) error {
	if r.Body == nil {
		return badRequest{errors.New("request body is required")}
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest{errors.New("request body is required")}
		}
		return badRequest{fmt.Errorf("malformed body: %w", err)}
	}
	return s.check(v)
}

// decodeOptional is decode for endpoints whose body may be omitted.
func (s *Server) decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return s.check(v)
	}
	return s.decode(r, v)
}

func (s *Server) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return domain.InvalidArgument("%s", strings.Join(msgs, "; "))
		}
		return domain.InvalidArgument("%v", err)
	}
	return nil
}
