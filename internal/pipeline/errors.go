package pipeline

import "fmt"

// Error codes surfaced to callers. The REST layer maps these onto HTTP
// status codes; messages never leak backend identifiers or stack detail.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeUnsupportedFormat  = "unsupported_format"
	CodeStorageFailure     = "storage_failure"
	CodeModelFailure       = "model_failure"
	CodePersistenceFailure = "persistence_failure"
	CodeInternal           = "internal"
)

// Error is the structured failure handed back to callers. Message is safe to
// show to the user; Err keeps the cause for logs.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pipeline: %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("pipeline: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}
