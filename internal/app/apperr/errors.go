// Package apperr is the application-layer error shared by every service. The HTTP adapter
// maps it to a response; the CLI prints its message.
package apperr

import (
	"errors"
	"net/http"
)

const (
	CodeInvalidCode      = "INVALID_CODE"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeSyncFailure      = "SYNC_FAILURE"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNoQuestions      = "NO_QUESTIONS"
	CodeNameTaken        = "NAME_TAKEN"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. It is never shown to clients.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func InvalidCode() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeInvalidCode, Message: "invalid invite code"}
}

func PermissionDenied(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodePermissionDenied, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

func Validation(message string, details map[string]any) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: CodeValidation, Message: message, Details: details}
}

// NameTaken is returned when a plain invite join asks for a name an admin already uses.
func NameTaken(name string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeNameTaken, Message: "the name " + name + " is reserved", Details: map[string]any{"field": "name"}}
}

// SyncFailure wraps a storage or network failure of the shared state.
func SyncFailure(err error) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: CodeSyncFailure, Message: "trip data is temporarily unavailable", Err: err}
}

// HasCode reports whether err is an *Error with the given code.
func HasCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
