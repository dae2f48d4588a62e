package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for the workflow core. Every rejected admission,
// submission or grade attempt maps to one of these so callers can render
// an accurate message.
var (
	ErrInvalidCredentials     = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount        = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound               = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden              = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized           = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict               = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation             = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal               = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCapacityExceeded       = New("CAPACITY_EXCEEDED", http.StatusConflict, "course is full")
	ErrAlreadyEnrolled        = New("ALREADY_ENROLLED", http.StatusConflict, "student already enrolled")
	ErrCourseNotApproved      = New("COURSE_NOT_APPROVED", http.StatusPreconditionFailed, "course is not open for enrollment")
	ErrSubmissionClosed       = New("SUBMISSION_CLOSED", http.StatusConflict, "submission window has closed")
	ErrSubmissionTypeMismatch = New("SUBMISSION_TYPE_MISMATCH", http.StatusBadRequest, "submission content does not match the required type")
	ErrInvalidAttachment      = New("INVALID_ATTACHMENT", http.StatusBadRequest, "attachment type or size not allowed")
	ErrAlreadySubmitted       = New("ALREADY_SUBMITTED", http.StatusConflict, "submission already exists, edit it instead")
	ErrGradeOutOfRange        = New("GRADE_OUT_OF_RANGE", http.StatusBadRequest, "grade outside assignment point range")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
