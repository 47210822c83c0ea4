package apperrors

import (
	"errors"
	"fmt"
	"time"
)

type Code string

const (
	CodeSelfTargetInvalid Code = "SELF_TARGET_INVALID"
	CodeNotFound          Code = "NOT_FOUND"
	CodeNotAParticipant   Code = "NOT_A_PARTICIPANT"
	CodeNotAuthorized     Code = "NOT_AUTHORIZED"
	CodeModerated         Code = "MODERATED"
	CodeAlreadyExpired    Code = "ALREADY_EXPIRED"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInternal          Code = "INTERNAL"
)

// AppError is a user-presentable failure.
type AppError struct {
	Code    Code       `json:"code"`
	Message string     `json:"message"`
	Reason  string     `json:"reason,omitempty"`
	Until   *time.Time `json:"until,omitempty"`
	Cause   error      `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another AppError by code so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func New(code Code, message string) error {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func SelfTarget(msg string) error { return New(CodeSelfTargetInvalid, msg) }

func NotFound(msg string) error { return New(CodeNotFound, msg) }

func NotAParticipant(msg string) error { return New(CodeNotAParticipant, msg) }

func NotAuthorized(msg string) error { return New(CodeNotAuthorized, msg) }

func AlreadyExpired(msg string) error { return New(CodeAlreadyExpired, msg) }

func InvalidArg(msg string) error { return New(CodeInvalidArgument, msg) }

func Internal(msg string, cause error) error { return Wrap(CodeInternal, msg, cause) }

// Moderated reports a banned or suspended sender. until is set for suspensions.
func Moderated(reason string, until *time.Time) error {
	return &AppError{Code: CodeModerated, Message: "user is restricted from sending", Reason: reason, Until: until}
}

// CodeOf extracts the code of an AppError anywhere in err's chain.
func CodeOf(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
