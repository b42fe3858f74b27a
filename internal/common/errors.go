package common

import (
	"errors"
	"net/http"
)

// AppError is an error that already knows its API code and status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// WithDetails attaches structured details rendered in the error body.
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}

// InvalidParam reports a malformed path or query parameter.
func InvalidParam(name string) *AppError {
	return NewAppError("BAD_REQUEST", "invalid "+name, http.StatusBadRequest, nil).
		WithDetails(map[string]string{"param": name})
}

// BackendUnavailable reports a failed call to the POS backend without leaking
// transport details to the till.
func BackendUnavailable(message string, err error) *AppError {
	return NewAppError("BACKEND_UNAVAILABLE", message, http.StatusBadGateway, err)
}
