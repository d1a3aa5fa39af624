// Package apperr defines the error taxonomy shared by the REST and
// GraphQL bindings and translates it at the transport boundary.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a failure; each code maps to one HTTP status.
type Code int

const (
	Unauthenticated Code = iota
	Forbidden
	NotFound
	InvalidInput
	AlreadyExists
	Internal
)

func (c Code) HTTPStatus() int {
	switch c {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidInput:
		return http.StatusUnprocessableEntity
	case AlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is a single field-level validation message.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// Error is a classified workflow failure. Data carries field errors for
// InvalidInput; Err holds the wrapped cause, if any.
type Error struct {
	Code    Code
	Message string
	Data    []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Extensions satisfies the graphql-go ExtendedError interface so that
// status and field errors survive GraphQL error formatting.
func (e *Error) Extensions() map[string]interface{} {
	ext := map[string]interface{}{"status": e.Code.HTTPStatus()}
	if len(e.Data) > 0 {
		ext["data"] = e.Data
	}
	return ext
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Invalid builds an InvalidInput error carrying field errors.
func Invalid(message string, data []FieldError) *Error {
	return &Error{Code: InvalidInput, Message: message, Data: data}
}

// Response is the normalized error body for both bindings:
// {message, status, data?}.
type Response struct {
	Message string       `json:"message"`
	Status  int          `json:"status"`
	Data    []FieldError `json:"data,omitempty"`
}

// WriteJSON translates any error into the normalized response shape.
// Unclassified errors fall back to a 500 with a generic message.
func WriteJSON(w http.ResponseWriter, err error) {
	resp := Response{Message: "An error occurred.", Status: http.StatusInternalServerError}

	var ae *Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
		resp.Status = ae.Code.HTTPStatus()
		resp.Data = ae.Data
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}
