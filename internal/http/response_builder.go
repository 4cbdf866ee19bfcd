// Package http exposes the ledger as a JSON API.
//
// This file implements the Builder Pattern for constructing responses. It
// keeps status codes, headers and the error mapping in one place.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"townledger/internal/core"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the response body with its content type.
func (b *ResponseBuilder) Body(contentType string, content []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = content
	return b
}

// JSON encodes v as the response body. An encoding failure turns the
// response into a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse(http.StatusInternalServerError, "internal", "failed to encode response")
	}
	return b.Body("application/json", append(data, '\n'))
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error    string `json:"error"`
	Category string `json:"category"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, category, message string) *ResponseBuilder {
	data, _ := json.Marshal(errorBody{Error: message, Category: category})
	return NewResponse().Status(statusCode).Body("application/json", append(data, '\n'))
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "invalid_argument", message)
}

// errorStatus maps the ledger error taxonomy to a status and category.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, core.ErrUniqueViolation):
		return http.StatusConflict, "conflict"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, core.ErrStorage):
		return http.StatusServiceUnavailable, "storage"
	}
	return http.StatusInternalServerError, "internal"
}

// FromError creates the error response for a ledger error. Storage and
// unexpected failures do not leak driver details to the client.
func FromError(err error) *ResponseBuilder {
	status, category := errorStatus(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "storage unavailable, please retry"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	return ErrorResponse(status, category, msg)
}
