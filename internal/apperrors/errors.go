package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MissingFieldError is returned when a required request key is absent
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// InvalidInputError covers malformed client input (bad JSON, undecodable image)
type InvalidInputError struct {
	Message string
	Err     error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Message, e.Err)
	}
	return "invalid input: " + e.Message
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError is returned when the model expects features the
// built vector does not carry
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("feature schema mismatch: model expects features not present in input: %s",
		strings.Join(e.Missing, ", "))
}

// ModelUnavailableError means a model artifact could not be loaded
type ModelUnavailableError struct {
	Path string
	Err  error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable (%s): %v", e.Path, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

// InsufficientDataError means stored telemetry cannot supply a derived input
type InsufficientDataError struct {
	DeviceID string
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient telemetry for device %s: %s", e.DeviceID, e.Reason)
}

// IsClientError reports whether err was caused by the caller
func IsClientError(err error) bool {
	var missing *MissingFieldError
	var invalid *InvalidInputError
	return errors.As(err, &missing) || errors.As(err, &invalid)
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if IsClientError(err) {
		return http.StatusBadRequest
	}
	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
