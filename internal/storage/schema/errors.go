package schema

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the backing source has no schema for the ID
type NotFoundError struct {
	SchemaID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("schema not found: %s", e.SchemaID)
}

// UnavailableError indicates the backing source could not be reached. Unlike
// NotFoundError it says nothing about the schema itself.
type UnavailableError struct {
	SchemaID string
	Err      error
}

func (e UnavailableError) Error() string {
	return fmt.Sprintf("schema store unavailable fetching %s: %v", e.SchemaID, e.Err)
}

func (e UnavailableError) Unwrap() error {
	return e.Err
}

// InvalidSchemaError indicates an invalid schema definition
type InvalidSchemaError struct {
	SchemaID string
	Reason   string
}

func (e InvalidSchemaError) Error() string {
	return fmt.Sprintf("invalid schema %s: %s", e.SchemaID, e.Reason)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// IsUnavailable reports whether err is an UnavailableError
func IsUnavailable(err error) bool {
	var target UnavailableError
	return errors.As(err, &target)
}

// IsInvalid reports whether err is an InvalidSchemaError
func IsInvalid(err error) bool {
	var target InvalidSchemaError
	return errors.As(err, &target)
}
