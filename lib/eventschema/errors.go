// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eventschema

import (
	"errors"
	"fmt"
)

// ValidationError reports that a payload does not match the schema
// required for the variant being constructed. It is fatal to parsing
// that one payload; callers log it and move on to the next event.
//
//	var validationErr *eventschema.ValidationError
//	if errors.As(err, &validationErr) {
//	    logger.Warn("dropping malformed event", "schema", validationErr.Schema)
//	}
type ValidationError struct {
	// Schema is the schema the payload was checked against.
	Schema Name
	// Err describes the first mismatch.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("payload does not match schema %s: %v", e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for checks that a JSON Schema cannot
// express, such as parsing an identifier into its typed form.
func Invalid(schema Name, format string, args ...any) *ValidationError {
	return &ValidationError{Schema: schema, Err: fmt.Errorf(format, args...)}
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}
