// Package apperr defines the application error taxonomy.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrStoreClosed   = errors.New("store closed")
)

// UnsupportedFormatError indicates a file whose declared type has no
// registered extractor. User-correctable; carries the offending name.
type UnsupportedFormatError struct {
	Name string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Name)
}

// ExtractionError indicates a parser failure on a recognized format.
// The wrapped error is surfaced verbatim in the upload flow.
type ExtractionError struct {
	Name string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Name, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
