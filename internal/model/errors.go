package model

import (
	"errors"
	"strings"
)

var (
	// ErrMissingEmail is returned when the payload has no usable email field.
	ErrMissingEmail = errors.New("missing email")
	// ErrInvalidSubmission is the sentinel wrapped by every ValidationError.
	ErrInvalidSubmission = errors.New("invalid submission")
)

// ValidationError lists every problem a strict-mode normalization found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrInvalidSubmission }
