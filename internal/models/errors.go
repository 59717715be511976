package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")

	// ErrMissingPostID is returned when the CMS acknowledges a post with a
	// 2xx status but the body carries no id.
	ErrMissingPostID = errors.New("cms returned no post id")
	ErrMissingID     = errors.New("cms returned no record id")
	ErrEmptyDraft    = errors.New("draft producer returned empty output")
	ErrNoCredentials = errors.New("cms credentials are not configured")
	// ErrNotAttempted marks taxonomy items skipped after another item failed.
	ErrNotAttempted = errors.New("not attempted after an earlier taxonomy failure")
)

// TransportError covers network failures and timeouts. Callers may retry
// with their own backoff.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is returned when credential exchange fails, a write is
// rejected with 401 twice in a row, or a read is rejected even without a token.
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("auth: %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("auth: %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DependencyError wraps an outage of the embedding or generation provider.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s unavailable: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// ValidationError is a payload rejection by the CMS. Body holds the
// response verbatim.
type ValidationError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("cms rejected %s", e.Op)
	if e.Status > 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrValidation
}

// GenerationError means the draft producer returned malformed or empty output.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation: %s: %v", e.Reason, e.Err)
	}
	return "generation: " + e.Reason
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PartialTaxonomyFailure aborts a publish after some taxonomy items were
// resolved and at least one failed. Err is the first failure observed.
type PartialTaxonomyFailure struct {
	Succeeded []TaxonomyOutcome
	Failed    []TaxonomyOutcome
	Err       error
}

func (e *PartialTaxonomyFailure) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, fmt.Sprintf("%s %q", f.Kind, f.Name))
	}
	return fmt.Sprintf("taxonomy resolution failed for %s (%d succeeded): %v",
		strings.Join(names, ", "), len(e.Succeeded), e.Err)
}

func (e *PartialTaxonomyFailure) Unwrap() error { return e.Err }
