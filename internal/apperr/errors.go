// Package apperr defines the error taxonomy shared by the tutoring loop.
package apperr

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrFormat marks a malformed knowledge-graph or mastery-snapshot source.
	ErrFormat = eris.New("format error")
	// ErrCycle marks a knowledge graph whose prerequisite edges form a cycle.
	// Every CycleError, this one included, matches both ErrCycle and ErrFormat.
	ErrCycle error = &CycleError{}
	// ErrNotFound marks an unknown concept identifier.
	ErrNotFound = eris.New("not found")
	// ErrValidation marks an exercise rejected by the verifier.
	ErrValidation = eris.New("validation failed")
	// ErrNoAvailableConcept marks a state where no concept is eligible.
	ErrNoAvailableConcept = eris.New("no available concept")
	// ErrExternalService marks a generator or judge failure.
	ErrExternalService = eris.New("external service error")
	// ErrIO marks a failed snapshot write.
	ErrIO = eris.New("io error")
)

// Error kinds reported in logs and metrics.
const (
	KindFormat          = "format"
	KindNotFound        = "not_found"
	KindValidation      = "validation"
	KindNoConcept       = "no_concept"
	KindExternalService = "external_service"
	KindIO              = "io"
	KindUnknown         = "unknown"
)

// ValidationError carries the itemized reasons an exercise was rejected.
type ValidationError struct {
	Concept string
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed for " + e.Concept + ": " + strings.Join(e.Reasons, "; ")
}

// Is reports ErrValidation so callers can match on the sentinel.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CycleError names the concepts on a prerequisite cycle, first concept
// repeated at the end.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "prerequisite cycle"
	}
	return "prerequisite cycle: " + strings.Join(e.Path, " -> ")
}

// Is reports ErrCycle and ErrFormat.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle || target == ErrFormat
}

// ExternalError wraps a failure of one of the external collaborators.
// Raw holds the unparsable response body when there was one.
type ExternalError struct {
	Service string
	Raw     string
	Err     error
}

func (e *ExternalError) Error() string {
	return e.Service + ": external service error: " + e.Err.Error()
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// Is reports ErrExternalService so callers can match on the sentinel.
func (e *ExternalError) Is(target error) bool {
	return target == ErrExternalService
}

// External wraps err as an ExternalError for the named service. A nil err
// returns nil; an err that is already an ExternalError is returned as is.
func External(service string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExternalError
	if errors.As(err, &ee) {
		return err
	}
	return &ExternalError{Service: service, Err: err}
}

// Kind maps err to its taxonomy name.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNoAvailableConcept):
		return KindNoConcept
	case errors.Is(err, ErrExternalService):
		return KindExternalService
	case errors.Is(err, ErrIO):
		return KindIO
	default:
		return KindUnknown
	}
}
