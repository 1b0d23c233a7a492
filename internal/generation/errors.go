package generation

import (
	"fmt"
	"strings"
)

// InvalidRequestError reports a request rejected before any work started.
type InvalidRequestError struct {
	Field  string
	Reason string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s %s", e.Field, e.Reason)
}

// EmptySourceError reports that the referenced documents yielded no text.
// No provider is called in that case.
type EmptySourceError struct {
	DocumentIDs []string
}

func (e *EmptySourceError) Error() string {
	return fmt.Sprintf("no source text in documents %s", strings.Join(e.DocumentIDs, ", "))
}

// AllProvidersFailedError carries one error per provider tried, in order.
type AllProvidersFailedError struct {
	Errors []error
}

func (e *AllProvidersFailedError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return "all providers failed: " + strings.Join(msgs, "; ")
}

func (e *AllProvidersFailedError) Unwrap() []error { return e.Errors }

// NoQuestionsGeneratedError reports a successful call whose reply held no
// valid question.
type NoQuestionsGeneratedError struct {
	Provider string
	Dropped  int
}

func (e *NoQuestionsGeneratedError) Error() string {
	return fmt.Sprintf("%s returned no valid questions (%d dropped)", e.Provider, e.Dropped)
}

// PersistenceError reports a failed exam write. When ExamID is set the
// header had been written and a compensating delete was attempted.
type PersistenceError struct {
	Op     string
	ExamID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist exam: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
