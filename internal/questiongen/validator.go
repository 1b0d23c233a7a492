package questiongen

import "fmt"

// Validator checks a reconciled question before it is accepted.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in drop reasons.
	Name() string

	// Validate returns nil if q passes. It may normalize q in place.
	Validate(q *Question) *ValidationError
}

// ValidationError describes why a question was dropped.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// DefaultValidators is the list Parse applies, in order.
var DefaultValidators = []Validator{&StructuralValidator{}}

// StructuralValidator requires question text, at least one option and a
// correct id that names one of the options. On success it canonicalizes
// CorrectOptionID and fills CorrectIndex.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *Question) *ValidationError {
	if q.Text == "" {
		return &ValidationError{Validator: v.Name(), Message: "question text is empty"}
	}
	if len(q.Options) == 0 {
		return &ValidationError{Validator: v.Name(), Message: "no options"}
	}
	if q.CorrectOptionID == "" {
		return &ValidationError{Validator: v.Name(), Message: "no correct option"}
	}
	i := indexOfID(q.Options, q.CorrectOptionID)
	if i < 0 {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("correct option %q is not among the options", q.CorrectOptionID),
		}
	}
	q.CorrectOptionID = q.Options[i].ID
	q.CorrectIndex = i
	return nil
}
