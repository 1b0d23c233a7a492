package questiongen

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Parse failure reasons.
const (
	ReasonNoJSON         = "no-json-found"
	ReasonInvalidJSON    = "invalid-json"
	ReasonSchemaMismatch = "schema-mismatch"
)

// maxRawSample bounds ParseError.Raw.
const maxRawSample = 200

// ParseError reports a reply that contains no usable question envelope.
type ParseError struct {
	Reason string
	// Raw is a sample of the offending text, set for invalid-json.
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse response: %s: %v", e.Reason, e.Err)
	}
	return "parse response: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse extracts questions from a provider reply using DefaultValidators.
func Parse(raw string) (ParseResult, error) {
	return ParseWith(raw, DefaultValidators)
}

// ParseWith extracts the question envelope from raw, reconciles aliased
// fields and keeps the questions that pass every validator. Failing
// questions are counted, not returned as errors.
func ParseWith(raw string, validators []Validator) (ParseResult, error) {
	env, malformed, decodeErr := extractEnvelope(raw)
	if env == nil {
		if malformed != "" {
			return ParseResult{}, &ParseError{Reason: ReasonInvalidJSON, Raw: sample(malformed), Err: decodeErr}
		}
		return ParseResult{}, &ParseError{Reason: ReasonNoJSON}
	}
	if err := validateEnvelope(env.doc); err != nil {
		return ParseResult{}, &ParseError{Reason: ReasonSchemaMismatch, Err: err}
	}

	items := env.doc["questions"].([]any)

	var res ParseResult
	for i, item := range items {
		q, verr := reconcile(item, validators)
		if verr != nil {
			res.Dropped++
			res.DropReasons = append(res.DropReasons, fmt.Sprintf("question %d: %v", i+1, verr))
			continue
		}
		res.Questions = append(res.Questions, *q)
	}
	return res, nil
}

// reconcile maps one decoded item onto a Question and validates it.
func reconcile(item any, validators []Validator) (*Question, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return nil, errors.New("not an object")
	}

	q := &Question{
		Text:        firstString(m, questionTextFields),
		Options:     extractOptions(m),
		Explanation: firstString(m, explanationFields),
	}
	if v, ok := firstValue(m, correctFields); ok {
		q.CorrectOptionID = resolveCorrect(v, q.Options)
	}

	for _, v := range validators {
		if verr := v.Validate(q); verr != nil {
			return nil, verr
		}
	}
	return q, nil
}

func sample(s string) string {
	if utf8.RuneCountInString(s) <= maxRawSample {
		return s
	}
	out, _ := truncateRunes(s, maxRawSample)
	return out
}
