// Package questiongen turns source text into a provider prompt and turns a
// provider's raw reply back into validated multiple-choice questions.
package questiongen

// Question is a validated multiple-choice question.
type Question struct {
	// Text is the question prompt shown to the candidate.
	Text string

	// Options are the answer choices in the order the model produced them.
	// Four are requested; any non-empty list is accepted.
	Options []Option

	// CorrectOptionID is the ID of the correct option. Always present in
	// Options.
	CorrectOptionID string

	// CorrectIndex is the position of the correct option in Options.
	CorrectIndex int

	// Explanation is the worked reasoning for the correct answer. May be
	// empty.
	Explanation string
}

// Option is one labelled answer choice.
type Option struct {
	ID   string
	Text string
}

// ParseResult is the outcome of parsing one provider reply.
type ParseResult struct {
	Questions []Question

	// Dropped counts candidate questions that failed validation.
	Dropped int

	// DropReasons holds one message per dropped candidate, for logging.
	DropReasons []string
}
