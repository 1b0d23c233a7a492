package questiongen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxSourceChars bounds the source text embedded in a prompt.
const DefaultMaxSourceChars = 12000

// SystemPrompt is sent unchanged to every provider.
const SystemPrompt = `You are an assessment author who writes multiple-choice exam questions from study material.

Rules:
- Base every question only on the provided source material.
- Each question has exactly 4 options labelled A, B, C and D.
- Exactly one option is correct. Distractors should be plausible, not absurd.
- Explanations are one or two sentences that justify the correct option.
- Reply with a single JSON object and nothing else.`

const responseFormat = `{
  "questions": [
    {
      "question": "<question text>",
      "options": [
        {"id": "A", "text": "<option text>"},
        {"id": "B", "text": "<option text>"},
        {"id": "C", "text": "<option text>"},
        {"id": "D", "text": "<option text>"}
      ],
      "correctOptionId": "<A, B, C or D>",
      "explanation": "<why the correct option is right>"
    }
  ]
}`

// BuildPrompt returns the user prompt asking for questionCount questions
// about sourceText. The source is cut to maxChars characters; a
// non-positive maxChars means DefaultMaxSourceChars. Output depends only on
// the arguments.
func BuildPrompt(sourceText string, questionCount, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxSourceChars
	}
	source, truncated := truncateRunes(strings.TrimSpace(sourceText), maxChars)

	var b strings.Builder

	fmt.Fprintf(&b, "Write %d multiple-choice questions about the source material below.\n\n", questionCount)
	b.WriteString("Source material:\n<<<\n")
	b.WriteString(source)
	if truncated {
		b.WriteString("\n[source truncated]")
	}
	b.WriteString("\n>>>\n\n")
	b.WriteString("Respond with one JSON object in exactly this shape:\n")
	b.WriteString(responseFormat)
	b.WriteString("\n")

	return b.String()
}

// truncateRunes cuts s to at most n characters without splitting a UTF-8
// sequence.
func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
