package questiongen

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Field aliases in priority order. The first present, non-empty value wins.
var (
	questionTextFields = []string{"question", "questionText", "question_text", "text"}
	optionsFields      = []string{"options", "choices", "answers"}
	correctFields      = []string{"correctOptionId", "correct_option_id", "correctAnswer", "answer"}
	explanationFields  = []string{"explanation", "rationale"}
	optionIDFields     = []string{"id", "label", "key", "letter"}
	optionTextFields   = []string{"text", "value", "option"}
)

// firstValue returns the first aliased value that is neither null nor an
// empty string.
func firstValue(m map[string]any, names []string) (any, bool) {
	for _, name := range names {
		v, ok := m[name]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

// firstString is firstValue restricted to scalar values, rendered as text.
func firstString(m map[string]any, names []string) string {
	v, ok := firstValue(m, names)
	if !ok {
		return ""
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64, bool:
		return fmt.Sprint(v)
	}
	return ""
}

// optionLabel returns A, B, C ... for a zero-based position.
func optionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("O%d", i+1)
}

// extractOptions accepts a list of {id,text} objects, a list of bare
// strings, or an object keyed by option id. Missing ids are assigned by
// position.
func extractOptions(m map[string]any) []Option {
	v, ok := firstValue(m, optionsFields)
	if !ok {
		return nil
	}

	var opts []Option
	switch v := v.(type) {
	case []any:
		for i, item := range v {
			switch item := item.(type) {
			case string:
				opts = append(opts, Option{ID: optionLabel(i), Text: strings.TrimSpace(item)})
			case map[string]any:
				id := firstString(item, optionIDFields)
				if id == "" {
					id = optionLabel(i)
				}
				opts = append(opts, Option{ID: id, Text: firstString(item, optionTextFields)})
			}
		}
	case map[string]any:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if text, ok := v[id].(string); ok {
				opts = append(opts, Option{ID: strings.TrimSpace(id), Text: strings.TrimSpace(text)})
			}
		}
	}
	return opts
}

// resolveCorrect maps the raw correct-answer value to an option id. It
// accepts an option id, the full option text, or a zero-based index. An
// unresolvable string is returned unchanged so validation can reject it.
func resolveCorrect(v any, opts []Option) string {
	switch v := v.(type) {
	case string:
		s := strings.TrimSpace(v)
		if i := indexOfID(opts, s); i >= 0 {
			return opts[i].ID
		}
		for _, o := range opts {
			if o.Text != "" && strings.EqualFold(o.Text, s) {
				return o.ID
			}
		}
		return s
	case float64:
		if v == math.Trunc(v) && v >= 0 && int(v) < len(opts) {
			return opts[int(v)].ID
		}
		return fmt.Sprint(v)
	}
	return ""
}

// indexOfID finds id in opts by linear search, ignoring case and
// surrounding space. Returns -1 when absent.
func indexOfID(opts []Option, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, o := range opts {
		if strings.EqualFold(strings.TrimSpace(o.ID), id) {
			return i
		}
	}
	return -1
}
