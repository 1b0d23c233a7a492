package questiongen

import (
	"encoding/json"
	"strings"
)

// envelope is a balanced block of a reply and its decoded object.
type envelope struct {
	block string
	doc   map[string]any
}

// extractEnvelope returns the first balanced {...} block of raw that decodes
// to an object with a top-level "questions" key. Every opening brace is a
// candidate, so blocks nested inside a rejected one are still tried. Braces
// inside JSON string literals are ignored, so fences and surrounding prose
// need no special handling.
//
// When no block qualifies, malformed is the first block that mentions
// "questions" but does not decode, and decodeErr is its error.
func extractEnvelope(raw string) (env *envelope, malformed string, decodeErr error) {
	for start := strings.IndexByte(raw, '{'); start >= 0; {
		if end, ok := matchBrace(raw, start); ok {
			block := raw[start : end+1]
			var doc map[string]any
			err := json.Unmarshal([]byte(block), &doc)
			switch {
			case err == nil:
				if _, ok := doc["questions"]; ok {
					return &envelope{block: block, doc: doc}, "", nil
				}
			case malformed == "" && strings.Contains(block, `"questions"`):
				malformed, decodeErr = block, err
			}
		}
		next := strings.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, malformed, decodeErr
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
