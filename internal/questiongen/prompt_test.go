package questiongen

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt_Deterministic(t *testing.T) {
	a := BuildPrompt("Photosynthesis converts light into chemical energy.", 5, 0)
	b := BuildPrompt("Photosynthesis converts light into chemical energy.", 5, 0)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "Write 5 multiple-choice questions")
	assert.Contains(t, a, "Photosynthesis converts light")
	assert.Contains(t, a, `"questions"`)
	assert.Contains(t, a, `"correctOptionId"`)
	assert.NotContains(t, a, "[source truncated]")
}

func TestBuildPrompt_TruncatesByCharacter(t *testing.T) {
	src := strings.Repeat("é", 30)
	p := BuildPrompt(src, 3, 10)

	require.True(t, utf8.ValidString(p))
	assert.Contains(t, p, strings.Repeat("é", 10)+"\n[source truncated]")
	assert.NotContains(t, p, strings.Repeat("é", 11))
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in        string
		n         int
		want      string
		truncated bool
	}{
		{"hello", 10, "hello", false},
		{"hello", 5, "hello", false},
		{"hello", 2, "he", true},
		{"日本語テキスト", 3, "日本語", true},
		{"", 3, "", false},
	}
	for _, tt := range tests {
		got, truncated := truncateRunes(tt.in, tt.n)
		assert.Equal(t, tt.want, got, "truncateRunes(%q, %d)", tt.in, tt.n)
		assert.Equal(t, tt.truncated, truncated, "truncateRunes(%q, %d)", tt.in, tt.n)
	}
}
