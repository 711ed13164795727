package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "empty string",
			input:    "",
			expected: false,
		},
		{
			name:     "plain text",
			input:    "A note with no markup at all.",
			expected: false,
		},
		{
			name:     "angle brackets but not HTML",
			input:    "Use <stdin> for input and 2 > 1 is true",
			expected: false,
		},
		{
			name:     "markdown stays markdown",
			input:    "# Heading\n\n- item one\n- item two",
			expected: false,
		},
		{
			name:     "paragraph tags",
			input:    "<p>This is a paragraph.</p>",
			expected: true,
		},
		{
			name:     "self-closing break",
			input:    "Line one<br/>Line two",
			expected: true,
		},
		{
			name:     "uppercase tags",
			input:    "<P>Shouting markup</P>",
			expected: true,
		},
		{
			name:     "blockquote",
			input:    "<blockquote>quoted passage</blockquote>",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsHTML(tt.input))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("plain text is trimmed only", func(t *testing.T) {
		assert.Equal(t, "just a thought", Normalize("  just a thought \n"))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", Normalize("   "))
	})

	t.Run("converts bold", func(t *testing.T) {
		got := Normalize("<p>This is <strong>important</strong>.</p>")
		assert.Equal(t, "This is **important**.", got)
	})

	t.Run("converts list", func(t *testing.T) {
		got := Normalize("<ul><li>first</li><li>second</li></ul>")
		assert.Contains(t, got, "- first")
		assert.Contains(t, got, "- second")
	})

	t.Run("converts link", func(t *testing.T) {
		got := Normalize(`<p>See <a href="https://example.com">the site</a>.</p>`)
		assert.Contains(t, got, "[the site](https://example.com)")
	})
}
