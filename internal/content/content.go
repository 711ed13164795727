// Package content normalizes pasted resource bodies. Browser copy-paste
// and import tools frequently deliver HTML; stored content is markdown.
package content

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern matches common HTML tags to detect if a string contains HTML.
// Looks for opening tags like <p>, <br>, <div>, <b>, etc.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// ContainsHTML checks if a string appears to contain HTML markup.
func ContainsHTML(s string) bool {
	return htmlTagPattern.MatchString(strings.ToLower(s))
}

// Normalize converts HTML content to Markdown and trims surrounding
// whitespace. Plain text passes through untouched apart from trimming.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !ContainsHTML(s) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		// If conversion fails, keep the original string.
		return s
	}

	return strings.TrimSpace(markdown)
}
