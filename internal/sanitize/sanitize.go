// Package sanitize cleans scraped fragments before they are validated and
// hashed.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	// (?s) so blocks spanning lines are removed whole.
	privateBlockRegex = regexp.MustCompile(`(?is)<private>.*?</private>`)
	codeBlockRegex    = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	tagRegex          = regexp.MustCompile(`(?s)<[^>]*>`)
)

// StripPrivateTags removes all <private>...</private> blocks from content.
func StripPrivateTags(content string) string {
	return strings.TrimSpace(privateBlockRegex.ReplaceAllString(content, ""))
}

// Clean removes private, script and style blocks, strips the remaining
// markup, unescapes entities and collapses whitespace. The result is what
// gets hashed and stored.
func Clean(content string) string {
	s := privateBlockRegex.ReplaceAllString(content, " ")
	s = codeBlockRegex.ReplaceAllString(s, " ")
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// IsEmpty reports whether nothing useful remains after cleaning.
func IsEmpty(content string) bool {
	return Clean(content) == ""
}
