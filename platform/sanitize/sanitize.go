// Package sanitize normalizes user-provided text before it is stored or used
// as a natural key.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// Key normalizes a natural key: surrounding whitespace is trimmed and the
// string is put in Unicode NFC form, so "María" typed with a combining accent
// matches the precomposed spelling. Case and inner spacing are preserved.
func Key(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Name collapses runs of whitespace to single spaces and applies Key.
func Name(s string) string {
	return Key(strings.Join(strings.Fields(s), " "))
}

// Text strips HTML tags from free text fields such as motivation or comments.
func Text(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.ReplaceAll(result, "&lt;", "<")
	result = strings.ReplaceAll(result, "&gt;", ">")
	result = strings.ReplaceAll(result, "&amp;", "&")
	result = strings.ReplaceAll(result, "&quot;", "\"")
	result = strings.ReplaceAll(result, "&#39;", "'")
	// Entities may have hidden tags.
	result = htmlTagRegex.ReplaceAllString(result, "")
	return norm.NFC.String(strings.TrimSpace(result))
}

// TextPtr applies Text to an optional value.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	result := Text(*s)
	return &result
}

// Email trims and lower-cases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
