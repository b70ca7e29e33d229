package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 4

// Sanitize strips markup from user supplied labels and trims surrounding space.
// Values are rendered as text, so policy entities are unescaped, and the policy
// runs again until unescaping exposes no new markup.
func Sanitize(input string) string {
	s := input
	for i := 0; i < maxSanitizePasses; i++ {
		clean := sanitizer.Sanitize(s)
		plain := html.UnescapeString(clean)
		if plain == s {
			return strings.TrimSpace(plain)
		}
		s = plain
	}
	return strings.TrimSpace(sanitizer.Sanitize(s))
}
