package textutil

import (
	"regexp"
	"strings"
	"unicode"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var innerWhitespace = regexp.MustCompile(`\s\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// CleanText removes non-printable characters, trims the ends and collapses
// inner runs of whitespace into a single space.
func CleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
	s = strings.Trim(s, " ")
	return innerWhitespace.ReplaceAllString(s, " ")
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

// Sanitize maps a url (or any string) to something that can be used as a
// single filesystem path segment by dropping every character that is not
// [A-Za-z0-9_]. Distinct inputs may collide.
func Sanitize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		if isWordChar(r) {
			out.WriteRune(r)
		}
	}
	return out.String()
}

var splitNameRegex = regexp.MustCompile(`^(.*\S)\s*\(([^()]+)\)\s*$`)

// SplitName splits "Long Name (SHORT)" into its long and short parts. When
// there is no parenthesized short name, the input is returned as the long
// name and the short name is empty.
func SplitName(name string) (long, short string) {
	groups := splitNameRegex.FindStringSubmatch(name)
	if len(groups) < 3 {
		return name, ""
	}
	return strings.TrimSpace(groups[1]), strings.TrimSpace(groups[2])
}
