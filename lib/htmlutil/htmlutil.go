package htmlutil

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of the attribute with the given key.
func Attr(attrs []html.Attribute, key string) (string, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr is Attr with a fallback value for a missing attribute.
func AttrOr(attrs []html.Attribute, key, fallback string) string {
	val, ok := Attr(attrs, key)
	if !ok {
		return fallback
	}
	return val
}

// AttrContains reports if the attribute exists and contains substr,
// ignoring case.
func AttrContains(attrs []html.Attribute, key, substr string) bool {
	val, ok := Attr(attrs, key)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(val), strings.ToLower(substr))
}
