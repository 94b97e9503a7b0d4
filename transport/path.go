package transport

import (
	"net/url"
	"strings"
)

// PathSegment escapes a caller-supplied identifier for use as exactly one
// path segment. Separators are encoded, and "." or ".." cannot climb out of
// the route they are placed in.
func PathSegment(id string) string {
	s := url.PathEscape(id)
	if s == "." || s == ".." {
		s = strings.ReplaceAll(s, ".", "%2E")
	}
	return s
}
