package registry

import (
	"regexp"
	"strings"
)

var (
	separatorRuns = regexp.MustCompile(`[_\-]+`)
	nonAlnum      = regexp.MustCompile(`[^a-z0-9 ]+`)
	spaceRuns     = regexp.MustCompile(`\s+`)
)

// Norm derives the canonical lookup key for a friendly name or entity id:
// lowercase, underscore/dash runs become a single space, anything outside
// [a-z0-9 ] is stripped, whitespace collapsed and trimmed.
//
// Norm is idempotent and must stay byte-stable across snapshot
// regenerations; the sync job and the lookups both depend on that.
func Norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = separatorRuns.ReplaceAllString(s, " ")
	s = nonAlnum.ReplaceAllString(s, " ")
	s = spaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
