package catalog

import (
	"regexp"
	"strings"
)

// counterSuffix matches trailing spawn counters like " #2" that kill-log
// reporters append when the same boss is up more than once.
var counterSuffix = regexp.MustCompile(`\s*#\d+\s*$`)

// CanonicalName folds a boss name to its lookup key: case-insensitive,
// trimmed, with any trailing counter suffix stripped. The fold is idempotent.
func CanonicalName(name string) string {
	name = counterSuffix.ReplaceAllString(name, "")
	return strings.ToLower(strings.TrimSpace(name))
}
