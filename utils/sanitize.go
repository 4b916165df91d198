package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans HTML from externally sourced text (titles, comment bodies)
// before it is persisted or relayed.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
