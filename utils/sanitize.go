package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.UGCPolicy()

// SanitizeHTML returns user text made safe to embed in an HTML page: markup outside the UGC
// allow-list is dropped and special characters are escaped. Stored text is never passed
// through it.
func SanitizeHTML(input string) string {
	return strings.TrimSpace(sanitizer.Sanitize(input))
}
