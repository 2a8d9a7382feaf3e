package sanitize

import (
	"regexp"
	"strings"
)

var illegalChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Filename strips characters that are invalid in file names on common
// filesystems and trims surrounding spaces and dots.
func Filename(name string) string {
	return illegalChars.ReplaceAllString(strings.Trim(name, " ."), "")
}
