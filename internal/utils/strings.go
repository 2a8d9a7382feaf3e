package utils

import (
	"strconv"
	"strings"
)

// PadInt zero-pads n to at least width digits. Wider numbers pass through
// unchanged.
func PadInt(n int, width int) string {
	s := strconv.Itoa(n)

	if pad := width - len(s); pad > 0 {
		return strings.Repeat("0", pad) + s
	}

	return s
}
