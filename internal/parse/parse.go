// Package parse turns decoded remote payloads into domain entities. It
// never touches the network or the filesystem.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gallarr/internal/domain"
)

var (
	idPattern       = regexp.MustCompile(`^\D*?(\d+)$`)
	countPattern    = regexp.MustCompile(`(\d+(?:[.,]\d+)*)\s*([KkMm万萬]?)`)
	scramblePattern = regexp.MustCompile(`var scramble_id = (\d+)`)
)

// NormalizeID strips a textual prefix from an album or chapter id and
// treats the numeric remainder as canonical, e.g. "JM438516" -> 438516.
func NormalizeID(raw string) (int64, error) {
	m := idPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, fmt.Errorf("invalid id: %q", raw)
	}

	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id: %q: %w", raw, err)
	}

	return id, nil
}

// LenientCount reads the counters the service renders for humans, like
// "12,345", "3.2K" or "40萬". Garbage counts as zero, counters are cosmetic.
func LenientCount(raw string) int {
	m := countPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0
	}

	num, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0
	}

	switch m[2] {
	case "K", "k":
		num *= 1_000
	case "M", "m":
		num *= 1_000_000
	case "万", "萬":
		num *= 10_000
	}

	return int(num)
}

// ScrambleID extracts the scramble seed embedded in a chapter view page.
func ScrambleID(body []byte) (int64, bool) {
	m := scramblePattern.FindSubmatch(body)
	if m == nil {
		return 0, false
	}

	id, err := strconv.ParseInt(string(m[1]), 10, 64)
	if err != nil {
		return 0, false
	}

	return id, true
}

// ChapterSelection parses user input for ranges and parts, e.g. "1-3,7",
// and returns the matching chapters in the album's order.
func ChapterSelection(input string, chapters []domain.Chapter) ([]domain.Chapter, error) {
	parts := strings.Split(input, ",")
	wanted := make(map[int]bool)

	for _, part := range parts {
		if strings.Contains(part, "-") {
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid range format: %s", part)
			}
			start, end, err := getRange(rangeParts)
			if err != nil {
				return nil, err
			}

			for _, ch := range chapters {
				if ch.Order >= start && ch.Order <= end {
					wanted[ch.Order] = true
				}
			}
		} else {
			order, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			wanted[order] = true
		}
	}

	var selected []domain.Chapter
	for _, ch := range chapters {
		if wanted[ch.Order] {
			selected = append(selected, ch)
		}
	}

	return selected, nil
}

// getRange parses the user input for chapter ranges
func getRange(rangeParts []string) (int, int, error) {
	start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid start of range: %s", rangeParts[0])
	}
	end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid end of range: %s", rangeParts[1])
	}

	if start > end {
		return 0, 0, fmt.Errorf("start of range should not be greater than end: %s-%s", rangeParts[0], rangeParts[1])
	}

	return start, end, nil
}

// OrderBounds returns the chapters holding the lowest and highest order.
func OrderBounds(chapters []domain.Chapter) (first, latest domain.Chapter, err error) {
	if len(chapters) == 0 {
		return first, latest, fmt.Errorf("album has no chapters")
	}

	first, latest = chapters[0], chapters[0]
	for _, ch := range chapters[1:] {
		if ch.Order < first.Order {
			first = ch
		}
		if ch.Order > latest.Order {
			latest = ch
		}
	}

	return first, latest, nil
}
