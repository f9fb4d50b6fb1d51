package highlights

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Vishalytig/shortsbot/internal/types"
)

var reRange = regexp.MustCompile(
	`(\d+(?::\d+){1,2}(?:\.\d+)?)\s*(?:-{1,2}|–|—|~|(?i:to))\s*(\d+(?::\d+){1,2}(?:\.\d+)?)`,
)

const (
	labelLeftCutset  = " \t:-–—|])>*_\"'`"
	labelRightCutset = " \t\r*_\"'`,;|(["
)

// ParseTimestamps extracts "start - end: label" entries from freeform model
// output. It is best-effort: entries with unparsable times or end <= start are
// dropped, and text without any entry yields an empty slice.
func ParseTimestamps(text string) []types.Candidate {
	matches := reRange.FindAllStringSubmatchIndex(text, -1)
	out := make([]types.Candidate, 0, len(matches))
	for i, m := range matches {
		start, ok := clockToDuration(text[m[2]:m[3]])
		if !ok {
			continue
		}
		end, ok := clockToDuration(text[m[4]:m[5]])
		if !ok || end <= start {
			continue
		}

		// The label runs to the end of the line or up to the next range on it.
		labelEnd := len(text)
		if nl := strings.IndexByte(text[m[1]:], '\n'); nl >= 0 {
			labelEnd = m[1] + nl
		}
		if i+1 < len(matches) && matches[i+1][0] < labelEnd {
			labelEnd = matches[i+1][0]
		}
		label := strings.TrimLeft(text[m[1]:labelEnd], labelLeftCutset)
		label = strings.TrimRight(label, labelRightCutset)

		out = append(out, types.Candidate{Start: start, End: end, Label: label})
	}
	return out
}

// clockToDuration converts clock strings such as "01:10", "1:02:03" or
// "00:59.5". The rightmost group is seconds and each group to the left is worth
// 60 times the next.
func clockToDuration(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, false
	}
	sec, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || sec < 0 {
		return 0, false
	}
	total := sec
	mult := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, false
		}
		total += float64(n) * mult
		mult *= 60
	}
	return time.Duration(math.Round(total * float64(time.Second))), true
}
