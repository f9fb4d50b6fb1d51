package highlights

import "strings"

// DefaultKeywords is the keyword list used when none is given.
const DefaultKeywords = "important,summary,highlight"

// ParseKeywords splits a comma separated list into trimmed, lowercased,
// de-duplicated keywords.
func ParseKeywords(s string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, kw := range strings.Split(s, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
