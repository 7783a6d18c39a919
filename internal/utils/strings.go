package utils

import "strings"

// SplitList splits a comma-separated setting into trimmed values. Empty entries and
// repeats are dropped; the first occurrence keeps its position. Returns nil when
// nothing is left.
func SplitList(s string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
