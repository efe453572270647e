package generator

import "strings"

// SafetyItems splits a '*'-delimited safety string into its bullet entries,
// trimmed, with empty segments dropped.
func SafetyItems(s string) []string {
	parts := strings.Split(s, "*")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
