package util

import "strings"

// Slugify derives a URL-safe identifier from a title. Lowercase ASCII
// letters and digits are kept, every other run of characters collapses to a
// single dash. Falls back to "untitled" when nothing survives.
func Slugify(title string) string {
	out := make([]rune, 0, len(title))
	lastDash := false
	for _, raw := range strings.ToLower(strings.TrimSpace(title)) {
		if (raw >= 'a' && raw <= 'z') || (raw >= '0' && raw <= '9') {
			out = append(out, raw)
			lastDash = false
			continue
		}
		if !lastDash {
			out = append(out, '-')
			lastDash = true
		}
	}
	slug := strings.Trim(string(out), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}
