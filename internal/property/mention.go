package property

import "strings"

// ResolveMention returns the name of the known property whose display name
// occurs in text, ignoring case. When several names occur the longest one
// wins ("Skyline Heights" over "Skyline"); equal lengths fall back to the
// order of known. It never mutates anything.
func ResolveMention(text string, known []Summary) (string, bool) {
	haystack := strings.ToLower(text)
	best := ""
	for _, p := range known {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if !strings.Contains(haystack, strings.ToLower(name)) {
			continue
		}
		if len(name) > len(best) {
			best = name
		}
	}
	return best, best != ""
}
