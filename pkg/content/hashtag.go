package content

import (
	"regexp"
	"strings"
)

var hashtagPattern = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_]+)`)

// ExtractHashtags pulls out de-duplicated, lowercased hashtags from
// content in first-seen order (spec.md §4.8).
func ExtractHashtags(content string) []string {
	matches := hashtagPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	var out []string
	for _, m := range matches {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
