package feed

import "strings"

const maxExcerptChars = 280

// Excerpt synthesises a preview from content when none is supplied
// (spec.md §4.11): the first <=2 sentences if they fit in 280 chars,
// else a word-boundary truncation to 280, else a hard truncation — in
// all truncating cases an ellipsis is appended.
func Excerpt(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	sentences := splitSentences(content)
	if len(sentences) > 0 {
		candidate := strings.TrimSpace(strings.Join(sentences[:min(2, len(sentences))], " "))
		if len([]rune(candidate)) <= maxExcerptChars {
			return candidate
		}
	}

	runes := []rune(content)
	if len(runes) <= maxExcerptChars {
		return content
	}

	truncated := runes[:maxExcerptChars]
	if idx := lastSpace(truncated); idx > 0 {
		return string(truncated[:idx]) + "…"
	}
	return string(truncated) + "…"
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	runes := []rune(s)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			out = append(out, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if start < len(runes) {
		rest := strings.TrimSpace(string(runes[start:]))
		if rest != "" {
			out = append(out, rest)
		}
	}
	return out
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return -1
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
