package llm

import "strings"

// ExtractCode returns the body of the first fenced code block in s, or ""
// when s has none. Replies from the analyzers mix prose with a pseudo-C
// listing; this pulls the listing out.
func ExtractCode(s string) string {
	lines := strings.Split(s, "\n")

	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return ""
	}

	end := len(lines)
	for i := start; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.Trim(strings.Join(lines[start:end], "\n"), "\n")
}
