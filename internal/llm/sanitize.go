package llm

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// StripThinkingTags removes <think>...</think> blocks from model output.
// An unterminated block swallows the rest of the text.
func StripThinkingTags(s string) string {
	for {
		start := strings.Index(s, thinkOpen)
		if start < 0 {
			break
		}
		rel := strings.Index(s[start:], thinkClose)
		if rel < 0 {
			s = s[:start]
			break
		}
		s = s[:start] + s[start+rel+len(thinkClose):]
	}
	return strings.TrimSpace(s)
}
