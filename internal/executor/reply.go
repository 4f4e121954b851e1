package executor

import "strings"

// NormalizeReply strips the markdown code fences some models wrap around
// JSON output and trims surrounding whitespace. It never repairs malformed
// JSON; a reply that does not parse after normalization is a hard failure.
func NormalizeReply(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	firstNewline := strings.Index(trimmed, "\n")
	if firstNewline == -1 {
		return trimmed
	}
	lastFence := strings.LastIndex(trimmed, "```")
	if lastFence <= firstNewline {
		return trimmed
	}
	return strings.TrimSpace(trimmed[firstNewline+1 : lastFence])
}
