package openrouter

import "strings"

// LooksTruncated heuristically judges whether completion text was cut
// off mid-structure. It is deliberately conservative: it only flags
// unambiguous truncation, and the response parser has its own recovery
// for everything it misses. Any one check firing means truncated:
//
//  1. an opening ```json fence with no closing fence anywhere
//  2. question-batch output whose trimmed text ends with a comma
//  3. an opened array that never closes, in a suspiciously short blob
func LooksTruncated(text string) bool {
	trimmed := strings.TrimSpace(text)

	if strings.Contains(text, "```json") && strings.Count(text, "```") < 2 {
		return true
	}
	if strings.Contains(text, `"question":`) && strings.HasSuffix(trimmed, ",") {
		return true
	}
	if strings.HasPrefix(trimmed, "[") && !strings.Contains(text, "]") && len(text) < 500 {
		return true
	}
	return false
}
