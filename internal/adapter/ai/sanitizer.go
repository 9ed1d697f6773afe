// Package ai provides response repair and parsing for malformed LLM
// output: a best-effort JSON sanitizer and a tiered response parser.
package ai

import (
	"regexp"
	"strings"
)

// JSONSanitizer repairs common malformed-JSON patterns in model output.
// It is a pure string transform and never fails; it does not guarantee
// valid JSON, only better odds for the next parse attempt. The rules
// are ordering-sensitive: each assumes the prior ones already ran.
type JSONSanitizer struct{}

// NewJSONSanitizer creates a new sanitizer.
func NewJSONSanitizer() *JSONSanitizer { return &JSONSanitizer{} }

var (
	controlCharsRE = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]`)
	bareKeyRE      = regexp.MustCompile(`([{,]\s*)([a-zA-Z0-9_]+)(\s*:)`)
	adjacentStrRE  = regexp.MustCompile(`"\s*"\s*"`)
	adjacentObjRE  = regexp.MustCompile(`"\s*}\s*{`)
	trailingComRE  = regexp.MustCompile(`,\s*([}\]])`)
)

// Sanitize applies the repair rules in order:
// strip control characters; balance an odd quote count; quote bare
// object keys; insert commas between adjacent strings and adjacent
// objects; strip trailing commas; pad missing closing braces/brackets.
func (s *JSONSanitizer) Sanitize(text string) string {
	if text == "" {
		return "{}"
	}

	out := controlCharsRE.ReplaceAllString(text, "")

	if strings.Count(out, `"`)%2 != 0 {
		out += `"`
	}

	out = bareKeyRE.ReplaceAllString(out, `$1"$2"$3`)
	out = adjacentStrRE.ReplaceAllString(out, `","`)
	out = adjacentObjRE.ReplaceAllString(out, `"},{`)
	out = trailingComRE.ReplaceAllString(out, `$1`)

	if d := strings.Count(out, "{") - strings.Count(out, "}"); d > 0 {
		out += strings.Repeat("}", d)
	}
	if d := strings.Count(out, "[") - strings.Count(out, "]"); d > 0 {
		out += strings.Repeat("]", d)
	}
	return out
}
