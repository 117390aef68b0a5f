// Package textfilter cleans up generator output before it is parsed.
//
// Generators are asked for strict JSON but regularly wrap it in markdown
// fences, leave trailing commas, or stop mid-document when they hit the
// output limit. The repair here is best effort: a repaired document may still
// fail to parse, and deeply nested truncation can produce JSON that parses but
// does not mean what the generator intended.
package textfilter

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencePattern         = regexp.MustCompile("```(?:json|JSON)?[ \t]*\n?")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Sanitize strips fences and, if the result is not valid JSON, repairs it.
func Sanitize(text string) string {
	cleaned := StripCodeFence(text)
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}
	return RepairJSON(cleaned)
}

// StripCodeFence removes markdown code fence markers and surrounding space.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.Contains(text, "```") {
		return text
	}
	return strings.TrimSpace(fencePattern.ReplaceAllString(text, ""))
}

// RepairJSON removes trailing commas and closes a truncated document.
//
// When the text does not end in a closing delimiter, an unterminated string is
// closed first, then every missing ']' is appended followed by every missing
// '}'. Delimiters are counted on raw characters, so braces inside strings
// are counted too.
func RepairJSON(text string) string {
	cleaned := removeTrailingCommas(strings.TrimSpace(text))

	if strings.HasSuffix(cleaned, "}") || strings.HasSuffix(cleaned, "]") {
		return cleaned
	}

	if inString(cleaned) {
		cleaned += `"`
	}

	openBraces := strings.Count(cleaned, "{")
	closeBraces := strings.Count(cleaned, "}")
	openBrackets := strings.Count(cleaned, "[")
	closeBrackets := strings.Count(cleaned, "]")

	var sb strings.Builder
	sb.WriteString(cleaned)
	for i := 0; i < openBrackets-closeBrackets; i++ {
		sb.WriteByte(']')
	}
	for i := 0; i < openBraces-closeBraces; i++ {
		sb.WriteByte('}')
	}

	// truncation right after a comma leaves one behind the new closers
	return removeTrailingCommas(sb.String())
}

func removeTrailingCommas(text string) string {
	return trailingCommaPattern.ReplaceAllString(text, "$1")
}

// inString reports whether text ends inside an unterminated string literal.
func inString(text string) bool {
	open := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && open:
			escaped = true
		case c == '"':
			open = !open
		}
	}
	return open
}
