package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no JSON object can be recovered from model output.
var ErrNoJSON = errors.New("no JSON object in model output")

var (
	fencedBlock    = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	bareKey        = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	thinkingBlocks = regexp.MustCompile(`(?s)<think>.*?</think>`)
)

// ParseModelJSON decodes the first JSON object found in a chat model reply
// into target. Replies are often wrapped in code fences, prefixed with
// prose, or carry trailing commas and unquoted keys; each candidate is
// tried raw and then repaired.
func ParseModelJSON(input string, target any) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	input = strings.TrimSpace(thinkingBlocks.ReplaceAllString(input, ""))
	if input == "" {
		return ErrNoJSON
	}

	for _, candidate := range jsonCandidates(input) {
		if json.Unmarshal([]byte(candidate), target) == nil {
			return nil
		}
		if json.Unmarshal([]byte(repairJSON(candidate)), target) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoJSON, Truncate(input, 100))
}

func jsonCandidates(input string) []string {
	candidates := []string{input}
	if m := fencedBlock.FindStringSubmatch(input); len(m) > 1 {
		candidates = append(candidates, strings.TrimSpace(m[1]))
	}
	if start := strings.IndexByte(input, '{'); start >= 0 {
		if obj := balancedObject(input[start:]); obj != "" {
			candidates = append(candidates, obj)
		}
	}
	return candidates
}

// balancedObject returns the prefix of s that closes its first '{',
// ignoring braces inside string literals.
func balancedObject(s string) string {
	depth := 0
	inString, escaped := false, false
	for i, ch := range s {
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

func repairJSON(s string) string {
	s = trailingComma.ReplaceAllString(s, "$1")
	s = bareKey.ReplaceAllString(s, `$1"$2"$3`)
	s = singleToDoubleQuotes(s)
	return controlChars.ReplaceAllString(s, "")
}

// singleToDoubleQuotes swaps single-quoted JSON strings for double-quoted
// ones, leaving apostrophes inside double-quoted strings alone.
func singleToDoubleQuotes(s string) string {
	var b strings.Builder
	inDouble, inSingle, escaped := false, false, false
	for _, ch := range s {
		switch {
		case escaped:
			escaped = false
		case ch == '\\':
			escaped = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			b.WriteRune('"')
			continue
		case ch == '"' && inSingle:
			b.WriteString(`\"`)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
