package llm

import (
	"encoding/json"
	"strings"

	"dealflow/internal/apperr"
)

// ParseStructured decodes a completion into T. A surrounding ```json or ```
// fence is stripped first. When the remainder is not a JSON object on its own,
// the first balanced JSON object inside it is decoded instead; null, arrays
// and scalars are rejected. Every failure is a MalformedResponse; no partial
// value is returned.
func ParseStructured[T any](raw string) (T, error) {
	var zero T
	text := StripFence(raw)
	if text == "" {
		return zero, apperr.Malformed(nil, "completion is empty")
	}
	if !isObject(text) {
		obj := extractJSONObject(text)
		if obj == "" {
			return zero, apperr.Malformed(nil, "completion contains no JSON object")
		}
		text = obj
	}
	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return zero, apperr.Malformed(err, "completion does not match the expected shape")
	}
	return out, nil
}

func isObject(text string) bool {
	return strings.HasPrefix(text, "{") && json.Valid([]byte(text))
}

// StripFence removes an optional markdown code fence around s.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimPrefix(s, "JSON")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractJSONObject returns the first brace-balanced, valid JSON object in
// text, or "" when there is none.
func extractJSONObject(text string) string {
	start := 0
	for {
		idx := strings.IndexByte(text[start:], '{')
		if idx < 0 {
			return ""
		}
		start += idx
		if end := matchBrace(text, start); end > 0 {
			if candidate := text[start:end]; json.Valid([]byte(candidate)) {
				return candidate
			}
		}
		start++
	}
}

// matchBrace returns the index just past the brace closing the one at start,
// ignoring braces inside strings, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
