package scanning

import "strings"

// StripCodeFences removes a leading markdown code fence and a trailing one
// from a model response. The prompts ask for bare JSON but models still wrap
// it often enough that every consumer has to deal with it.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// FirstPayload locates the first embedded JSON container in free-form text
// and returns the substring spanning its outermost matching bracket or brace
// pair. The scan is balance-aware and string-aware, so a payload followed by
// prose or containing nested containers is extracted intact rather than
// matched greedily to the last closing character in the text.
func FirstPayload(text string) (string, bool) {
	start := strings.IndexAny(text, "[{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[', '{':
			depth++
		case ']', '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
