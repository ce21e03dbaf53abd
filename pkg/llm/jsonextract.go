package llm

import "errors"

var (
	ErrNoJSONObject   = errors.New("no JSON object in response")
	ErrUnclosedObject = errors.New("JSON object not closed")
)

// ExtractJSONObject returns the first balanced {...} block in text. Braces
// inside string literals do not count towards depth, so surrounding prose
// and values such as "{ritmo}" are tolerated.
func ExtractJSONObject(text string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	if start < 0 {
		return "", ErrNoJSONObject
	}
	return "", ErrUnclosedObject
}
