package chat

import (
	"regexp"

	"github.com/viewdesk/viewdesk/internal/discover"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// ExtractJSON finds a JSON object in an assistant reply: a ```json fenced
// block first, then the first balanced {...} span. It reports false when no
// candidate parses as an object.
func ExtractJSON(text string) (map[string]interface{}, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if doc, ok := parseObject(m[1]); ok {
			return doc, true
		}
	}

	span, ok := firstBraceSpan(text)
	if !ok {
		return nil, false
	}
	return parseObject(span)
}

func parseObject(s string) (map[string]interface{}, bool) {
	v, err := discover.DecodeJSON([]byte(s))
	if err != nil {
		return nil, false
	}
	doc, ok := v.(map[string]interface{})
	return doc, ok && doc != nil
}

// firstBraceSpan returns the text from the first '{' to its matching '}',
// ignoring braces inside JSON strings.
func firstBraceSpan(text string) (string, bool) {
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
				return text[start : i+1], true
			}
		}
	}
	return "", false
}
