package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	fencedJSONPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedPattern     = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	bracePattern      = regexp.MustCompile(`\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)
)

var errNoJSON = errors.New("no JSON object in response")

// ExtractJSON pulls the first decodable JSON object out of an LLM
// response. It tries the whole text first, then markdown code fences,
// then any brace-delimited span.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errNoJSON
	}

	if obj, ok := decodeObject(trimmed); ok {
		return obj, nil
	}
	for _, pattern := range []*regexp.Regexp{fencedJSONPattern, fencedPattern} {
		for _, m := range pattern.FindAllStringSubmatch(trimmed, -1) {
			if obj, ok := decodeObject(m[1]); ok {
				return obj, nil
			}
		}
	}
	for _, m := range bracePattern.FindAllString(trimmed, -1) {
		if obj, ok := decodeObject(m); ok {
			return obj, nil
		}
	}
	return nil, errNoJSON
}

func decodeObject(candidate string) (json.RawMessage, bool) {
	var probe map[string]any
	if err := json.Unmarshal([]byte(candidate), &probe); err != nil {
		return nil, false
	}
	return json.RawMessage(candidate), true
}
