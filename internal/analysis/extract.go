package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// Extract pulls a ResultSet out of raw model output. Models are told to
// return bare JSON but in practice wrap it in code fences or prose, so three
// strategies run in order: a fenced code block, the first brace-balanced
// object, and finally the whole text. A candidate is accepted only when it
// decodes to an object carrying a "results" key. The second return value is
// false when nothing usable was found, which is distinct from an empty set.
func Extract(text string) (*ResultSet, bool) {
	if m := fencedBlock.FindStringSubmatch(text); m != nil {
		if rs, ok := decodeResultSet(m[1]); ok {
			return rs, true
		}
	}
	if candidate, ok := balancedObject(text); ok {
		if rs, ok := decodeResultSet(candidate); ok {
			return rs, true
		}
	}
	if rs, ok := decodeResultSet(text); ok {
		return rs, true
	}
	return nil, false
}

// balancedObject isolates the minimal top-level object substring by brace
// depth counting from the first '{'.
func balancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
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

func decodeResultSet(candidate string) (*ResultSet, bool) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, false
	}
	if _, ok := doc["results"]; !ok {
		return nil, false
	}
	var rs ResultSet
	if err := json.Unmarshal([]byte(candidate), &rs); err != nil {
		return nil, false
	}
	if rs.Results == nil {
		rs.Results = []ResultItem{}
	}
	return &rs, true
}
