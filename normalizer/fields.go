package normalizer

import (
	"encoding/json"
	"path"
	"strings"
)

var titleSuffixes = []string{
	" : a novel",
	": a novel",
	" - a novel",
}

// CleanTitle trims whitespace and strips boilerplate suffixes until none remain.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for {
		stripped := false
		for _, suffix := range titleSuffixes {
			n := len(title) - len(suffix)
			if n >= 0 && strings.EqualFold(title[n:], suffix) {
				title = strings.TrimSpace(title[:n])
				stripped = true
				break
			}
		}
		if !stripped {
			return title
		}
	}
}

// CoerceNames turns a single name, a list of names, or a list of
// {"name": ...} / {"key": "/authors/..."} objects into an ordered list.
// A string holding a list literal ("['A', 'B']") is decoded as a list.
func CoerceNames(v any) []string {
	var out []string
	appendName := func(item any) {
		if name := nameOf(item); name != "" {
			out = append(out, name)
		}
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		trimmed := strings.TrimSpace(val)
		if strings.HasPrefix(trimmed, "[") {
			var list []any
			if decodeLoose(trimmed, &list) {
				for _, item := range list {
					appendName(item)
				}
				return out
			}
		}
		appendName(trimmed)
	case []string:
		for _, item := range val {
			appendName(item)
		}
	case []any:
		for _, item := range val {
			appendName(item)
		}
	default:
		appendName(val)
	}
	return out
}

func nameOf(item any) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return TextValue(item)
	}
	if name := TextValue(obj["name"]); name != "" {
		return name
	}
	if key := TextValue(obj["key"]); key != "" {
		return path.Base(key)
	}
	return ""
}

// DecodeIdentifiers reads the identifier map in any of the shapes the catalog
// or a previous dump produce: a decoded object, a JSON string, or a
// single-quoted pseudo-JSON string. Values may be a string or a list. Anything
// undecodable yields an empty map.
func DecodeIdentifiers(v any) map[string][]string {
	out := map[string][]string{}

	var obj map[string]any
	switch val := v.(type) {
	case nil:
		return out
	case map[string]any:
		obj = val
	case map[string][]string:
		for k, values := range val {
			if list := CoerceNames(values); len(list) > 0 {
				out[k] = list
			}
		}
		return out
	case string:
		if !decodeLoose(val, &obj) {
			return out
		}
	default:
		return out
	}

	for scheme, raw := range obj {
		scheme = strings.TrimSpace(scheme)
		if scheme == "" {
			continue
		}
		if values := CoerceNames(raw); len(values) > 0 {
			out[scheme] = values
		}
	}
	return out
}

// decodeLoose parses JSON, retrying with single quotes swapped for double quotes.
func decodeLoose(text string, target any) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if err := json.Unmarshal([]byte(text), target); err == nil {
		return true
	}
	return json.Unmarshal([]byte(strings.ReplaceAll(text, "'", `"`)), target) == nil
}
