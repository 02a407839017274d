package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedObject  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	bareObject    = regexp.MustCompile(`(?s)\{.*\}`)
	fencedArray   = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	bareArray     = regexp.MustCompile(`(?s)\[.*\]`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSONObject pulls the outermost JSON object out of model output, tolerating
// markdown fences, `//` comments and trailing commas. Empty when there is none.
func ExtractJSONObject(content string) string {
	if m := fencedObject.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := bareObject.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// ExtractJSONArray is ExtractJSONObject for arrays.
func ExtractJSONArray(content string) string {
	if m := fencedArray.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := bareArray.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// DecodeObject salvages a JSON object from content into v.
func DecodeObject(content string, v any) error {
	raw := ExtractJSONObject(content)
	if raw == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

// DecodeArray salvages a JSON array from content into v.
func DecodeArray(content string, v any) error {
	raw := ExtractJSONArray(content)
	if raw == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode model JSON: %w", err)
	}
	return nil
}

func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingComma.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment drops a trailing // comment that sits outside string literals.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString, escaped := false, false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/':
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
