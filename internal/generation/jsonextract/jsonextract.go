// Package jsonextract decodes a JSON object out of free-form model output.
//
// Chat and vision models are asked for JSON but frequently wrap it in a
// markdown code fence, prefix it with prose, or emit trailing commas and
// single-quoted strings. Decode tolerates all of these: it isolates the
// outermost object, tries strict encoding/json first and falls back to a
// JSON5 parser after rewriting single-quoted strings as double-quoted ones.
package jsonextract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"
)

// ErrNoObject is returned when the text contains no JSON object.
var ErrNoObject = errors.New("no JSON object found in model output")

// Decode extracts the first JSON object from text into v.
func Decode(text string, v any) error {
	obj, err := Extract(text)
	if err != nil {
		return err
	}

	strictErr := json.Unmarshal([]byte(obj), v)
	if strictErr == nil {
		return nil
	}
	if err := json5.Unmarshal([]byte(normalizeQuotes(obj)), v); err != nil {
		return fmt.Errorf("decode model output: %w", strictErr)
	}
	return nil
}

// Extract returns the outermost {...} span of text after stripping any code
// fence around it.
func Extract(text string) (string, error) {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", ErrNoObject
	}
	end := matchingBrace(text, start)
	if end < 0 {
		// Unbalanced output; hand the tail to the decoder so it reports a
		// real syntax error.
		end = strings.LastIndexByte(text, '}')
		if end < start {
			return "", ErrNoObject
		}
	}
	return text[start : end+1], nil
}

func stripFence(text string) string {
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string (```json).
		if !strings.ContainsAny(body[:nl], "{[") {
			body = body[nl+1:]
		}
	}
	if closing := strings.Index(body, "```"); closing >= 0 {
		body = body[:closing]
	}
	return strings.TrimSpace(body)
}

// normalizeQuotes rewrites single-quoted string literals as double-quoted
// ones. The json5 decoder only accepts double quotes.
func normalizeQuotes(text string) string {
	if !strings.ContainsRune(text, '\'') {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	var quote byte
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote == 0:
			if c == '\'' {
				quote = c
				b.WriteByte('"')
				continue
			}
			if c == '"' {
				quote = c
			}
			b.WriteByte(c)
		case escaped:
			escaped = false
			if quote == '\'' && c == '\'' {
				b.WriteByte(c)
				continue
			}
			b.WriteByte('\\')
			b.WriteByte(c)
		case c == '\\':
			escaped = true
		case c == quote:
			quote = 0
			b.WriteByte('"')
		case quote == '\'' && c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// matchingBrace returns the index of the brace closing the one at start,
// skipping braces inside string literals, or -1.
func matchingBrace(text string, start int) int {
	depth := 0
	var quote byte
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
