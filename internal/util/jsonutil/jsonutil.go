package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("jsonutil: no JSON value found")

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// Clean extracts the JSON document from a model reply: it strips markdown
// fences and surrounding prose, drops // and /* */ comments and control
// characters outside strings, and removes trailing commas.
func Clean(raw []byte) ([]byte, error) {
	s := strings.TrimSpace(string(raw))
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	s = outermost(s)
	if s == "" {
		return nil, ErrNoJSON
	}
	s = stripComments(s)
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return []byte(strings.TrimSpace(s)), nil
}

// outermost cuts s down to the span from the first '[' or '{' to the last
// matching closer, so prose before and after the payload is ignored.
func outermost(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	closer := byte(']')
	if s[start] == '{' {
		closer = '}'
	}
	end := strings.LastIndexByte(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// stripComments walks the text once, tracking string literals so that
// "https://x" survives while // and /* */ comments are removed.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			case c < 0x20 && c != '\t':
				// raw newlines and control bytes are invalid inside JSON strings
				if c == '\n' || c == '\r' {
					b.WriteByte(' ')
				}
				continue
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case c == '"':
			inStr = true
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
			continue
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				return b.String()
			}
			i += end + 3
			continue
		case c < 0x20 && c != '\n' && c != '\r' && c != '\t':
			continue
		case c == 0x7f:
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// UnmarshalFlex tries to unmarshal JSON bytes into v with best effort:
// 1) Direct unmarshal
// 2) Clean (fences, prose, comments, trailing commas) and unmarshal
// 3) Unwrap a JSON document encoded as a string and unmarshal
func UnmarshalFlex(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}
	cleaned, cerr := Clean(raw)
	if cerr == nil {
		if err := json.Unmarshal(cleaned, v); err == nil {
			return nil
		}
	}
	var inner string
	if err := json.Unmarshal(bytes.TrimSpace(raw), &inner); err == nil && inner != "" {
		if cleaned, err := Clean([]byte(inner)); err == nil {
			return json.Unmarshal(cleaned, v)
		}
	}
	if cerr != nil {
		return cerr
	}
	return json.Unmarshal(cleaned, v)
}

// MarshalNoEscape encodes v into JSON without HTML-escaping <, > and &.
func MarshalNoEscape(v any) ([]byte, error) {
	return encode(v, "")
}

// MarshalNoEscapeIndent is MarshalNoEscape with two-space style indentation.
func MarshalNoEscapeIndent(v any, indent string) ([]byte, error) {
	return encode(v, indent)
}

func encode(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
