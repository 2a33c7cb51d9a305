// Package frontmatter splits and decodes YAML front matter blocks.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingClosingDelimiter indicates the document started with a YAML
// front matter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// Split separates YAML front matter (`---` delimited) from the body.
//
// If the document does not start with a delimiter line, had is false and body
// is the full input. LF and CRLF newlines are both recognized; a closing
// delimiter at end of file without a trailing newline is accepted.
func Split(content []byte) (fm []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	rest := content[len(open):]
	closeLine := []byte("---" + nl)
	if bytes.HasPrefix(rest, closeLine) {
		return []byte{}, rest[len(closeLine):], true, nil
	}
	if bytes.Equal(rest, []byte("---")) {
		return []byte{}, []byte{}, true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	if idx := bytes.Index(rest, closeSeq); idx >= 0 {
		return rest[:idx+len(nl)], rest[idx+len(closeSeq):], true, nil
	}
	tail := []byte(nl + "---")
	if bytes.HasSuffix(rest, tail) {
		return rest[:len(rest)-len("---")], []byte{}, true, nil
	}
	return nil, nil, false, ErrMissingClosingDelimiter
}

// Parse decodes raw YAML front matter (without delimiters) into a map.
func Parse(fm []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(fm)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(fm, &fields); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// Document is a source file broken into front matter and body.
type Document struct {
	Raw    []byte         // Raw front matter YAML
	Fields map[string]any // Decoded front matter
	Body   []byte
}

// Decode splits and parses content.
func Decode(content []byte) (*Document, error) {
	fm, body, _, err := Split(content)
	if err != nil {
		return nil, err
	}
	fields, err := Parse(fm)
	if err != nil {
		return nil, err
	}
	return &Document{Raw: fm, Fields: fields, Body: body}, nil
}

// String returns the string field key, or "" when missing or not a string.
func (d *Document) String(key string) string {
	if v, ok := d.Fields[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// Bool returns the boolean field key, or false.
func (d *Document) Bool(key string) bool {
	v, _ := d.Fields[key].(bool)
	return v
}

// Strings returns key as a list; a single string becomes a one element list.
func (d *Document) Strings(key string) []string {
	switch v := d.Fields[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
