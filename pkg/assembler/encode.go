package assembler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/neo4j-product-examples/graphrag-examples/pkg/types"
)

const jsonIndent = " "

// encodeJSON writes records as an indented array. Each record marshals
// itself in insertion order; the ordered map escapes HTML characters, which
// are restored afterwards.
func encodeJSON(records []*types.Metadata, ensureASCII bool) (string, error) {
	if records == nil {
		records = []*types.Metadata{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("failed to encode records: %w", err)
	}

	out := string(unescapeHTML(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))))
	if ensureASCII {
		return escapeNonASCII(out), nil
	}
	return out, nil
}

var htmlEscapes = map[string]byte{
	"003c": '<',
	"003e": '>',
	"0026": '&',
}

// unescapeHTML turns the \u003c, \u003e and \u0026 escapes of a JSON
// document back into literal characters. Escaped backslashes are copied
// through as pairs so literal text such as \\u003c survives.
func unescapeHTML(doc []byte) []byte {
	out := make([]byte, 0, len(doc))
	for i := 0; i < len(doc); i++ {
		if doc[i] != '\\' || i+1 >= len(doc) {
			out = append(out, doc[i])
			continue
		}
		if doc[i+1] == 'u' && i+6 <= len(doc) {
			if c, ok := htmlEscapes[string(doc[i+2:i+6])]; ok {
				out = append(out, c)
				i += 5
				continue
			}
		}
		out = append(out, doc[i], doc[i+1])
		i++
	}
	return out
}

// escapeNonASCII rewrites every rune above 0x7f as a \u escape, using
// surrogate pairs outside the basic multilingual plane.
func escapeNonASCII(s string) string {
	var sb bytes.Buffer
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			sb.WriteRune(r)
		case r > 0xffff:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&sb, "\\u%04x\\u%04x", r1, r2)
		default:
			fmt.Fprintf(&sb, "\\u%04x", r)
		}
	}
	return sb.String()
}

// encodeYAML writes records as a YAML sequence of mappings, keeping field order.
func encodeYAML(records []*types.Metadata) (string, error) {
	root := &yaml.Node{Kind: yaml.SequenceNode}
	for _, rec := range records {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for pair := rec.Oldest(); pair != nil; pair = pair.Next() {
			key := &yaml.Node{}
			if err := key.Encode(pair.Key); err != nil {
				return "", err
			}
			value := &yaml.Node{}
			if err := value.Encode(pair.Value); err != nil {
				return "", fmt.Errorf("field %q: %w", pair.Key, err)
			}
			mapping.Content = append(mapping.Content, key, value)
		}
		root.Content = append(root.Content, mapping)
	}
	if len(root.Content) == 0 {
		root.Style = yaml.FlowStyle
	}

	out, err := yaml.Marshal(root)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
