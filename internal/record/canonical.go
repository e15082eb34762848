package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf16"
)

const hexDigits = "0123456789abcdef"

// Canonical returns the deterministic serialization of r: a compact JSON
// object with keys in insertion order and every value a string. Anything
// outside printable ASCII is written as a \u escape so the bytes are 7-bit
// clean.
func (r *Record) Canonical() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(&buf, f.Key)
		buf.WriteByte(':')
		writeString(&buf, f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// MarshalJSON implements json.Marshaler using the canonical form.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.Canonical(), nil
}

// UnmarshalJSON implements json.Unmarshaler with Parse semantics.
func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case c >= 0x20 && c <= 0x7e:
				buf.WriteByte(byte(c))
			case c > 0xffff:
				hi, lo := utf16.EncodeRune(c)
				writeEscape(buf, hi)
				writeEscape(buf, lo)
			default:
				writeEscape(buf, c)
			}
		}
	}
	buf.WriteByte('"')
}

func writeEscape(buf *bytes.Buffer, c rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hexDigits[(c>>12)&0xf])
	buf.WriteByte(hexDigits[(c>>8)&0xf])
	buf.WriteByte(hexDigits[(c>>4)&0xf])
	buf.WriteByte(hexDigits[c&0xf])
}

// Parse decodes a flat JSON object of string values, keeping the key order of
// the source. It is the inverse of Canonical for any record Canonical
// produced.
func Parse(data []byte) (*Record, error) {
	return parse(data, false)
}

// ParseFields decodes caller supplied metadata. Numbers and booleans are
// coerced to their JSON text and null to the empty string; nested values are
// rejected.
func ParseFields(data []byte) (*Record, error) {
	return parse(data, true)
}

func parse(data []byte, coerce bool) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrMalformed)
	}
	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: expected key", ErrMalformed)
		}
		tok, err = dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		value, err := scalar(key, tok, coerce)
		if err != nil {
			return nil, err
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return out, nil
}

func scalar(key string, tok json.Token, coerce bool) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		if coerce {
			return v.String(), nil
		}
	case bool:
		if coerce {
			if v {
				return "true", nil
			}
			return "false", nil
		}
	case nil:
		if coerce {
			return "", nil
		}
	}
	return "", fmt.Errorf("%w: field %q is not a string", ErrMalformed, key)
}
