package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"unicode/utf16"
	"unicode/utf8"
)

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return Spaced(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// Spaced puts a single space after every ',' and ':' separating array
// elements and object members of a compact JSON document, so `{"a":1,"b":2}`
// becomes `{"a": 1, "b": 2}`. Bytes inside strings are left alone.
func Spaced(compact []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(compact) + len(compact)/8)
	inString := false
	escaped := false
	for _, b := range compact {
		out.WriteByte(b)
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case !inString && (b == ',' || b == ':'):
			out.WriteByte(' ')
		}
	}
	return out.Bytes()
}

// EscapeNonASCII rewrites every rune outside printable ASCII of an encoded
// JSON document as a \uXXXX escape, runes outside the BMP become surrogate
// pairs. Such runes can only occur inside JSON strings so the document stays
// valid.
func EscapeNonASCII(encoded []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(encoded))
	for len(encoded) > 0 {
		r, size := utf8.DecodeRune(encoded)
		encoded = encoded[size:]
		// DEL is escaped along with everything above it
		if r < 0x7f {
			out.WriteRune(r)
			continue
		}
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			fmt.Fprintf(&out, `\u%04x\u%04x`, hi, lo)
			continue
		}
		fmt.Fprintf(&out, `\u%04x`, r)
	}
	return out.Bytes()
}

// WriteASCII writes v as a single line of JSON with non-ASCII escaped.
func WriteASCII(w io.Writer, v any) error {
	encoded, err := marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(EscapeNonASCII(encoded)))
	return err
}

// WriteUnicode writes v as a single line of JSON with non-ASCII left as is.
func WriteUnicode(w io.Writer, v any) error {
	encoded, err := marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
