// Package json is the module's encoding/json replacement backed by bytedance/sonic.
// Only the subset of the standard API used by llm-wire is exposed, plus a few
// helpers for compacting and pretty-printing raw request bodies.
package json

import (
	"bytes"
	stdjson "encoding/json"
	"io"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/encoder"
)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}

// Marshal returns the JSON encoding of v using sonic.
func Marshal(v any) ([]byte, error) {
	return sonic.Marshal(v)
}

// MarshalIndent returns the indented JSON encoding of v.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return sonic.MarshalIndent(v, prefix, indent)
}

// Unmarshal parses the JSON-encoded data and stores the result in v.
func Unmarshal(data []byte, v any) error {
	return sonic.Unmarshal(data, v)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return sonic.Valid(data)
}

type (
	// RawMessage is a raw encoded JSON value.
	RawMessage = stdjson.RawMessage

	// SyntaxError is a description of a JSON syntax error.
	SyntaxError = stdjson.SyntaxError
)

// Encoder writes JSON values to an output stream.
type Encoder struct {
	enc *encoder.StreamEncoder
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: encoder.NewStreamEncoder(w)}
}

// Encode writes the JSON encoding of v to the stream.
func (e *Encoder) Encode(v any) error {
	return e.enc.Encode(v)
}

// SetIndent instructs the encoder to format each subsequent encoded value.
func (e *Encoder) SetIndent(prefix, indent string) {
	e.enc.SetIndent(prefix, indent)
}

// Compact appends to dst the JSON-encoded src with insignificant space characters elided.
func Compact(dst *[]byte, src []byte) error {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := stdjson.Compact(buf, src); err != nil {
		return err
	}
	*dst = append(*dst, buf.Bytes()...)
	return nil
}

// Indent appends to dst an indented form of the JSON-encoded src.
func Indent(dst *[]byte, src []byte, prefix, indent string) error {
	buf := getBuffer()
	defer putBuffer(buf)
	if err := stdjson.Indent(buf, src, prefix, indent); err != nil {
		return err
	}
	*dst = append(*dst, buf.Bytes()...)
	return nil
}

// Pretty returns src indented with two spaces. Invalid input is returned unchanged
// so preview output never loses the original text.
func Pretty(src []byte) []byte {
	var out []byte
	if err := Indent(&out, src, "", "  "); err != nil {
		return src
	}
	return out
}

// CompactString is Compact for callers holding a string. Invalid input is returned as-is.
func CompactString(src string) string {
	var out []byte
	if err := Compact(&out, []byte(src)); err != nil {
		return src
	}
	return string(out)
}
