// Package jsonpath resolves dot-notation paths against raw JSON documents.
//
// Reads go through gjson and writes through sjson, so every write returns a new
// document and never mutates its input. Injection paths address object keys only;
// extraction paths (Get) may step into arrays with numeric segments the way gjson
// does, which is what streaming payloads like "choices.0.delta.content" need.
package jsonpath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	// ErrInvalidDocument is returned when the target document is not a JSON object.
	ErrInvalidDocument = errors.New("jsonpath: document is not a valid JSON object")
	// ErrInvalidValue is returned when the value to inject is not valid JSON.
	ErrInvalidValue = errors.New("jsonpath: value is not valid JSON")
	// ErrEmptyPath is returned for blank paths or paths with empty segments.
	ErrEmptyPath = errors.New("jsonpath: empty path")
)

// special lists bytes that carry meaning in gjson/sjson path syntax.
const special = `\.*?|#@!=<>%:`

// Enabled reports whether path addresses anything. Blank paths disable a field.
func Enabled(path string) bool {
	return strings.TrimSpace(path) != ""
}

// Segments splits path on dots. Blank paths and empty segments are rejected.
func Segments(path string) ([]string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrEmptyPath
	}
	segs := strings.Split(path, ".")
	for i, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: segment %d of %q", ErrEmptyPath, i, path)
		}
	}
	return segs, nil
}

func escapeSegment(seg string) string {
	if !strings.ContainsAny(seg, special) {
		return seg
	}
	var b strings.Builder
	b.Grow(len(seg) + 4)
	for i := 0; i < len(seg); i++ {
		if strings.IndexByte(special, seg[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(seg[i])
	}
	return b.String()
}

func isNumeric(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}

func readPath(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = escapeSegment(s)
	}
	return strings.Join(parts, ".")
}

// writePath forces numeric segments to be object keys; sjson would otherwise
// create arrays for them.
func writePath(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if isNumeric(s) {
			parts[i] = ":" + s
			continue
		}
		parts[i] = escapeSegment(s)
	}
	return strings.Join(parts, ".")
}

// Get extracts the value at path. Numeric segments index arrays.
func Get(doc []byte, path string) gjson.Result {
	segs, err := Segments(path)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(doc, readPath(segs))
}

// GetResult is Get for an already parsed document.
func GetResult(doc gjson.Result, path string) gjson.Result {
	segs, err := Segments(path)
	if err != nil {
		return gjson.Result{}
	}
	return doc.Get(readPath(segs))
}

// Lookup walks path through objects only, never indexing arrays.
func Lookup(doc []byte, path string) gjson.Result {
	segs, err := Segments(path)
	if err != nil {
		return gjson.Result{}
	}
	return lookup(gjson.ParseBytes(doc), segs)
}

func lookup(r gjson.Result, segs []string) gjson.Result {
	for _, s := range segs {
		if !r.IsObject() {
			return gjson.Result{}
		}
		r = r.Get(escapeSegment(s))
	}
	return r
}

// IsObject reports whether doc is a valid JSON object.
func IsObject(doc []byte) bool {
	return gjson.ValidBytes(doc) && gjson.ParseBytes(doc).IsObject()
}

// Set assigns raw at path, creating intermediate objects as needed. An
// intermediate that exists but is not an object is replaced by an empty object.
// The last segment is overwritten (last write wins).
func Set(doc []byte, path string, raw []byte) ([]byte, error) {
	if !IsObject(doc) {
		return doc, ErrInvalidDocument
	}
	if !gjson.ValidBytes(raw) {
		return doc, ErrInvalidValue
	}
	segs, err := Segments(path)
	if err != nil {
		return doc, err
	}

	out := doc
	for i := 1; i < len(segs); i++ {
		r := lookup(gjson.ParseBytes(out), segs[:i])
		if r.Exists() && !r.IsObject() {
			if out, err = sjson.SetRawBytes(out, writePath(segs[:i]), []byte("{}")); err != nil {
				return doc, fmt.Errorf("jsonpath: reset %q: %w", strings.Join(segs[:i], "."), err)
			}
		}
	}
	if out, err = sjson.SetRawBytes(out, writePath(segs), raw); err != nil {
		return doc, fmt.Errorf("jsonpath: set %q: %w", path, err)
	}
	return out, nil
}
