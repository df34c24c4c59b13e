package jsonpath

import (
	"bytes"
	"strings"

	log "github.com/nghyane/llm-wire/internal/logging"
)

// Shape decides how several values aimed at one path are combined.
type Shape string

const (
	// ShapeArray collects every value into one array, in arrival order.
	ShapeArray Shape = "array"
	// ShapeSingle writes a lone value as-is. Several values at one single path
	// are still written as an array.
	ShapeSingle Shape = "single"
)

// Normalize maps the zero value to ShapeArray.
func (s Shape) Normalize() Shape {
	if s == ShapeSingle {
		return ShapeSingle
	}
	return ShapeArray
}

// Injection is one pending write.
type Injection struct {
	Path  string
	Shape Shape
	Value []byte
}

// Group is every injection aimed at one path.
type Group struct {
	Path   string
	Shape  Shape
	Values [][]byte
}

// GroupInjections buckets injections by path, keeping first-appearance order of
// paths and arrival order inside each bucket. When shapes disagree at a path the
// array shape wins, so no value is dropped silently.
func GroupInjections(injections []Injection) []Group {
	var groups []Group
	index := make(map[string]int, len(injections))
	for _, inj := range injections {
		key := strings.TrimSpace(inj.Path)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Path: key, Shape: inj.Shape.Normalize()})
		}
		if inj.Shape.Normalize() == ShapeArray {
			groups[i].Shape = ShapeArray
		}
		groups[i].Values = append(groups[i].Values, inj.Value)
	}
	return groups
}

// Apply writes all injections with one Set per path group. Array groups are
// appended after any elements the document already holds at that path. A
// single group holding more than one value is written as an array too.
// If doc is not a JSON object it is returned unchanged with ErrInvalidDocument.
func Apply(doc []byte, injections []Injection) ([]byte, error) {
	if !IsObject(doc) {
		return doc, ErrInvalidDocument
	}
	out := doc
	for _, g := range GroupInjections(injections) {
		if len(g.Values) == 0 {
			continue
		}
		var raw []byte
		switch {
		case g.Shape == ShapeSingle && len(g.Values) == 1:
			raw = g.Values[0]
		case g.Shape == ShapeSingle:
			log.WithField("path", g.Path).WithField("values", len(g.Values)).
				Warn("jsonpath: several values for a single path, writing an array")
			raw = joinArray("", g.Values)
		default:
			raw = joinArray(Lookup(out, g.Path).Raw, g.Values)
		}
		next, err := Set(out, g.Path, raw)
		if err != nil {
			return doc, err
		}
		out = next
	}
	return out, nil
}

func joinArray(existing string, values [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	if existing != "" {
		trimmed := strings.TrimSpace(existing)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			inner := strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			if inner != "" {
				buf.WriteString(inner)
				n++
			}
		}
	}
	for _, v := range values {
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(bytes.TrimSpace(v))
		n++
	}
	buf.WriteByte(']')
	return buf.Bytes()
}
