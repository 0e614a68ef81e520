package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

// ErrInvalidJSON is returned when text is not a well-formed JSON object.
var ErrInvalidJSON = errors.New("invalid JSON object")

// Member is a single name/value pair of a JSON object.
type Member struct {
	Name  string
	Value any
}

// Object is a JSON object that keeps its member order.
type Object []Member

// Format selects the separator convention used when writing JSON text.
type Format int

const (
	// FormatCompact writes no insignificant whitespace.
	FormatCompact Format = iota
	// FormatRFCExample separates items with ",\r\n " as in the RFC 7515
	// Appendix A.1 example.
	FormatRFCExample
)

func (f Format) separators() (item, key string) {
	if f == FormatRFCExample {
		return ",\r\n ", ":"
	}
	return ",", ":"
}

// textAPI encodes strings and scalars. HTML escaping is off so that
// characters such as '<' and '&' reach the wire unchanged.
var textAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// Marshal writes value as JSON text using the separators of format.
func Marshal(value any, format Format) ([]byte, error) {
	var w writer
	w.item, w.key = format.separators()
	if err := w.value(value, 0); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

const maxDepth = 64

type writer struct {
	buf       bytes.Buffer
	item, key string
}

func (w *writer) value(v any, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("json nesting exceeds %d levels", maxDepth)
	}

	switch val := v.(type) {
	case nil:
		w.buf.WriteString("null")
	case bool:
		if val {
			w.buf.WriteString("true")
		} else {
			w.buf.WriteString("false")
		}
	case string:
		if !utf8.ValidString(val) {
			return fmt.Errorf("%w: string is not valid UTF-8", ErrInvalidJSON)
		}
		return w.scalar(val)
	case json.Number:
		if !validNumber(val.String()) {
			return fmt.Errorf("invalid number %q", val.String())
		}
		w.buf.WriteString(val.String())
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return w.scalar(val)
	case Object:
		return w.object(val, depth)
	case map[string]any:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		obj := make(Object, 0, len(names))
		for _, name := range names {
			obj = append(obj, Member{Name: name, Value: val[name]})
		}
		return w.object(obj, depth)
	case []any:
		w.buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				w.buf.WriteString(w.item)
			}
			if err := w.value(elem, depth+1); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
	case json.RawMessage:
		tree, err := parseValue(val)
		if err != nil {
			return err
		}
		return w.value(tree, depth)
	default:
		// Arbitrary Go values take one trip through json-iterator and are
		// re-read as an ordered tree so the separators apply at every level.
		raw, err := textAPI.Marshal(val)
		if err != nil {
			return fmt.Errorf("marshal %T: %w", val, err)
		}
		tree, err := parseValue(raw)
		if err != nil {
			return err
		}
		return w.value(tree, depth)
	}
	return nil
}

func (w *writer) object(obj Object, depth int) error {
	w.buf.WriteByte('{')
	for i, m := range obj {
		if i > 0 {
			w.buf.WriteString(w.item)
		}
		if !utf8.ValidString(m.Name) {
			return fmt.Errorf("%w: member name is not valid UTF-8", ErrInvalidJSON)
		}
		if err := w.scalar(m.Name); err != nil {
			return err
		}
		w.buf.WriteString(w.key)
		if err := w.value(m.Value, depth+1); err != nil {
			return fmt.Errorf("member %q: %w", m.Name, err)
		}
	}
	w.buf.WriteByte('}')
	return nil
}

func (w *writer) scalar(v any) error {
	raw, err := textAPI.Marshal(v)
	if err != nil {
		return err
	}
	w.buf.Write(raw)
	return nil
}

// ParseObject parses data as a single JSON object, keeping member order.
// Nested objects become Object, arrays []any and numbers json.Number.
// Invalid UTF-8, duplicate member names and trailing data are rejected.
func ParseObject(data []byte) (Object, error) {
	tree, err := parseValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := tree.(Object)
	if !ok {
		return nil, fmt.Errorf("%w: top-level value is %s", ErrInvalidJSON, kindOf(tree))
	}
	return obj, nil
}

func parseValue(data []byte) (any, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidJSON)
	}
	iter := jsoniter.ParseBytes(textAPI, data)
	r := reader{iter: iter}
	v := r.value(0)
	if r.err != nil {
		return nil, r.err
	}
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, iter.Error)
	}

	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after value", ErrInvalidJSON)
	}
	return v, nil
}

type reader struct {
	iter *jsoniter.Iterator
	err  error
}

func (r *reader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]any{ErrInvalidJSON}, args...)...)
	}
}

// check records any iterator error, including a premature end of input.
func (r *reader) check() {
	if r.iter.Error != nil {
		r.fail("%v", r.iter.Error)
	}
}

func (r *reader) value(depth int) any {
	if depth > maxDepth {
		r.fail("nesting exceeds %d levels", maxDepth)
		return nil
	}

	iter := r.iter
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		obj := Object{}
		seen := make(map[string]struct{})
		ok := iter.ReadObjectCB(func(it *jsoniter.Iterator, name string) bool {
			if _, dup := seen[name]; dup {
				r.fail("duplicate member %q", name)
				return false
			}
			seen[name] = struct{}{}
			v := r.value(depth + 1)
			obj = append(obj, Member{Name: name, Value: v})
			return r.err == nil && it.Error == nil
		})
		if !ok {
			r.fail("malformed object")
		}
		return obj
	case jsoniter.ArrayValue:
		arr := []any{}
		ok := iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			arr = append(arr, r.value(depth+1))
			return r.err == nil && it.Error == nil
		})
		if !ok {
			r.fail("malformed array")
		}
		return arr
	case jsoniter.StringValue:
		s := iter.ReadString()
		r.check()
		return s
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		if iter.Error != nil && iter.Error != io.EOF {
			r.fail("%v", iter.Error)
		} else if !validNumber(n.String()) {
			r.fail("invalid number %q", n.String())
		}
		return n
	case jsoniter.BoolValue:
		b := iter.ReadBool()
		r.check()
		return b
	case jsoniter.NilValue:
		iter.ReadNil()
		r.check()
		return nil
	default:
		r.fail("unexpected input")
		return nil
	}
}

// validNumber reports whether s matches the JSON number grammar:
// -?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?
func validNumber(s string) bool {
	i := 0
	if i < len(s) && s[i] == '-' {
		i++
	}
	switch {
	case i < len(s) && s[i] == '0':
		i++
	case i < len(s) && s[i] >= '1' && s[i] <= '9':
		i = skipDigits(s, i)
	default:
		return false
	}
	if i < len(s) && s[i] == '.' {
		j := skipDigits(s, i+1)
		if j == i+1 {
			return false
		}
		i = j
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		j := skipDigits(s, i)
		if j == i {
			return false
		}
		i = j
	}
	return i == len(s)
}

func skipDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}

func kindOf(v any) string {
	switch v.(type) {
	case Object:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return "null"
	}
}
