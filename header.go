package jws

import (
	"fmt"
	"sort"

	"github.com/cybergodev/jws/internal/core"
)

// Header parameter names registered by RFC 7515 §4.1, plus "nonce" from
// RFC 8555 §6.5.2.
const (
	HeaderAlgorithm   = "alg"
	HeaderJWKSetURL   = "jku"
	HeaderJWK         = "jwk"
	HeaderKeyID       = "kid"
	HeaderX509URL     = "x5u"
	HeaderX509Chain   = "x5c"
	HeaderX509SHA1    = "x5t"
	HeaderX509SHA256  = "x5t#S256"
	HeaderType        = "typ"
	HeaderContentType = "cty"
	HeaderCritical    = "crit"
	HeaderNonce       = "nonce"
)

// registeredHeaders may not appear in "crit" (RFC 7515 §4.1.11).
var registeredHeaders = map[string]struct{}{
	HeaderAlgorithm: {}, HeaderJWKSetURL: {}, HeaderJWK: {}, HeaderKeyID: {},
	HeaderX509URL: {}, HeaderX509Chain: {}, HeaderX509SHA1: {}, HeaderX509SHA256: {},
	HeaderType: {}, HeaderContentType: {}, HeaderCritical: {},
}

// Member is a single name/value pair of a JSON object.
type Member = core.Member

// Object is a JSON object that keeps its member order. Use it for JSON
// payloads whose encoding must be byte-for-byte reproducible.
type Object = core.Object

// Header is a JOSE header: an ordered set of uniquely named parameters.
// A Header is never modified in place; With and Without return copies.
// Values are shared shallowly, so callers must not mutate slices or maps
// after placing them in a Header.
type Header struct {
	members Object
}

// NewHeader builds a header from members in the given order.
func NewHeader(members ...Member) (Header, error) {
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if m.Name == "" {
			return Header{}, &ValidationError{Field: "header", Message: "empty parameter name"}
		}
		if _, dup := seen[m.Name]; dup {
			return Header{}, &ValidationError{Field: m.Name, Message: "duplicate header parameter"}
		}
		seen[m.Name] = struct{}{}
	}
	return Header{members: append(Object(nil), members...)}, nil
}

// MustHeader is like NewHeader but panics on error. Intended for literals.
func MustHeader(members ...Member) Header {
	h, err := NewHeader(members...)
	if err != nil {
		panic(err)
	}
	return h
}

// HeaderFromMap builds a header from m with parameters sorted by name.
func HeaderFromMap(m map[string]any) Header {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	members := make(Object, 0, len(names))
	for _, name := range names {
		members = append(members, Member{Name: name, Value: m[name]})
	}
	return Header{members: members}
}

// ParseHeader parses JSON text into a header, keeping parameter order.
func ParseHeader(data []byte) (Header, error) {
	obj, err := core.ParseObject(data)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidHeaderJSON, err)
	}
	return Header{members: obj}, nil
}

// Get returns the value of the named parameter.
func (h Header) Get(name string) (any, bool) {
	for _, m := range h.members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Has reports whether the named parameter is present.
func (h Header) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Algorithm returns the "alg" parameter when it is present and a string.
func (h Header) Algorithm() (string, bool) {
	return h.stringParam(HeaderAlgorithm)
}

// KeyID returns the "kid" parameter when it is present and a string.
func (h Header) KeyID() (string, bool) {
	return h.stringParam(HeaderKeyID)
}

func (h Header) stringParam(name string) (string, bool) {
	v, ok := h.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Critical returns the names listed in "crit". It returns nil without error
// when the parameter is absent, and a *ValidationError when it is present
// but not a non-empty array of unique strings.
func (h Header) Critical() ([]string, error) {
	v, ok := h.Get(HeaderCritical)
	if !ok {
		return nil, nil
	}

	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []string:
		for _, s := range list {
			items = append(items, s)
		}
	default:
		return nil, &ValidationError{Field: HeaderCritical, Message: fmt.Sprintf("must be an array of strings, got %T", v)}
	}
	if len(items) == 0 {
		return nil, &ValidationError{Field: HeaderCritical, Message: "must not be empty"}
	}

	names := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		name, ok := item.(string)
		if !ok || name == "" {
			return nil, &ValidationError{Field: HeaderCritical, Message: "entries must be non-empty strings"}
		}
		if _, dup := seen[name]; dup {
			return nil, &ValidationError{Field: HeaderCritical, Message: fmt.Sprintf("duplicate entry %q", name)}
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

// Names returns the parameter names in order.
func (h Header) Names() []string {
	names := make([]string, len(h.members))
	for i, m := range h.members {
		names[i] = m.Name
	}
	return names
}

// Len returns the number of parameters.
func (h Header) Len() int {
	return len(h.members)
}

// Members returns a copy of the parameters in order.
func (h Header) Members() Object {
	return append(Object(nil), h.members...)
}

// With returns a copy of h with name set to value. An existing parameter
// keeps its position; a new one is appended.
func (h Header) With(name string, value any) Header {
	members := make(Object, 0, len(h.members)+1)
	replaced := false
	for _, m := range h.members {
		if m.Name == name {
			m.Value = value
			replaced = true
		}
		members = append(members, m)
	}
	if !replaced {
		members = append(members, Member{Name: name, Value: value})
	}
	return Header{members: members}
}

// Without returns a copy of h with the named parameter removed.
func (h Header) Without(name string) Header {
	members := make(Object, 0, len(h.members))
	for _, m := range h.members {
		if m.Name != name {
			members = append(members, m)
		}
	}
	return Header{members: members}
}

// Encode returns the header as JSON text in the given format.
func (h Header) Encode(format Format) ([]byte, error) {
	return core.Marshal(h.object(), format.core())
}

func (h Header) object() Object {
	if h.members == nil {
		return Object{}
	}
	return h.members
}

// MarshalJSON implements json.Marshaler using the compact format.
func (h Header) MarshalJSON() ([]byte, error) {
	return h.Encode(FormatCompact)
}

// UnmarshalJSON implements json.Unmarshaler; parameter order is preserved.
func (h *Header) UnmarshalJSON(data []byte) error {
	parsed, err := ParseHeader(data)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
