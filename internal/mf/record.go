// Package mf converts between the wire encodings of a Micropub post and the
// canonical record used everywhere else in the application.
package mf

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// EntryType is the microformat type tag for the posts this endpoint handles.
const EntryType = "h-entry"

// Record is the canonical representation of one post: an ordered mapping
// from property name to value. Values are scalar strings or booleans,
// sequences ([]string or []any), Photo references, or opaque nested
// structures carried through from checkin/location properties.
type Record struct {
	props *orderedmap.OrderedMap[string, any]
}

// Photo is one photo reference with optional alt text.
type Photo struct {
	Value string `json:"value" yaml:"value"`
	Alt   string `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{props: orderedmap.New[string, any]()}
}

// Set stores a property, keeping the original position for existing keys.
func (r *Record) Set(key string, value any) {
	r.props.Set(key, value)
}

// Get returns a property value.
func (r *Record) Get(key string) (any, bool) {
	return r.props.Get(key)
}

// Has reports whether a property is present.
func (r *Record) Has(key string) bool {
	_, ok := r.props.Get(key)
	return ok
}

// Delete removes a property and reports whether it was present.
func (r *Record) Delete(key string) bool {
	_, present := r.props.Delete(key)
	return present
}

// Len returns the number of properties, including the type tag.
func (r *Record) Len() int {
	return r.props.Len()
}

// Keys returns the property names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.props.Len())
	for pair := r.props.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every property in insertion order.
func (r *Record) Each(fn func(key string, value any)) {
	for pair := r.props.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// Empty reports whether the record carries nothing beyond its type tag.
func (r *Record) Empty() bool {
	if r == nil {
		return true
	}
	switch r.props.Len() {
	case 0:
		return true
	case 1:
		return r.Has("type")
	}
	return false
}

// Type returns the record's microformat type tag.
func (r *Record) Type() string {
	if s := r.String("type"); s != "" {
		return s
	}
	return EntryType
}

// String returns a property's scalar string value. Sequence values yield
// their first string element; anything else yields the empty string.
func (r *Record) String(key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if seq, ok := AsSequence(v); ok && len(seq) > 0 {
		if s, ok := seq[0].(string); ok {
			return s
		}
	}
	return ""
}

// Compact drops properties whose value is nil, an empty sequence, or an
// empty map.
func (r *Record) Compact() {
	var drop []string
	r.Each(func(key string, v any) {
		switch val := v.(type) {
		case nil:
			drop = append(drop, key)
		case []any:
			if len(val) == 0 {
				drop = append(drop, key)
			}
		case []string:
			if len(val) == 0 {
				drop = append(drop, key)
			}
		case map[string]any:
			if len(val) == 0 {
				drop = append(drop, key)
			}
		}
	})
	for _, key := range drop {
		r.props.Delete(key)
	}
}

// AsSequence reports v as an ordered sequence when it already is one.
func AsSequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

// Sequence coerces v into a sequence: sequences pass through, nil becomes
// empty, and any other value wraps as a single element.
func Sequence(v any) []any {
	if v == nil {
		return nil
	}
	if seq, ok := AsSequence(v); ok {
		return seq
	}
	return []any{v}
}
