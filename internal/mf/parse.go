package mf

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// complexProperties are carried through every representation verbatim; the
// parser never needs to understand their internal shape.
var complexProperties = map[string]struct{}{
	"checkin":  {},
	"location": {},
}

// FromJSON builds a record from a microformats2 JSON document
// ({"type": [...], "properties": {...}}). Nil or empty input yields an
// empty record.
func FromJSON(data []byte) *Record {
	if len(data) == 0 {
		return NewRecord()
	}
	typ := EntryType
	if t := gjson.GetBytes(data, "type"); t.Exists() {
		if vals := t.Array(); len(vals) > 0 {
			typ = vals[0].String()
		}
	}
	return FromProperties(typ, gjson.GetBytes(data, "properties"))
}

// FromProperties builds a record from a properties object scoped to the
// given type tag. Single-element sequences collapse to scalars except for
// category (kept whole), photo (normalized to Photo references), and the
// complex checkin/location properties (passed through untouched). An empty
// sequence leaves the property absent.
func FromProperties(typeTag string, props gjson.Result) *Record {
	r := NewRecord()
	if typeTag != "" {
		r.Set("type", typeTag)
	}
	if !props.Exists() {
		return r
	}
	props.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if name == "mp-slug" {
			name = "slug"
		}
		vals := value.Array()
		if len(vals) == 0 {
			return true
		}
		if _, complex := complexProperties[name]; complex {
			seq := make([]any, 0, len(vals))
			for _, v := range vals {
				seq = append(seq, v.Value())
			}
			r.Set(name, seq)
			return true
		}
		switch name {
		case "category":
			cats := make([]string, 0, len(vals))
			for _, v := range vals {
				cats = append(cats, v.String())
			}
			r.Set(name, cats)
		case "photo":
			r.Set(name, decodePhotos(vals))
		default:
			r.Set(name, vals[0].Value())
		}
		return true
	})
	return r
}

func decodePhotos(vals []gjson.Result) []any {
	photos := make([]any, 0, len(vals))
	for _, v := range vals {
		if v.IsObject() {
			photos = append(photos, Photo{
				Value: v.Get("value").String(),
				Alt:   v.Get("alt").String(),
			})
			continue
		}
		photos = append(photos, v.String())
	}
	return photos
}

// formMetaFields never become record properties.
var formMetaFields = map[string]struct{}{
	"h":            {},
	"action":       {},
	"url":          {},
	"access_token": {},
	"category":     {},
	"category[]":   {},
	"photo":        {},
	"photo[]":      {},
	"file":         {},
	"file[]":       {},
}

// photoFormFields are merged, in this order, into one photo sequence.
var photoFormFields = []string{"photo", "photo[]", "file", "file[]"}

// FromForm builds a record from flat form fields. A bracketed suffix
// (field[]) marks multi-valued fields; photo and file variants merge into a
// single ordered photo sequence. Nil input yields an empty record.
func FromForm(values url.Values) *Record {
	r := NewRecord()
	if values == nil {
		return r
	}
	typ := values.Get("h")
	if typ == "" {
		typ = "entry"
	}
	r.Set("type", "h-"+typ)

	cats := append(append([]string{}, values["category"]...), values["category[]"]...)
	if len(cats) > 0 {
		r.Set("category", cats)
	}

	var photos []any
	for _, field := range photoFormFields {
		for _, v := range values[field] {
			if v != "" {
				photos = append(photos, v)
			}
		}
	}
	if len(photos) > 0 {
		r.Set("photo", photos)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		if _, meta := formMetaFields[k]; !meta {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := values[k]
		name := strings.TrimSuffix(k, "[]")
		if name == "mp-slug" {
			name = "slug"
		}
		switch {
		case len(vals) == 0 || vals[0] == "":
		case strings.HasSuffix(k, "[]") || len(vals) > 1:
			r.Set(name, append([]string{}, vals...))
		default:
			r.Set(name, vals[0])
		}
	}
	return r
}

// renameToHeader maps record properties to document header keys; its
// inverse applies when reading a document back.
var renameToHeader = map[string]string{
	"name":      "title",
	"category":  "tags",
	"published": "date",
}

func headerToProperty(key string) string {
	switch key {
	case "title":
		return "name"
	case "tags":
		return "category"
	case "date":
		return "published"
	}
	return key
}

// FromDocument parses a frontmatter document back into a record. Header
// keys decode through the inverse rename table and the body becomes the
// content property. Empty input yields an empty record.
func FromDocument(text string) *Record {
	r := NewRecord()
	if text == "" {
		return r
	}
	r.Set("type", EntryType)
	block, body := splitDocument(text)
	if block != nil {
		var doc yaml.Node
		if err := yaml.Unmarshal(block, &doc); err == nil &&
			len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode {
			m := doc.Content[0]
			for i := 0; i+1 < len(m.Content); i += 2 {
				key := headerToProperty(m.Content[i].Value)
				var v any
				if err := m.Content[i+1].Decode(&v); err != nil {
					continue
				}
				r.Set(key, normalizeHeaderValue(key, v))
			}
		}
	}
	r.Set("content", body)
	return r
}

// splitDocument separates the header block (between the --- delimiters)
// from the body. A document without a complete header is all body.
func splitDocument(text string) ([]byte, string) {
	const delim = "---"
	trimmed := strings.TrimLeft(text, "\n\r")
	if !strings.HasPrefix(trimmed, delim) {
		return nil, text
	}
	rest := trimmed[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx < 0 {
		return nil, text
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	if i := strings.IndexByte(after, '\n'); i >= 0 {
		after = after[i+1:]
	} else {
		after = ""
	}
	// One blank line between header and body is formatting, not content.
	if strings.HasPrefix(after, "\r\n") {
		after = after[2:]
	} else if strings.HasPrefix(after, "\n") {
		after = after[1:]
	}
	return []byte(block), after
}

func normalizeHeaderValue(key string, v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format(isoTimeFormat)
	case []any:
		if key == "photo" {
			return normalizePhotoSeq(val)
		}
		if _, complex := complexProperties[key]; complex {
			return val
		}
		if strs, ok := stringSeq(val); ok {
			return strs
		}
		return val
	}
	return v
}

func normalizePhotoSeq(seq []any) []any {
	out := make([]any, 0, len(seq))
	for _, item := range seq {
		if m, ok := item.(map[string]any); ok {
			if value, ok := m["value"].(string); ok {
				alt, _ := m["alt"].(string)
				out = append(out, Photo{Value: value, Alt: alt})
				continue
			}
		}
		out = append(out, item)
	}
	return out
}

func stringSeq(seq []any) ([]string, bool) {
	out := make([]string, 0, len(seq))
	for _, item := range seq {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// isoTimeFormat matches the millisecond ISO-8601 stamps the documents use.
const isoTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Source is the structured-properties (microformats2 JSON) rendering of a
// record: every property value wrapped as a sequence.
type Source struct {
	Type       []string                            `json:"type,omitempty"`
	Properties *orderedmap.OrderedMap[string, any] `json:"properties"`
}

// ToSource converts a record to its structured-properties form. Scalar
// properties become single-element sequences; sequence values pass through.
func ToSource(r *Record) *Source {
	if r == nil {
		return nil
	}
	src := &Source{
		Type:       []string{r.Type()},
		Properties: orderedmap.New[string, any](),
	}
	r.Each(func(key string, v any) {
		if key == "type" {
			return
		}
		src.Properties.Set(key, Sequence(v))
	})
	return src
}

// Filter returns a copy of the source restricted to the named properties.
// The type tag is dropped, matching the filtered source-query response.
func (s *Source) Filter(properties []string) *Source {
	out := &Source{Properties: orderedmap.New[string, any]()}
	for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
		for _, name := range properties {
			if pair.Key == name {
				out.Properties.Set(pair.Key, pair.Value)
				break
			}
		}
	}
	return out
}
