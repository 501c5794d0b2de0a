package mf

import (
	"encoding/json"
	"net/url"
	"reflect"
	"testing"
)

func TestFromJSON_ScalarUnwrap(t *testing.T) {
	body := `{"type":["h-entry"],"properties":{"name":["Hello"],"content":["Body text"],"mp-slug":["custom"]}}`
	r := FromJSON([]byte(body))
	if r.Type() != "h-entry" {
		t.Errorf("type = %q, want %q", r.Type(), "h-entry")
	}
	if r.String("name") != "Hello" {
		t.Errorf("name = %q, want %q", r.String("name"), "Hello")
	}
	if r.String("content") != "Body text" {
		t.Errorf("content = %q", r.String("content"))
	}
	if r.String("slug") != "custom" {
		t.Errorf("slug = %q, want %q (renamed from mp-slug)", r.String("slug"), "custom")
	}
	if r.Has("mp-slug") {
		t.Error("mp-slug should not survive as a property")
	}
}

func TestFromJSON_CategoryStaysSequence(t *testing.T) {
	r := FromJSON([]byte(`{"properties":{"category":["go","indieweb"]}}`))
	v, ok := r.Get("category")
	if !ok {
		t.Fatal("category missing")
	}
	cats, ok := v.([]string)
	if !ok || !reflect.DeepEqual(cats, []string{"go", "indieweb"}) {
		t.Errorf("category = %#v, want [go indieweb]", v)
	}
}

func TestFromJSON_EmptySequenceLeavesPropertyAbsent(t *testing.T) {
	r := FromJSON([]byte(`{"properties":{"category":[],"content":["hi"]}}`))
	if r.Has("category") {
		t.Error("empty category sequence should leave the property absent")
	}
	if r.String("content") != "hi" {
		t.Errorf("content = %q", r.String("content"))
	}
}

func TestFromJSON_PhotoObjectsAndStrings(t *testing.T) {
	body := `{"properties":{"photo":[{"value":"https://x/a.jpg","alt":"A"},"https://x/b.jpg"]}}`
	r := FromJSON([]byte(body))
	v, _ := r.Get("photo")
	photos, ok := v.([]any)
	if !ok || len(photos) != 2 {
		t.Fatalf("photo = %#v, want 2 entries", v)
	}
	if p, ok := photos[0].(Photo); !ok || p.Value != "https://x/a.jpg" || p.Alt != "A" {
		t.Errorf("photo[0] = %#v", photos[0])
	}
	if s, ok := photos[1].(string); !ok || s != "https://x/b.jpg" {
		t.Errorf("photo[1] = %#v", photos[1])
	}
}

func TestFromJSON_CheckinPassesThrough(t *testing.T) {
	body := `{"properties":{"checkin":[{"type":["h-card"],"properties":{"name":["A Bar"],"latitude":[51.5],"longitude":[-0.1]}}]}}`
	r := FromJSON([]byte(body))
	v, ok := r.Get("checkin")
	if !ok {
		t.Fatal("checkin missing")
	}
	seq, ok := v.([]any)
	if !ok || len(seq) != 1 {
		t.Fatalf("checkin = %#v", v)
	}
	venue, ok := seq[0].(map[string]any)
	if !ok {
		t.Fatalf("checkin[0] = %#v, want nested map", seq[0])
	}
	if _, ok := venue["properties"]; !ok {
		t.Error("checkin venue lost its properties")
	}
}

func TestFromJSON_Empty(t *testing.T) {
	if r := FromJSON(nil); !r.Empty() {
		t.Errorf("nil input should yield an empty record, got keys %v", r.Keys())
	}
}

func TestFromForm_Basics(t *testing.T) {
	values := url.Values{
		"h":            {"entry"},
		"content":      {"hi there"},
		"mp-slug":      {"my-slug"},
		"access_token": {"secret"},
		"category":     {"one"},
		"category[]":   {"two", "three"},
	}
	r := FromForm(values)
	if r.Type() != "h-entry" {
		t.Errorf("type = %q", r.Type())
	}
	if r.String("content") != "hi there" {
		t.Errorf("content = %q", r.String("content"))
	}
	if r.String("slug") != "my-slug" {
		t.Errorf("slug = %q", r.String("slug"))
	}
	if r.Has("access_token") || r.Has("h") {
		t.Error("meta fields must not become properties")
	}
	v, _ := r.Get("category")
	if cats, ok := v.([]string); !ok || !reflect.DeepEqual(cats, []string{"one", "two", "three"}) {
		t.Errorf("category = %#v", v)
	}
}

func TestFromForm_PhotoFieldsMergeInOrder(t *testing.T) {
	values := url.Values{
		"photo":   {"p1"},
		"photo[]": {"p2", "p3"},
		"file":    {"f1"},
		"file[]":  {"f2"},
	}
	r := FromForm(values)
	v, _ := r.Get("photo")
	photos, ok := v.([]any)
	if !ok || len(photos) != 5 {
		t.Fatalf("photo = %#v, want 5 entries", v)
	}
	want := []string{"p1", "p2", "p3", "f1", "f2"}
	for i, w := range want {
		if photos[i] != w {
			t.Errorf("photo[%d] = %v, want %q", i, photos[i], w)
		}
	}
}

func TestFromForm_BracketedFieldIsSequence(t *testing.T) {
	r := FromForm(url.Values{"syndicate-to[]": {"https://a.example"}})
	v, _ := r.Get("syndicate-to")
	if seq, ok := v.([]string); !ok || len(seq) != 1 {
		t.Errorf("syndicate-to = %#v, want single-element sequence", v)
	}
}

func TestFromDocument_InverseRenames(t *testing.T) {
	doc := "---\ntitle: Hello\ntags:\n  - go\n  - indieweb\ndate: 2023-01-02T10:20:30.000Z\n---\nBody line.\n"
	r := FromDocument(doc)
	if r.String("name") != "Hello" {
		t.Errorf("name = %q (from title header)", r.String("name"))
	}
	v, _ := r.Get("category")
	if cats, ok := v.([]string); !ok || !reflect.DeepEqual(cats, []string{"go", "indieweb"}) {
		t.Errorf("category = %#v (from tags header)", v)
	}
	if r.String("published") != "2023-01-02T10:20:30.000Z" {
		t.Errorf("published = %q (from date header)", r.String("published"))
	}
	if r.String("content") != "Body line.\n" {
		t.Errorf("content = %q", r.String("content"))
	}
}

func TestFromDocument_NoHeaderIsAllBody(t *testing.T) {
	r := FromDocument("just text\n")
	if r.String("content") != "just text\n" {
		t.Errorf("content = %q", r.String("content"))
	}
}

func TestFromDocument_PhotoHeaders(t *testing.T) {
	doc := "---\nphoto:\n  - value: /uploads/1_a.jpg\n    alt: A photo\n---\n"
	r := FromDocument(doc)
	v, _ := r.Get("photo")
	photos, ok := v.([]any)
	if !ok || len(photos) != 1 {
		t.Fatalf("photo = %#v", v)
	}
	if p, ok := photos[0].(Photo); !ok || p.Value != "/uploads/1_a.jpg" || p.Alt != "A photo" {
		t.Errorf("photo[0] = %#v", photos[0])
	}
}

func TestToSource_WrapsScalars(t *testing.T) {
	r := NewRecord()
	r.Set("type", "h-entry")
	r.Set("name", "Hello")
	r.Set("category", []string{"go"})
	src := ToSource(r)
	if len(src.Type) != 1 || src.Type[0] != "h-entry" {
		t.Errorf("type = %v", src.Type)
	}
	name, _ := src.Properties.Get("name")
	if seq, ok := name.([]any); !ok || len(seq) != 1 || seq[0] != "Hello" {
		t.Errorf("name = %#v, want wrapped sequence", name)
	}
	if _, present := src.Properties.Get("type"); present {
		t.Error("type must not appear among properties")
	}
}

func TestSourceFilter(t *testing.T) {
	r := NewRecord()
	r.Set("name", "Hello")
	r.Set("content", "Body")
	src := ToSource(r).Filter([]string{"content"})
	if src.Type != nil {
		t.Errorf("filtered source keeps no type, got %v", src.Type)
	}
	if _, present := src.Properties.Get("name"); present {
		t.Error("name should be filtered out")
	}
	if _, present := src.Properties.Get("content"); !present {
		t.Error("content should survive the filter")
	}
}

func TestToSource_RoundTripIsStable(t *testing.T) {
	body := `{"type":["h-entry"],"properties":{"name":["Hello"],"category":["a","b"],"content":["Body"],"like-of":["https://x/post"]}}`
	first := FromJSON([]byte(body))

	encoded, err := json.Marshal(ToSource(first))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second := FromJSON(encoded)

	if !reflect.DeepEqual(first.Keys(), second.Keys()) {
		t.Errorf("keys changed across round trip: %v vs %v", first.Keys(), second.Keys())
	}
	for _, key := range []string{"name", "content", "like-of"} {
		if first.String(key) != second.String(key) {
			t.Errorf("%s = %q after round trip, want %q", key, second.String(key), first.String(key))
		}
	}
	v1, _ := first.Get("category")
	v2, _ := second.Get("category")
	if !reflect.DeepEqual(v1, v2) {
		t.Errorf("category = %#v after round trip, want %#v", v2, v1)
	}
}

func TestRecord_CompactAndEmpty(t *testing.T) {
	r := NewRecord()
	r.Set("type", "h-entry")
	r.Set("category", []string{})
	r.Set("checkin", []any{})
	r.Compact()
	if !r.Empty() {
		t.Errorf("record with only a type tag should be empty, keys %v", r.Keys())
	}
}
