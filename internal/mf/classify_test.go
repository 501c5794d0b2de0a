package mf

import "testing"

func record(props map[string]any) *Record {
	r := NewRecord()
	r.Set("type", EntryType)
	for k, v := range props {
		r.Set(k, v)
	}
	return r
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		props map[string]any
		want  PostType
	}{
		{"like", map[string]any{"like-of": "https://x/post"}, TypeLikes},
		{"bookmark", map[string]any{"bookmark-of": "https://x/post"}, TypeBookmarks},
		{"checkin", map[string]any{"checkin": []any{map[string]any{"properties": map[string]any{}}}}, TypeCheckins},
		{"rsvp with reply target", map[string]any{"rsvp": "yes", "in-reply-to": "https://x/event"}, TypeRSVP},
		{"rsvp alone is a note", map[string]any{"rsvp": "yes"}, TypeNotes},
		{"photo beats name", map[string]any{"photo": []any{"a.jpg"}, "name": "Title"}, TypePhotos},
		{"named post", map[string]any{"name": "Title", "content": "Body"}, TypeArticles},
		{"watch", map[string]any{"watch-of": map[string]any{}}, TypeWatched},
		{"read", map[string]any{"read-of": map[string]any{}}, TypeRead},
		{"listen", map[string]any{"listen-of": map[string]any{}}, TypeListen},
		{"play", map[string]any{"play-of": map[string]any{}}, TypePlay},
		{"plain content", map[string]any{"content": "hi"}, TypeNotes},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(record(tc.props)); got != tc.want {
				t.Errorf("Classify = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClassify_EmptyHasNoType(t *testing.T) {
	if got := Classify(nil); got != "" {
		t.Errorf("nil record = %q, want empty", got)
	}
	r := NewRecord()
	r.Set("type", EntryType)
	if got := Classify(r); got != "" {
		t.Errorf("type-only record = %q, want empty", got)
	}
}

func TestClassify_EmptyCheckinSequenceIsNotCheckin(t *testing.T) {
	r := record(map[string]any{"checkin": []any{}, "content": "hi"})
	if got := Classify(r); got != TypeNotes {
		t.Errorf("Classify = %q, want %q", got, TypeNotes)
	}
}
