package content

import (
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/mf"
)

var fixedNow = time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)

func testFormatter(cfg Config) *Formatter {
	if cfg.Me == "" {
		cfg.Me = "https://site.tld"
	}
	f := NewFormatter(cfg)
	f.now = func() time.Time { return fixedNow }
	return f
}

func TestFormat_Article(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.FromJSON([]byte(`{"properties":{"name":["My Title"],"category":["go","web"],"content":["Hello there."]}}`))
	out := f.Format(r, "https://client.example")

	if out.Path != "src/articles/my-title.md" {
		t.Errorf("path = %q", out.Path)
	}
	if out.ReferenceID != "articles/my-title" {
		t.Errorf("referenceID = %q", out.ReferenceID)
	}
	if want := "src/" + out.ReferenceID + ".md"; out.Path != want {
		t.Errorf("path %q does not recompose from reference id %q", out.Path, out.ReferenceID)
	}
	for _, want := range []string{"title: My Title", "tags:", "- go", "- web", "client_id: https://client.example"} {
		if !strings.Contains(out.Document, want) {
			t.Errorf("document missing %q:\n%s", want, out.Document)
		}
	}
	if !strings.HasSuffix(out.Document, "---\nHello there.\n") {
		t.Errorf("body not at end of document:\n%s", out.Document)
	}
}

func TestFormat_NoteGetsDateShardAndTimestampSlug(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.FromJSON([]byte(`{"properties":{"content":["just a note"],"published":["2022-01-02T03:04:05.000Z"]}}`))
	out := f.Format(r, "")

	published := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
	want := "src/notes/2022/01/02/" + strconv.FormatInt(published.Unix(), 10) + ".md"
	if out.Path != want {
		t.Errorf("path = %q, want %q", out.Path, want)
	}
}

func TestResolveDate_StampsFreshDate(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("type", mf.EntryType)
	r.Set("content", "hi")

	date := f.ResolveDate(r)
	if !date.Equal(fixedNow) {
		t.Errorf("date = %v, want now", date)
	}
	if r.String("date") != "2023-05-06T07:08:09.000Z" {
		t.Errorf("date property = %q", r.String("date"))
	}
	if r.Has("updated") {
		t.Error("fresh record must not get an updated stamp")
	}
}

func TestResolveDate_StampsUpdatedOnReformat(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("published", "2020-02-02T00:00:00.000Z")

	date := f.ResolveDate(r)
	if date.Year() != 2020 {
		t.Errorf("date = %v, want published date", date)
	}
	if r.String("updated") != "2023-05-06T07:08:09.000Z" {
		t.Errorf("updated property = %q", r.String("updated"))
	}
}

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello, World!", "hello-world"},
		{"  spaced   out  ", "spaced-out"},
		{"already-slugged", "already-slugged"},
		{"MiXeD CaSe", "mixed-case"},
		{"dots.and/slashes", "dotsandslashes"},
		{"hyphen - heavy -- title", "hyphen-heavy-title"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDeriveSlug_ExplicitWinsOverName(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("slug", "Chosen Slug")
	r.Set("name", "Ignored Name")
	if got := f.DeriveSlug(r, fixedNow); got != "chosen-slug" {
		t.Errorf("slug = %q", got)
	}
}

func TestDeriveSlug_CitationFromWatchedWork(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("watch-of", map[string]any{
		"properties": map[string]any{
			"name":      []any{"Some Film"},
			"published": []any{"2019"},
		},
	})
	if got := f.DeriveSlug(r, fixedNow); got != "some-film-2019" {
		t.Errorf("slug = %q", got)
	}
}

func TestDeriveSlug_FallsBackToTimestamp(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("content", "no name here")
	if got := f.DeriveSlug(r, fixedNow); got != "1683356889" {
		t.Errorf("slug = %q, want unix timestamp", got)
	}
}

func TestDeriveSlug_FullDatePrefix(t *testing.T) {
	f := testFormatter(Config{FullDateFilenames: true})
	r := mf.NewRecord()
	r.Set("name", "Hello")
	if got := f.DeriveSlug(r, fixedNow); got != "2023-05-06-hello" {
		t.Errorf("slug = %q", got)
	}
}

func TestSerialize_RoundTrip(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("type", mf.EntryType)
	r.Set("name", "Round Trip")
	r.Set("category", []string{"a", "b"})
	r.Set("content", "The body.\n")

	doc := f.Serialize(r, "")
	back := mf.FromDocument(doc)
	if back.String("name") != "Round Trip" {
		t.Errorf("name = %q after round trip", back.String("name"))
	}
	v, _ := back.Get("category")
	if cats, ok := v.([]string); !ok || len(cats) != 2 || cats[0] != "a" {
		t.Errorf("category = %#v after round trip", v)
	}
	if back.String("content") != "The body.\n" {
		t.Errorf("content = %q after round trip", back.String("content"))
	}
}

func TestSerialize_EmptyBody(t *testing.T) {
	f := testFormatter(Config{})
	r := mf.NewRecord()
	r.Set("like-of", "https://x/post")
	doc := f.Serialize(r, "")
	if !strings.HasSuffix(doc, "---\n") {
		t.Errorf("document should end at the header delimiter:\n%s", doc)
	}
	if !strings.Contains(doc, "like-of: https://x/post") {
		t.Errorf("header missing like-of:\n%s", doc)
	}
}

func TestMediaFilename(t *testing.T) {
	f := testFormatter(Config{})
	if got := f.MediaFilename("pic.jpg"); got != "uploads/1683356889_pic.jpg" {
		t.Errorf("media filename = %q", got)
	}
	if got := f.MediaFilename(""); got != "" {
		t.Errorf("empty filename should yield empty path, got %q", got)
	}
}

func TestPathForURL(t *testing.T) {
	f := testFormatter(Config{})
	path, err := f.PathForURL("https://site.tld/notes/2022/01/02/1641092645")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "src/notes/2022/01/02/1641092645.md" {
		t.Errorf("path = %q", path)
	}

	if _, err := f.PathForURL("https://other.tld/notes/x"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("foreign origin error = %v, want ErrInvalid", err)
	}
	if _, err := f.PathForURL("https://site.tld/"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("bare origin error = %v, want ErrInvalid", err)
	}
}
