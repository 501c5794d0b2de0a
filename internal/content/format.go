// Package content derives dates, slugs, and storage paths for records and
// serializes them into frontmatter documents.
package content

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/mf"
)

// isoTimeFormat is the millisecond ISO-8601 format used for date stamps.
const isoTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config carries the site settings the formatter needs. Nothing in this
// package reads the environment.
type Config struct {
	Me                string // canonical site origin, e.g. https://site.tld
	ContentDir        string // repository directory posts live under
	MediaDir          string // repository directory uploads live under
	FullDateFilenames bool   // prefix slugs with YYYY-MM-DD (Jekyll-style)
}

// Formatter turns canonical records into storable documents.
type Formatter struct {
	cfg Config
	now func() time.Time
}

// NewFormatter creates a formatter. Empty directories default to src and
// uploads.
func NewFormatter(cfg Config) *Formatter {
	cfg.Me = strings.TrimSuffix(cfg.Me, "/")
	cfg.ContentDir = strings.TrimSuffix(cfg.ContentDir, "/")
	if cfg.ContentDir == "" {
		cfg.ContentDir = "src"
	}
	cfg.MediaDir = strings.TrimSuffix(cfg.MediaDir, "/")
	if cfg.MediaDir == "" {
		cfg.MediaDir = "uploads"
	}
	return &Formatter{cfg: cfg, now: time.Now}
}

// MediaDir returns the configured upload directory.
func (f *Formatter) MediaDir() string {
	return f.cfg.MediaDir
}

// Result is the outcome of formatting one record.
type Result struct {
	Path        string
	ReferenceID string
	Document    string
	Record      *mf.Record
}

// Format resolves the record's date, classifies it, derives its path, and
// serializes it. Returns nil for a nil record.
func (f *Formatter) Format(rec *mf.Record, clientID string) *Result {
	if rec == nil {
		return nil
	}
	date := f.ResolveDate(rec)
	typ := mf.Classify(rec)
	slug := f.DeriveSlug(rec, date)
	path := f.DerivePath(typ, date, slug)
	return &Result{
		Path:        path,
		ReferenceID: f.ReferenceID(path),
		Document:    f.Serialize(rec, clientID),
		Record:      rec,
	}
}

// ResolveDate returns the record's effective timestamp: published if
// present, then date, then now. A record with neither gets stamped with a
// fresh date; a record that already carries one gets a fresh updated stamp
// instead, so re-formatting always refreshes updated.
func (f *Formatter) ResolveDate(rec *mf.Record) time.Time {
	now := f.now()
	date := now
	if s := rec.String("published"); s != "" {
		if t, err := parseDate(s); err == nil {
			date = t
		}
	} else if s := rec.String("date"); s != "" {
		if t, err := parseDate(s); err == nil {
			date = t
		}
	}
	if !rec.Has("date") && !rec.Has("published") {
		rec.Set("date", date.UTC().Format(isoTimeFormat))
	} else {
		rec.Set("updated", now.UTC().Format(isoTimeFormat))
	}
	return date
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, isoTimeFormat, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("content: unrecognized date %q", s)
}

var (
	slugStripRe    = regexp.MustCompile(`[^\w\- ]+`)
	slugCollapseRe = regexp.MustCompile(`[\- ]+`)
)

// Slugify lowercases text, strips everything but word characters, hyphens,
// and spaces, and joins the remaining words with hyphens.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = slugStripRe.ReplaceAllString(s, "")
	s = slugCollapseRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " ", "-")
}

// citationProperties, in priority order, may contribute a slug for posts
// about an external work.
var citationProperties = []string{"watch-of", "read-of", "listen-of", "play-of"}

// DeriveSlug picks the slug for a record: an explicit slug first, then the
// post name, then a cited work's name and publication date, then the post's
// Unix timestamp. The full-date prefix is additive when configured.
func (f *Formatter) DeriveSlug(rec *mf.Record, date time.Time) string {
	var parts []string
	if f.cfg.FullDateFilenames {
		parts = append(parts, date.UTC().Format("2006-01-02"))
	}
	switch {
	case rec.String("slug") != "":
		parts = append(parts, Slugify(rec.String("slug")))
	case rec.String("name") != "":
		parts = append(parts, Slugify(rec.String("name")))
	default:
		if name, published, ok := citation(rec); ok {
			parts = append(parts, Slugify(name))
			if published != "" {
				parts = append(parts, published)
			}
		} else {
			parts = append(parts, strconv.FormatInt(date.Unix(), 10))
		}
	}
	return strings.Join(parts, "-")
}

// citation finds the first cited work carrying structured sub-properties
// with a usable name.
func citation(rec *mf.Record) (name, published string, ok bool) {
	for _, prop := range citationProperties {
		v, present := rec.Get(prop)
		if !present {
			continue
		}
		cite, isMap := v.(map[string]any)
		if !isMap {
			continue
		}
		props, isMap := cite["properties"].(map[string]any)
		if !isMap {
			continue
		}
		name = firstString(props["name"])
		if name == "" {
			continue
		}
		return name, firstString(props["published"]), true
	}
	return "", "", false
}

func firstString(v any) string {
	for _, item := range mf.Sequence(v) {
		if s, ok := item.(string); ok {
			return s
		}
	}
	return ""
}

// DerivePath builds the repository path for a post. Notes and checkins are
// sharded by date; everything else sits directly under its type directory.
func (f *Formatter) DerivePath(typ mf.PostType, date time.Time, slug string) string {
	shard := ""
	if typ == mf.TypeNotes || typ == mf.TypeCheckins {
		shard = date.UTC().Format("2006/01/02") + "/"
	}
	return fmt.Sprintf("%s/%s/%s%s.md", f.cfg.ContentDir, typ, shard, slug)
}

// ReferenceID strips the content directory prefix and the .md suffix from a
// path. path == ContentDir + "/" + ReferenceID(path) + ".md" always holds
// for formatter-produced paths.
func (f *Formatter) ReferenceID(path string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, f.cfg.ContentDir+"/"), ".md")
}

// Serialize renders the record as a frontmatter document. Every property
// except content and the type tag becomes a header entry, renamed through
// the header table; the content property is the body.
func (f *Formatter) Serialize(rec *mf.Record, clientID string) string {
	header := &yaml.Node{Kind: yaml.MappingNode}
	index := map[string]int{}
	add := func(key string, v any) {
		var vn yaml.Node
		if err := vn.Encode(v); err != nil {
			return
		}
		if i, seen := index[key]; seen {
			header.Content[i+1] = &vn
			return
		}
		index[key] = len(header.Content)
		header.Content = append(header.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key}, &vn)
	}
	rec.Each(func(key string, v any) {
		if key == "content" || key == "type" {
			return
		}
		if renamed, ok := headerRename[key]; ok {
			key = renamed
		}
		add(key, v)
	})
	if clientID != "" {
		add("client_id", clientID)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	if len(header.Content) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(header); err == nil {
			enc.Close()
		}
	}
	buf.WriteString("---\n")
	body := rec.String("content")
	buf.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	return buf.String()
}

var headerRename = map[string]string{
	"name":      "title",
	"category":  "tags",
	"published": "date",
}

// MediaFilename returns the upload path for a media file: the media
// directory plus a second-granularity timestamp prefix. Collisions within
// one second are a documented limitation of the naming scheme.
func (f *Formatter) MediaFilename(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("%s/%d_%s", f.cfg.MediaDir, f.now().Unix(), filename)
}

// PathForURL maps a public post URL back to its repository path. Only URLs
// on the configured site origin resolve.
func (f *Formatter) PathForURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("content: parse url %q: %w", raw, apperr.ErrInvalid)
	}
	origin := u.Scheme + "://" + u.Host
	if origin != f.cfg.Me || strings.Trim(u.Path, "/") == "" {
		return "", fmt.Errorf("content: url %q is not a post on this site: %w", raw, apperr.ErrInvalid)
	}
	return f.cfg.ContentDir + "/" + strings.Trim(u.Path, "/") + ".md", nil
}
