// Package publish turns parsed records into committed files in the content
// repository and applies updates and deletions to existing posts.
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/starford/wunjo/internal/apperr"
	"github.com/starford/wunjo/internal/content"
	"github.com/starford/wunjo/internal/gitstore"
	"github.com/starford/wunjo/internal/mapbox"
	"github.com/starford/wunjo/internal/mf"
	"github.com/starford/wunjo/internal/update"
)

// Attachment is one uploaded file accompanying a request.
type Attachment struct {
	Filename string
	Content  []byte
}

// Config carries the publisher's site settings.
type Config struct {
	Me              string
	Branch          string
	PermanentDelete bool
}

// Publisher writes posts and media into the content repository.
type Publisher struct {
	store gitstore.Store
	fmtr  *content.Formatter
	maps  *mapbox.Client
	cfg   Config
	log   *slog.Logger
	http  *http.Client
}

// New creates a publisher. maps may be nil, which disables checkin map
// enrichment.
func New(store gitstore.Store, fmtr *content.Formatter, maps *mapbox.Client, cfg Config) *Publisher {
	cfg.Me = strings.TrimSuffix(cfg.Me, "/")
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	return &Publisher{
		store: store,
		fmtr:  fmtr,
		maps:  maps,
		cfg:   cfg,
		log:   slog.Default(),
		http:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Create publishes a new post and returns its reference id.
func (p *Publisher) Create(ctx context.Context, rec *mf.Record, attachments []Attachment, clientID string) (string, error) {
	if rec.Empty() {
		return "", fmt.Errorf("publish: nothing to add: %w", apperr.ErrInvalid)
	}
	p.enrichLike(ctx, rec)
	if err := p.resolvePhotos(ctx, rec, attachments); err != nil {
		return "", err
	}

	out := p.fmtr.Format(rec, clientID)
	if err := p.ensureAbsent(ctx, out.Path); err != nil {
		return "", err
	}

	if mf.Classify(rec) == mf.TypeCheckins && p.maps != nil {
		if batch, ok := p.checkinBatch(ctx, out, clientID); ok {
			message := "add checkin: " + out.Path + " with maps"
			if err := gitstore.Commit(ctx, p.store, p.cfg.Branch, message, batch); err != nil {
				return "", fmt.Errorf("publish: create %s: %w", out.Path, err)
			}
			return out.ReferenceID, nil
		}
	}

	if err := p.store.WriteFile(ctx, out.Path, []byte(out.Document), "", "add: "+out.Path); err != nil {
		return "", fmt.Errorf("publish: create %s: %w", out.Path, err)
	}
	return out.ReferenceID, nil
}

// ensureAbsent fails with ErrAlreadyExists when a file occupies the path.
// The check and the later write are separate requests, so two concurrent
// creates of the same path can race.
func (p *Publisher) ensureAbsent(ctx context.Context, path string) error {
	_, err := p.store.ReadFile(ctx, path)
	if err == nil {
		return fmt.Errorf("publish: %s: %w", path, apperr.ErrAlreadyExists)
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("publish: check %s: %w", path, err)
	}
	return nil
}

var titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// enrichLike names a bare like after the liked page's title. Failures only
// cost the nicety, never the post.
func (p *Publisher) enrichLike(ctx context.Context, rec *mf.Record) {
	target := rec.String("like-of")
	if target == "" || rec.Has("name") {
		return
	}
	title, err := p.fetchTitle(ctx, target)
	if err != nil {
		p.log.Warn("could not fetch liked page title", "url", target, "error", err)
		return
	}
	if title != "" {
		rec.Set("name", title)
	}
}

func (p *Publisher) fetchTitle(ctx context.Context, rawurl string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	m := titleRe.FindSubmatch(data)
	if m == nil {
		return "", nil
	}
	return strings.TrimSpace(html.UnescapeString(string(m[1]))), nil
}

// resolvePhotos uploads photos that arrived as attachments and normalizes
// every photo entry to a reference relative to the site root.
func (p *Publisher) resolvePhotos(ctx context.Context, rec *mf.Record, attachments []Attachment) error {
	v, ok := rec.Get("photo")
	if !ok {
		return nil
	}
	byName := make(map[string]Attachment, len(attachments))
	for _, att := range attachments {
		byName[att.Filename] = att
	}
	resolved := make([]any, 0, len(mf.Sequence(v)))
	for _, item := range mf.Sequence(v) {
		switch photo := item.(type) {
		case mf.Photo:
			photo.Value = p.relativize(photo.Value)
			resolved = append(resolved, photo)
		case string:
			if att, isUpload := byName[photo]; isUpload {
				path, err := p.UploadMedia(ctx, att)
				if err != nil {
					return err
				}
				resolved = append(resolved, mf.Photo{Value: "/" + path})
				continue
			}
			resolved = append(resolved, mf.Photo{Value: p.relativize(photo)})
		default:
			resolved = append(resolved, item)
		}
	}
	rec.Set("photo", resolved)
	return nil
}

// relativize strips the site origin from same-site photo references.
func (p *Publisher) relativize(value string) string {
	if strings.HasPrefix(value, p.cfg.Me+"/") {
		return strings.TrimPrefix(value, p.cfg.Me)
	}
	return value
}

// checkinBatch fetches the map image pair for a checkin and returns the post
// plus both images as one commit batch. A failed fetch reports false and the
// checkin falls back to a plain single-file write.
func (p *Publisher) checkinBatch(ctx context.Context, out *content.Result, clientID string) ([]gitstore.CommitFile, bool) {
	lat, lon, ok := checkinCoords(out.Record)
	if !ok {
		return nil, false
	}
	pair, err := p.maps.StaticPair(ctx, lat, lon)
	if err != nil {
		p.log.Warn("could not fetch checkin maps", "path", out.Path, "error", err)
		return nil, false
	}
	base := strings.TrimSuffix(out.Path, ".md")
	darkPath := base + ".map.dark.png"
	lightPath := base + ".map.light.png"
	out.Record.Set("location_picture", map[string]any{
		"dark":  "/" + darkPath,
		"light": "/" + lightPath,
	})
	out.Document = p.fmtr.Serialize(out.Record, clientID)
	return []gitstore.CommitFile{
		{Path: out.Path, Content: []byte(out.Document)},
		{Path: darkPath, Content: pair.Dark},
		{Path: lightPath, Content: pair.Light},
	}, true
}

// checkinCoords digs the venue coordinates out of a checkin property.
func checkinCoords(rec *mf.Record) (lat, lon float64, ok bool) {
	v, present := rec.Get("checkin")
	if !present {
		return 0, 0, false
	}
	seq := mf.Sequence(v)
	if len(seq) == 0 {
		return 0, 0, false
	}
	venue, isMap := seq[0].(map[string]any)
	if !isMap {
		return 0, 0, false
	}
	props, isMap := venue["properties"].(map[string]any)
	if !isMap {
		return 0, 0, false
	}
	lat, latOK := coord(props["latitude"])
	lon, lonOK := coord(props["longitude"])
	return lat, lon, latOK && lonOK
}

func coord(v any) (float64, bool) {
	for _, item := range mf.Sequence(v) {
		switch val := item.(type) {
		case float64:
			return val, true
		case int:
			return float64(val), true
		case string:
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f, true
			}
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// Update applies an update instruction to the post behind a public URL. The
// post keeps its original path even when the update touches slug-relevant
// properties.
func (p *Publisher) Update(ctx context.Context, postURL string, in update.Instruction) error {
	path, err := p.fmtr.PathForURL(postURL)
	if err != nil {
		return err
	}
	file, err := p.store.ReadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("publish: update %s: %w", path, err)
	}
	rec := mf.FromDocument(string(file.Content))
	updated, err := update.Apply(rec, in)
	if err != nil {
		return err
	}
	out := p.fmtr.Format(updated, "")
	if err := p.store.WriteFile(ctx, path, []byte(out.Document), file.SHA, "update: "+path); err != nil {
		return fmt.Errorf("publish: update %s: %w", path, err)
	}
	return nil
}

// Delete removes the post behind a public URL. The default is a soft delete
// that marks the document deleted and keeps its history recoverable.
func (p *Publisher) Delete(ctx context.Context, postURL string) error {
	if !p.cfg.PermanentDelete {
		return p.Update(ctx, postURL, update.Instruction{
			Add: json.RawMessage(`{"deleted":["true"]}`),
		})
	}
	path, err := p.fmtr.PathForURL(postURL)
	if err != nil {
		return err
	}
	file, err := p.store.ReadFile(ctx, path)
	if err != nil {
		return fmt.Errorf("publish: delete %s: %w", path, err)
	}
	if err := p.store.DeleteFile(ctx, path, file.SHA, "delete: "+path); err != nil {
		return fmt.Errorf("publish: delete %s: %w", path, err)
	}
	return nil
}

// Undelete clears a soft delete. Undeleting a post that was never deleted
// reports no change.
func (p *Publisher) Undelete(ctx context.Context, postURL string) error {
	return p.Update(ctx, postURL, update.Instruction{
		Delete: json.RawMessage(`["deleted"]`),
	})
}

// UploadMedia stores one attachment and returns its repository path.
func (p *Publisher) UploadMedia(ctx context.Context, att Attachment) (string, error) {
	path := p.fmtr.MediaFilename(att.Filename)
	if path == "" {
		return "", fmt.Errorf("publish: upload without filename: %w", apperr.ErrInvalid)
	}
	if err := p.store.WriteFile(ctx, path, att.Content, "", "upload: "+path); err != nil {
		return "", fmt.Errorf("publish: upload %s: %w", path, err)
	}
	return path, nil
}

// ListMedia returns public URLs for stored uploads, newest first, plus the
// total count before paging.
func (p *Publisher) ListMedia(ctx context.Context, limit, offset int) ([]string, int, error) {
	entries, err := p.store.ListDirectory(ctx, p.fmtr.MediaDir())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("publish: list media: %w", err)
	}
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, p.cfg.Me+"/"+e.Path)
	}
	// Timestamp-prefixed filenames make lexicographic descending order
	// newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(urls)))
	total := len(urls)
	if offset >= total {
		return nil, total, nil
	}
	urls = urls[offset:]
	if limit > 0 && limit < len(urls) {
		urls = urls[:limit]
	}
	return urls, total, nil
}

// Source returns the structured-properties form of the post behind a public
// URL, optionally restricted to named properties.
func (p *Publisher) Source(ctx context.Context, postURL string, properties []string) (*mf.Source, error) {
	path, err := p.fmtr.PathForURL(postURL)
	if err != nil {
		return nil, err
	}
	file, err := p.store.ReadFile(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("publish: source %s: %w", path, err)
	}
	src := mf.ToSource(mf.FromDocument(string(file.Content)))
	if len(properties) > 0 {
		src = src.Filter(properties)
	}
	return src, nil
}
