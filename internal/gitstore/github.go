package gitstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/starford/wunjo/internal/apperr"
)

// Config holds the settings for the GitHub-backed store.
type Config struct {
	User        string
	Repo        string
	Branch      string
	Token       string
	AuthorName  string
	AuthorEmail string
	BaseURL     string // defaults to https://api.github.com; overridable for tests
}

// Client implements Store against the GitHub REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a client whose requests carry the configured token.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	return &Client{cfg: cfg, http: oauth2.NewClient(context.Background(), src)}
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.cfg.BaseURL, c.cfg.User, c.cfg.Repo, url.PathEscape(path))
}

func (c *Client) gitURL(endpoint string) string {
	return fmt.Sprintf("%s/repos/%s/%s/git/%s",
		c.cfg.BaseURL, c.cfg.User, c.cfg.Repo, endpoint)
}

// committer returns the configured commit author, or nil to let the API
// attribute commits to the token owner.
func (c *Client) committer() map[string]string {
	if c.cfg.AuthorName == "" || c.cfg.AuthorEmail == "" {
		return nil
	}
	return map[string]string{"name": c.cfg.AuthorName, "email": c.cfg.AuthorEmail}
}

func (c *Client) do(ctx context.Context, method, rawurl string, payload any) (gjson.Result, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return gjson.Result{}, 0, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawurl, body)
	if err != nil {
		return gjson.Result{}, 0, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, resp.StatusCode, err
	}
	return gjson.ParseBytes(data), resp.StatusCode, nil
}

// ReadFile fetches a file from the configured branch.
func (c *Client) ReadFile(ctx context.Context, path string) (*File, error) {
	res, status, err := c.do(ctx, http.MethodGet,
		c.contentsURL(path)+"?ref="+url.QueryEscape(c.cfg.Branch), nil)
	if err != nil {
		return nil, fmt.Errorf("gitstore: read %s: %w", path, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("gitstore: read %s: %w", path, apperr.ErrNotFound)
	default:
		return nil, fmt.Errorf("gitstore: read %s: status %d", path, status)
	}
	content, err := decodeBase64(res.Get("content").String())
	if err != nil {
		return nil, fmt.Errorf("gitstore: read %s: %w", path, err)
	}
	return &File{Path: path, Content: content, SHA: res.Get("sha").String()}, nil
}

// WriteFile creates or updates one file in its own commit.
func (c *Client) WriteFile(ctx context.Context, path string, content []byte, sha, message string) error {
	payload := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.cfg.Branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	if committer := c.committer(); committer != nil {
		payload["committer"] = committer
	}
	_, status, err := c.do(ctx, http.MethodPut, c.contentsURL(path), payload)
	if err != nil {
		return fmt.Errorf("gitstore: write %s: %w", path, err)
	}
	return writeStatus("write", path, status)
}

// DeleteFile removes a file, identified by its current hash.
func (c *Client) DeleteFile(ctx context.Context, path, sha, message string) error {
	payload := map[string]any{
		"message": message,
		"sha":     sha,
		"branch":  c.cfg.Branch,
	}
	if committer := c.committer(); committer != nil {
		payload["committer"] = committer
	}
	_, status, err := c.do(ctx, http.MethodDelete, c.contentsURL(path), payload)
	if err != nil {
		return fmt.Errorf("gitstore: delete %s: %w", path, err)
	}
	return writeStatus("delete", path, status)
}

func writeStatus(op, path string, status int) error {
	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("gitstore: %s %s: %w", op, path, apperr.ErrNotFound)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("gitstore: %s %s: %w", op, path, apperr.ErrConflict)
	}
	return fmt.Errorf("gitstore: %s %s: status %d", op, path, status)
}

// ListDirectory returns the files directly under dir on the branch.
func (c *Client) ListDirectory(ctx context.Context, dir string) ([]Entry, error) {
	res, status, err := c.do(ctx, http.MethodGet,
		c.contentsURL(dir)+"?ref="+url.QueryEscape(c.cfg.Branch), nil)
	if err != nil {
		return nil, fmt.Errorf("gitstore: list %s: %w", dir, err)
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("gitstore: list %s: %w", dir, apperr.ErrNotFound)
	default:
		return nil, fmt.Errorf("gitstore: list %s: status %d", dir, status)
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("gitstore: list %s: %w", dir, apperr.ErrNotFound)
	}
	var entries []Entry
	res.ForEach(func(_, item gjson.Result) bool {
		entries = append(entries, Entry{Path: item.Get("path").String()})
		return true
	})
	return entries, nil
}

// GetRef resolves a branch to its tip commit id.
func (c *Client) GetRef(ctx context.Context, branch string) (string, error) {
	res, status, err := c.do(ctx, http.MethodGet, c.gitURL("ref/heads/"+branch), nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}
	return res.Get("object.sha").String(), nil
}

// GetCommit returns the root tree id of a commit.
func (c *Client) GetCommit(ctx context.Context, sha string) (string, error) {
	res, status, err := c.do(ctx, http.MethodGet, c.gitURL("commits/"+sha), nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}
	return res.Get("tree.sha").String(), nil
}

// CreateBlob stores content as an immutable blob.
func (c *Client) CreateBlob(ctx context.Context, content []byte) (string, error) {
	res, status, err := c.do(ctx, http.MethodPost, c.gitURL("blobs"), map[string]any{
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}
	return res.Get("sha").String(), nil
}

// CreateTree builds a tree on top of baseTree with one entry per blob.
func (c *Client) CreateTree(ctx context.Context, baseTree string, entries []TreeEntry) (string, error) {
	tree := make([]map[string]string, 0, len(entries))
	for _, e := range entries {
		tree = append(tree, map[string]string{
			"path": e.Path,
			"mode": "100644",
			"type": "blob",
			"sha":  e.SHA,
		})
	}
	res, status, err := c.do(ctx, http.MethodPost, c.gitURL("trees"), map[string]any{
		"base_tree": baseTree,
		"tree":      tree,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}
	return res.Get("sha").String(), nil
}

// CreateCommit records a tree with its parent commit.
func (c *Client) CreateCommit(ctx context.Context, tree, parent, message string) (string, error) {
	payload := map[string]any{
		"message": message,
		"tree":    tree,
		"parents": []string{parent},
	}
	if committer := c.committer(); committer != nil {
		payload["committer"] = committer
	}
	res, status, err := c.do(ctx, http.MethodPost, c.gitURL("commits"), payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("status %d", status)
	}
	return res.Get("sha").String(), nil
}

// UpdateRef fast-forwards a branch to a commit.
func (c *Client) UpdateRef(ctx context.Context, branch, sha string) error {
	_, status, err := c.do(ctx, http.MethodPatch, c.gitURL("refs/heads/"+branch),
		map[string]any{"sha": sha})
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("status %d", status)
	}
	return nil
}

// decodeBase64 handles the newline-wrapped base64 the contents API returns.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' {
			return -1
		}
		return r
	}, s)
	return base64.StdEncoding.DecodeString(s)
}
