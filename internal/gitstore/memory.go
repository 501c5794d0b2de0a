package gitstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/starford/wunjo/internal/apperr"
)

// Memory is an in-process Store used for local development dry runs and in
// tests. It models the hosting API's commit semantics: contents-API writes
// land immediately, while git-data objects stay invisible until a ref
// update applies their tree to the branch.
type Memory struct {
	mu sync.Mutex

	files map[string][]byte
	shas  map[string]string

	blobs   map[string][]byte
	trees   map[string]map[string]string // tree id → path → blob id
	commits map[string]string            // commit id → tree id
	head    string
	seq     int

	// FailStep, when set to a Store method name, makes that method fail.
	FailStep string
}

// NewMemory returns an empty store with a single root commit.
func NewMemory() *Memory {
	m := &Memory{
		files:   map[string][]byte{},
		shas:    map[string]string{},
		blobs:   map[string][]byte{},
		trees:   map[string]map[string]string{"tree-0": {}},
		commits: map[string]string{"commit-0": "tree-0"},
		head:    "commit-0",
	}
	return m
}

func (m *Memory) fail(step string) error {
	if m.FailStep == step {
		return fmt.Errorf("memory store: %s failed", step)
	}
	return nil
}

func (m *Memory) nextID(kind string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", kind, m.seq)
}

// ReadFile returns a stored file.
func (m *Memory) ReadFile(_ context.Context, path string) (*File, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ReadFile"); err != nil {
		return nil, err
	}
	content, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("memory store: read %s: %w", path, apperr.ErrNotFound)
	}
	return &File{Path: path, Content: append([]byte(nil), content...), SHA: m.shas[path]}, nil
}

// WriteFile creates (empty sha) or updates (matching sha) a file.
func (m *Memory) WriteFile(_ context.Context, path string, content []byte, sha, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("WriteFile"); err != nil {
		return err
	}
	current, exists := m.shas[path]
	if sha == "" && exists {
		return fmt.Errorf("memory store: write %s: %w", path, apperr.ErrConflict)
	}
	if sha != "" && sha != current {
		return fmt.Errorf("memory store: write %s: %w", path, apperr.ErrConflict)
	}
	m.files[path] = append([]byte(nil), content...)
	m.shas[path] = m.nextID("sha")
	return nil
}

// DeleteFile removes a file when the hash matches.
func (m *Memory) DeleteFile(_ context.Context, path, sha, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("DeleteFile"); err != nil {
		return err
	}
	current, exists := m.shas[path]
	if !exists {
		return fmt.Errorf("memory store: delete %s: %w", path, apperr.ErrNotFound)
	}
	if sha != current {
		return fmt.Errorf("memory store: delete %s: %w", path, apperr.ErrConflict)
	}
	delete(m.files, path)
	delete(m.shas, path)
	return nil
}

// ListDirectory returns every file under dir.
func (m *Memory) ListDirectory(_ context.Context, dir string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListDirectory"); err != nil {
		return nil, err
	}
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var entries []Entry
	for path := range m.files {
		if strings.HasPrefix(path, prefix) {
			entries = append(entries, Entry{Path: path})
		}
	}
	if entries == nil {
		return nil, fmt.Errorf("memory store: list %s: %w", dir, apperr.ErrNotFound)
	}
	return entries, nil
}

// GetRef returns the branch tip.
func (m *Memory) GetRef(_ context.Context, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetRef"); err != nil {
		return "", err
	}
	return m.head, nil
}

// GetCommit returns a commit's tree id.
func (m *Memory) GetCommit(_ context.Context, sha string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetCommit"); err != nil {
		return "", err
	}
	tree, ok := m.commits[sha]
	if !ok {
		return "", fmt.Errorf("memory store: commit %s: %w", sha, apperr.ErrNotFound)
	}
	return tree, nil
}

// CreateBlob stores content as a blob.
func (m *Memory) CreateBlob(_ context.Context, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateBlob"); err != nil {
		return "", err
	}
	id := m.nextID("blob")
	m.blobs[id] = append([]byte(nil), content...)
	return id, nil
}

// CreateTree layers entries over a base tree.
func (m *Memory) CreateTree(_ context.Context, baseTree string, entries []TreeEntry) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateTree"); err != nil {
		return "", err
	}
	base, ok := m.trees[baseTree]
	if !ok {
		return "", fmt.Errorf("memory store: tree %s: %w", baseTree, apperr.ErrNotFound)
	}
	tree := make(map[string]string, len(base)+len(entries))
	for path, blob := range base {
		tree[path] = blob
	}
	for _, e := range entries {
		tree[e.Path] = e.SHA
	}
	id := m.nextID("tree")
	m.trees[id] = tree
	return id, nil
}

// CreateCommit records a tree against its parent.
func (m *Memory) CreateCommit(_ context.Context, tree, _, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateCommit"); err != nil {
		return "", err
	}
	id := m.nextID("commit")
	m.commits[id] = tree
	return id, nil
}

// UpdateRef moves the branch tip and makes the commit's tree visible.
func (m *Memory) UpdateRef(_ context.Context, _ string, sha string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateRef"); err != nil {
		return err
	}
	tree, ok := m.commits[sha]
	if !ok {
		return fmt.Errorf("memory store: commit %s: %w", sha, apperr.ErrNotFound)
	}
	m.head = sha
	for path, blob := range m.trees[tree] {
		m.files[path] = append([]byte(nil), m.blobs[blob]...)
		m.shas[path] = m.nextID("sha")
	}
	return nil
}
