// Package gitstore persists documents in a git-hosted repository through
// the hosting service's contents and git data APIs.
package gitstore

import "context"

// File is one stored file together with its content hash.
type File struct {
	Path    string
	Content []byte
	SHA     string
}

// Entry is one item in a directory listing.
type Entry struct {
	Path string
}

// TreeEntry pairs a repository path with a created blob.
type TreeEntry struct {
	Path string
	SHA  string
}

// Store is the versioned-object-store contract the publisher depends on.
// Reads of missing paths report apperr.ErrNotFound; writes against a stale
// hash report apperr.ErrConflict.
type Store interface {
	// ReadFile fetches a file and its current content hash.
	ReadFile(ctx context.Context, path string) (*File, error)
	// WriteFile creates (empty sha) or updates (sha of the prior version)
	// a single file in its own commit.
	WriteFile(ctx context.Context, path string, content []byte, sha, message string) error
	// DeleteFile removes a file, identified by its current hash.
	DeleteFile(ctx context.Context, path, sha, message string) error
	// ListDirectory returns the files directly under dir.
	ListDirectory(ctx context.Context, dir string) ([]Entry, error)

	// GetRef resolves a branch to its tip commit id.
	GetRef(ctx context.Context, branch string) (string, error)
	// GetCommit returns the root tree id of a commit.
	GetCommit(ctx context.Context, sha string) (string, error)
	// CreateBlob stores content and returns its blob id. Blobs are
	// content-addressed and inert until referenced by a tree.
	CreateBlob(ctx context.Context, content []byte) (string, error)
	// CreateTree builds a tree on top of baseTree with one entry per blob.
	CreateTree(ctx context.Context, baseTree string, entries []TreeEntry) (string, error)
	// CreateCommit records a tree with its parent commit.
	CreateCommit(ctx context.Context, tree, parent, message string) (string, error)
	// UpdateRef fast-forwards a branch to a commit.
	UpdateRef(ctx context.Context, branch, sha string) error
}
