package gitstore

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CommitFile is one file in a multi-file commit batch.
type CommitFile struct {
	Path    string
	Content []byte
}

// Commit writes a batch of files to branch as a single commit: resolve the
// branch tip, fetch its root tree, create one blob per file, build a new
// tree on top of the old one, commit it, and fast-forward the branch. Blob
// creation has no ordering dependency and runs concurrently; every other
// step depends on the previous one's output and runs sequentially.
//
// Any step failing aborts the whole batch. Objects created before the
// failure stay unreferenced in the store and nothing becomes visible at any
// path in the batch. The pipeline does not retry; re-running the whole
// sequence is safe because blobs are content-addressed and the ref update
// is a plain pointer overwrite.
func Commit(ctx context.Context, s Store, branch, message string, files []CommitFile) error {
	head, err := s.GetRef(ctx, branch)
	if err != nil {
		return fmt.Errorf("gitstore: resolve ref %s: %w", branch, err)
	}
	baseTree, err := s.GetCommit(ctx, head)
	if err != nil {
		return fmt.Errorf("gitstore: fetch commit %s: %w", head, err)
	}

	entries := make([]TreeEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			sha, err := s.CreateBlob(gctx, file.Content)
			if err != nil {
				return fmt.Errorf("gitstore: create blob for %s: %w", file.Path, err)
			}
			entries[i] = TreeEntry{Path: file.Path, SHA: sha}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	tree, err := s.CreateTree(ctx, baseTree, entries)
	if err != nil {
		return fmt.Errorf("gitstore: create tree: %w", err)
	}
	commit, err := s.CreateCommit(ctx, tree, head, message)
	if err != nil {
		return fmt.Errorf("gitstore: create commit: %w", err)
	}
	if err := s.UpdateRef(ctx, branch, commit); err != nil {
		return fmt.Errorf("gitstore: update ref %s: %w", branch, err)
	}
	return nil
}
