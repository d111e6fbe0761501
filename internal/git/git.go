// Package git keeps linked phars out of version control.
//
// A linked install points into the user's phar store and is recreated by
// `pharm install`, so its destination is added to the .gitignore of the
// repository containing the project.
package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
)

// ErrNotAGitRepo is returned by Open when no repository contains the
// directory.
var ErrNotAGitRepo = errors.New("not a git repository")

// Repository is a non-bare git worktree.
type Repository struct {
	worktree *gogit.Worktree
}

// Open finds the repository containing dir, searching parent directories
// the way git does.
func Open(ctx context.Context, dir string) (*Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotAGitRepo)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("get worktree: %w", err)
	}
	return &Repository{worktree: worktree}, nil
}

// Root returns the worktree root directory.
func (r *Repository) Root() string {
	return r.worktree.Filesystem.Root()
}
