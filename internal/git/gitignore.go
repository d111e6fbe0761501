package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// GitignoreFile is the ignore file maintained at the worktree root.
const GitignoreFile = ".gitignore"

const ignoreHeader = "# Linked by pharm, restored with `pharm install`"

// Ignore adds each path to the root .gitignore unless a pattern anywhere in
// the worktree already ignores it. Paths outside the worktree are skipped.
// It returns the entries that were added, e.g. "/tools/phpunit".
func (r *Repository) Ignore(ctx context.Context, paths ...string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	patterns, err := gitignore.ReadPatterns(r.worktree.Filesystem, nil)
	if err != nil {
		return nil, fmt.Errorf("read ignore patterns: %w", err)
	}
	matcher := gitignore.NewMatcher(patterns)

	root := r.Root()
	seen := make(map[string]bool)
	var added []string
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		rel = filepath.ToSlash(rel)
		if seen[rel] || matcher.Match(strings.Split(rel, "/"), false) {
			continue
		}
		seen[rel] = true
		added = append(added, "/"+rel)
	}

	if len(added) == 0 {
		return nil, nil
	}
	if err := appendEntries(filepath.Join(root, GitignoreFile), added); err != nil {
		return nil, err
	}
	return added, nil
}

func appendEntries(path string, entries []string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", GitignoreFile, err)
	}

	var buf bytes.Buffer
	buf.Write(existing)
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		buf.WriteByte('\n')
	}
	if !bytes.Contains(existing, []byte(ignoreHeader)) {
		if len(existing) > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(ignoreHeader + "\n")
	}
	for _, e := range entries {
		buf.WriteString(e + "\n")
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", GitignoreFile, err)
	}
	return nil
}
