// Package gitops keeps a mileage project's config and exported logs under
// version control by shelling out to git.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrGitNotFound is returned when no git binary is on PATH.
var ErrGitNotFound = errors.New("git executable not found")

// Available reports whether a git binary can be found.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// Repo is a working tree that commits as a fixed identity.
type Repo struct {
	Dir         string
	AuthorName  string
	AuthorEmail string
}

// IsRepo reports whether dir is the root of a git working tree.
func IsRepo(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// Init creates a repository in dir. An existing repository is reused.
func Init(ctx context.Context, dir, authorName, authorEmail string) (*Repo, error) {
	r := &Repo{Dir: dir, AuthorName: authorName, AuthorEmail: authorEmail}
	if IsRepo(dir) {
		return r, nil
	}
	if _, err := r.git(ctx, "init", "--quiet"); err != nil {
		return nil, err
	}
	return r, nil
}

// Commit stages paths, relative to Dir, and commits them. It returns the
// short hash of the new commit. Nothing staged is not an error; the current
// HEAD is returned.
func (r *Repo) Commit(ctx context.Context, message string, paths ...string) (string, error) {
	if len(paths) == 0 {
		return "", errors.New("git commit: no paths given")
	}
	if _, err := r.git(ctx, append([]string{"add", "--"}, paths...)...); err != nil {
		return "", err
	}

	// diff --cached --quiet exits 1 when something is staged.
	if _, err := r.git(ctx, "diff", "--cached", "--quiet"); err != nil {
		if _, err := r.git(ctx, "commit", "--quiet", "-m", message); err != nil {
			return "", err
		}
	}
	return r.Head(ctx)
}

// Head returns the short hash of HEAD.
func (r *Repo) Head(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// LastMessage returns the subject line of the latest commit.
func (r *Repo) LastMessage(ctx context.Context) (string, error) {
	out, err := r.git(ctx, "log", "-1", "--format=%s")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	path, err := exec.LookPath("git")
	if err != nil {
		return "", ErrGitNotFound
	}
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.Dir
	// Commits must not depend on the user's global git identity.
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+r.AuthorName,
		"GIT_AUTHOR_EMAIL="+r.AuthorEmail,
		"GIT_COMMITTER_NAME="+r.AuthorName,
		"GIT_COMMITTER_EMAIL="+r.AuthorEmail,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}
