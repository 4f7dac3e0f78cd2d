package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits each export to a file in a local clone and pushes
// it. Exports that leave the file unchanged produce no commit.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // file path within the repo
	branch string
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone with an "origin" remote.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file) + "@" + d.branch
}

func (d *GitDestination) Write(ctx context.Context, snap Snapshot) error {
	if _, err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The remote may not have the branch yet.
	_, _ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if _, err := d.git(ctx, "add", d.file); err != nil {
		return err
	}

	// Exit status 1 means the index differs from HEAD.
	if _, err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}

	msg := fmt.Sprintf("graphview: export %d nodes, %d links", snap.Nodes, snap.Links)
	if _, err := d.git(ctx, "commit", "-m", msg); err != nil {
		return err
	}
	if _, err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return err
	}
	return nil
}

// git runs a git subcommand in the clone. Failures carry git's output.
func (d *GitDestination) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.String(), fmt.Errorf("git %s: exit %d: %s", args[0], exitErr.ExitCode(), strings.TrimSpace(out.String()))
		}
		return out.String(), fmt.Errorf("git %s: %w", args[0], err)
	}
	return out.String(), nil
}
