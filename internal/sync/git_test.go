package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// newGitClone creates a bare remote and a clone of it with one commit on
// main, returning the clone's path.
func newGitClone(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not found in PATH")
	}

	remoteDir := t.TempDir()
	run(t, remoteDir, "git", "init", "--bare")

	workDir := t.TempDir()
	run(t, workDir, "git", "clone", remoteDir, "repo")
	repoDir := filepath.Join(workDir, "repo")

	run(t, repoDir, "git", "config", "user.email", "test@test.com")
	run(t, repoDir, "git", "config", "user.name", "Test")
	run(t, repoDir, "git", "branch", "-m", "main")

	if err := os.WriteFile(filepath.Join(repoDir, ".gitkeep"), nil, 0o644); err != nil {
		t.Fatalf("write .gitkeep: %v", err)
	}
	run(t, repoDir, "git", "add", ".")
	run(t, repoDir, "git", "commit", "-m", "init")
	run(t, repoDir, "git", "push", "origin", "main")
	return repoDir
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %v: %v", args, err)
	}
	return strings.TrimSpace(string(out))
}

func TestGitDestination(t *testing.T) {
	repoDir := newGitClone(t)
	dest := NewGitDestination(repoDir, "graph.jsonl", "main")
	ctx := context.Background()

	snap1 := Snapshot{Data: []byte(`{"version":"1","type":"header"}` + "\n"), Nodes: 0, Links: 0}
	if err := dest.Write(ctx, snap1); err != nil {
		t.Fatalf("first write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(repoDir, "graph.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != string(snap1.Data) {
		t.Fatalf("file content mismatch: got %q", got)
	}
	commits := gitOutput(t, repoDir, "rev-list", "--count", "HEAD")

	// Same content: no new commit.
	if err := dest.Write(ctx, snap1); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if again := gitOutput(t, repoDir, "rev-list", "--count", "HEAD"); again != commits {
		t.Fatalf("unchanged export should not commit (%s -> %s)", commits, again)
	}

	snap2 := Snapshot{Data: []byte(`{"version":"1","type":"header","node_count":1}` + "\n"), Nodes: 1, Links: 0}
	if err := dest.Write(ctx, snap2); err != nil {
		t.Fatalf("third write: %v", err)
	}
	if msg := gitOutput(t, repoDir, "log", "-1", "--format=%s"); msg != "graphview: export 1 nodes, 0 links" {
		t.Fatalf("unexpected commit message %q", msg)
	}
	if remote := gitOutput(t, repoDir, "rev-parse", "origin/main"); remote != gitOutput(t, repoDir, "rev-parse", "HEAD") {
		t.Fatal("export commit was not pushed")
	}
}

func TestGitDestination_SubDirectory(t *testing.T) {
	repoDir := newGitClone(t)
	dest := NewGitDestination(repoDir, "data/graph.jsonl", "main")

	snap := Snapshot{Data: []byte(`{"type":"header"}` + "\n")}
	if err := dest.Write(context.Background(), snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(repoDir, "data", "graph.jsonl"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(got) != string(snap.Data) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestGitDestination_BadBranch(t *testing.T) {
	repoDir := newGitClone(t)
	err := NewGitDestination(repoDir, "graph.jsonl", "no-such-branch").Write(context.Background(), Snapshot{})
	if err == nil || !strings.Contains(err.Error(), "git checkout") {
		t.Fatalf("expected checkout error with git output, got %v", err)
	}
}

func TestGitDestination_Name(t *testing.T) {
	if got := NewGitDestination("/srv/export", "graph.jsonl", "main").Name(); got != "git:/srv/export/graph.jsonl@main" {
		t.Fatalf("Name() = %q", got)
	}
}

func run(t *testing.T, dir string, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("%s %v failed: %v\n%s", name, args, err, out)
	}
}
