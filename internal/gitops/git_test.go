package gitops

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// newTestRepo initializes a throwaway git repository
func newTestRepo(t *testing.T) *Manager {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return NewManager(dir)
}

func writeFile(t *testing.T, m *Manager, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(m.repoDir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestStatusCleanAndDirty(t *testing.T) {
	m := newTestRepo(t)
	ctx := context.Background()

	st, err := m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !st.Clean {
		t.Errorf("fresh repo should be clean, changes: %v", st.Changes)
	}

	writeFile(t, m, "a.txt", "hello")

	st, err = m.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Clean {
		t.Error("repo with untracked file should not be clean")
	}
	if len(st.Changes) != 1 {
		t.Errorf("changes = %d, want 1", len(st.Changes))
	}
}

func TestCommitAndLog(t *testing.T) {
	m := newTestRepo(t)
	ctx := context.Background()

	writeFile(t, m, "a.txt", "hello")
	hash, err := m.Commit(ctx, "add a.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(hash) != 40 {
		t.Errorf("hash = %q, want full sha", hash)
	}

	writeFile(t, m, "b.txt", "world")
	if _, err := m.Commit(ctx, "add b.txt"); err != nil {
		t.Fatal(err)
	}

	entries, err := m.Log(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	// Newest first
	if entries[0].Message != "add b.txt" {
		t.Errorf("first entry = %q, want newest commit", entries[0].Message)
	}
	if entries[0].Author != "Test" {
		t.Errorf("author = %q, want Test", entries[0].Author)
	}
}

func TestCommitEmptyMessage(t *testing.T) {
	m := newTestRepo(t)
	if _, err := m.Commit(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty commit message")
	}
}

func TestCreateBranchAndCurrent(t *testing.T) {
	m := newTestRepo(t)
	ctx := context.Background()

	writeFile(t, m, "a.txt", "x")
	if _, err := m.Commit(ctx, "initial"); err != nil {
		t.Fatal(err)
	}

	if err := m.CreateBranch(ctx, "feature/test"); err != nil {
		t.Fatal(err)
	}

	branch, err := m.CurrentBranch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if branch != "feature/test" {
		t.Errorf("branch = %q, want feature/test", branch)
	}

	branches, err := m.Branches(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) < 2 {
		t.Errorf("branches = %v, want at least 2", branches)
	}
}

func TestDiff(t *testing.T) {
	m := newTestRepo(t)
	ctx := context.Background()

	writeFile(t, m, "a.txt", "one\n")
	if _, err := m.Commit(ctx, "initial"); err != nil {
		t.Fatal(err)
	}

	writeFile(t, m, "a.txt", "two\n")
	diff, err := m.Diff(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff == "" {
		t.Error("expected a non-empty diff for a modified file")
	}
}
