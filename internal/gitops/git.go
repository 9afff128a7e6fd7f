// Package gitops shells out to git for stateless repository operations.
package gitops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Manager runs git commands against one repository
type Manager struct {
	repoDir string
}

// NewManager creates a Manager rooted at repoDir
func NewManager(repoDir string) *Manager {
	if repoDir == "" {
		repoDir = "."
	}
	return &Manager{repoDir: repoDir}
}

// run executes git with the given args and returns trimmed stdout
func (m *Manager) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.repoDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Status holds porcelain status output split into branch and changes
type Status struct {
	Branch  string   `json:"branch"`
	Changes []string `json:"changes"`
	Clean   bool     `json:"clean"`
}

// Status reports the working tree state
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	out, err := m.run(ctx, "status", "--porcelain", "-b")
	if err != nil {
		return nil, err
	}

	st := &Status{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			st.Branch = strings.TrimPrefix(line, "## ")
			continue
		}
		st.Changes = append(st.Changes, line)
	}
	st.Clean = len(st.Changes) == 0
	return st, nil
}

// Diff returns the unified diff of unstaged (or staged) changes
func (m *Manager) Diff(ctx context.Context, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--cached")
	}
	return m.run(ctx, args...)
}

// LogEntry is one commit in the history listing
type LogEntry struct {
	Hash    string `json:"hash"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// Log returns the most recent commits, newest first
func (m *Manager) Log(ctx context.Context, count int) ([]LogEntry, error) {
	if count <= 0 {
		count = 10
	}
	out, err := m.run(ctx, "log", fmt.Sprintf("-%d", count), "--pretty=format:%H%x09%an%x09%aI%x09%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}

	var entries []LogEntry
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\t", 4)
		if len(parts) != 4 {
			continue
		}
		entries = append(entries, LogEntry{Hash: parts[0], Author: parts[1], Date: parts[2], Message: parts[3]})
	}
	return entries, nil
}

// Branches lists local branch names
func (m *Manager) Branches(ctx context.Context) ([]string, error) {
	out, err := m.run(ctx, "branch", "--list", "--format=%(refname:short)")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// CurrentBranch returns the checked-out branch name
func (m *Manager) CurrentBranch(ctx context.Context) (string, error) {
	return m.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// CreateBranch creates and checks out a new branch
func (m *Manager) CreateBranch(ctx context.Context, name string) error {
	_, err := m.run(ctx, "checkout", "-b", name)
	return err
}

// Commit stages everything and commits with the given message,
// returning the new commit hash.
func (m *Manager) Commit(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit message must not be empty")
	}
	if _, err := m.run(ctx, "add", "-A"); err != nil {
		return "", err
	}
	if _, err := m.run(ctx, "commit", "-m", message); err != nil {
		return "", err
	}
	return m.run(ctx, "rev-parse", "HEAD")
}
