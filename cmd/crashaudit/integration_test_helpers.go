//go:build integration

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"crashaudit/internal/config"
	"crashaudit/internal/log"
	"crashaudit/internal/output"
)

// resolvePath resolves symlinks in a path.
// This is needed on macOS where /var is a symlink to /private/var.
func resolvePath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("failed to resolve path %s: %v", path, err)
	}
	return resolved
}

// gitRun executes a git command in dir, failing the test on error.
func gitRun(t *testing.T, dir string, env []string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
}

// setupAuditRepo creates a git repo whose history deletes crash tests.
//
// Commit 1 (2024-01-01): adds tests/crashes/100.rs, 200-foo.rs, 200-bar.rs
// Commit 2 (2024-02-01): deletes 100.rs
// Commit 3 (2024-03-01): deletes 200-foo.rs (200-bar.rs survives)
func setupAuditRepo(t *testing.T) string {
	t.Helper()

	repoPath := resolvePath(t, t.TempDir())

	gitRun(t, repoPath, nil, "init", "-b", "main")
	gitRun(t, repoPath, nil, "config", "user.email", "test@test.com")
	gitRun(t, repoPath, nil, "config", "user.name", "Test User")
	gitRun(t, repoPath, nil, "config", "commit.gpgsign", "false")

	crashDir := filepath.Join(repoPath, "tests", "crashes")
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"100.rs", "200-foo.rs", "200-bar.rs"} {
		if err := os.WriteFile(filepath.Join(crashDir, name), []byte("// crash test\n"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	commitAt(t, repoPath, "2024-01-01T12:00:00+00:00", "Add crash tests")

	gitRun(t, repoPath, nil, "rm", "-q", "tests/crashes/100.rs")
	commitAt(t, repoPath, "2024-02-01T12:00:00+00:00", "Auto merge of #11111 - cleanup")

	gitRun(t, repoPath, nil, "rm", "-q", "tests/crashes/200-foo.rs")
	commitAt(t, repoPath, "2024-03-01T12:00:00+00:00", "Auto merge of #22222 - cleanup")

	return repoPath
}

func commitAt(t *testing.T, repoPath, date, message string) {
	t.Helper()
	env := []string{
		"GIT_AUTHOR_DATE=" + date,
		"GIT_COMMITTER_DATE=" + date,
	}
	gitRun(t, repoPath, env, "add", "-A")
	gitRun(t, repoPath, env, "commit", "-q", "-m", message)
}

// testContext builds a context carrying a quiet logger and a captured
// output printer.
func testContext(t *testing.T) (context.Context, *strings.Builder) {
	t.Helper()
	var out strings.Builder
	ctx := log.WithLogger(context.Background(), log.New(os.Stderr, false, true))
	ctx = output.WithPrinter(ctx, &out)
	return ctx, &out
}

// withTestConfig points the package config at a throwaway cache dir.
func withTestConfig(t *testing.T) string {
	t.Helper()
	cacheDir := t.TempDir()
	old := cfg
	testCfg := config.Default()
	testCfg.CacheDir = cacheDir
	cfg = &testCfg
	t.Cleanup(func() { cfg = old })
	return cacheDir
}

// resetAuditFlags restores audit flag globals after a test.
func resetAuditFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		fromDate, toDate, githubToken = "", "", ""
		refreshCache, jsonOut, copyURLs, interactive = false, false, false, false
	})
}
