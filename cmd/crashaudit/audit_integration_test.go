//go:build integration

package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"crashaudit/internal/cache"
	"crashaudit/internal/log"
)

// auditCmd builds a throwaway command wired like the root audit command.
func auditCmd(t *testing.T) (*cobra.Command, *strings.Builder) {
	t.Helper()
	resetAuditFlags(t)

	ctx, out := testContext(t)
	cmd := &cobra.Command{
		Use:          "crashaudit",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         runAudit,
	}
	registerAuditFlags(cmd)
	cmd.SetContext(ctx)
	return cmd, out
}

// TestAudit_EndToEnd runs the full audit against a constructed repo and
// a pre-seeded snapshot.
//
// Issue 100: only test deleted, issue open  -> needs attention
// Issue 200: one of two tests deleted       -> partially cleaned
func TestAudit_EndToEnd(t *testing.T) {
	repoPath := setupAuditRepo(t)
	cacheDir := withTestConfig(t)

	if _, err := cache.Save(cacheDir, map[uint64]struct{}{100: {}, 200: {}}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	cmd, out := auditCmd(t)
	cmd.SetArgs([]string{repoPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("audit failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Issue #100: tests/crashes/100.rs deleted in",
		"2024-02-01, PR #11111",
		"https://github.com/rust-lang/rust/issues/100",
		"Issue #200: 1 deleted, 1 remaining",
		"Found 1 out-of-sync issue(s) that need attention.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q\n---\n%s", want, got)
		}
	}
}

// TestAudit_JSON checks the machine-readable output of the same scenario.
func TestAudit_JSON(t *testing.T) {
	repoPath := setupAuditRepo(t)
	cacheDir := withTestConfig(t)

	if _, err := cache.Save(cacheDir, map[uint64]struct{}{100: {}, 200: {}}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	cmd, out := auditCmd(t)
	cmd.SetArgs([]string{"--json", repoPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("audit --json failed: %v", err)
	}

	var report struct {
		Stats struct {
			TotalFiles int `json:"total_deleted_files"`
		} `json:"stats"`
		NeedsAttention []struct {
			IssueID uint64 `json:"issue_id"`
		} `json:"needs_attention"`
		PartiallyClean []struct {
			IssueID        uint64 `json:"issue_id"`
			RemainingCount int    `json:"remaining_count"`
		} `json:"partially_cleaned"`
	}
	if err := json.Unmarshal([]byte(out.String()), &report); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out.String())
	}

	if report.Stats.TotalFiles != 2 {
		t.Errorf("total_deleted_files = %d, want 2", report.Stats.TotalFiles)
	}
	if len(report.NeedsAttention) != 1 || report.NeedsAttention[0].IssueID != 100 {
		t.Errorf("needs_attention = %+v, want issue 100", report.NeedsAttention)
	}
	if len(report.PartiallyClean) != 1 || report.PartiallyClean[0].RemainingCount != 1 {
		t.Errorf("partially_cleaned = %+v, want issue 200 with 1 remaining", report.PartiallyClean)
	}
}

// TestAudit_DateRangeExcludesDeletions bounds the scan so no deletions
// fall inside the range.
func TestAudit_DateRangeExcludesDeletions(t *testing.T) {
	repoPath := setupAuditRepo(t)
	withTestConfig(t)

	cmd, out := auditCmd(t)
	cmd.SetArgs([]string{"--from", "2025-01-01", repoPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if !strings.Contains(out.String(), "No deleted crash test files found") {
		t.Errorf("expected empty-range notice, got:\n%s", out.String())
	}
}

// TestAudit_InvertedDateRange is a usage error before any scan.
func TestAudit_InvertedDateRange(t *testing.T) {
	repoPath := setupAuditRepo(t)
	withTestConfig(t)

	cmd, _ := auditCmd(t)
	cmd.SetArgs([]string{"--from", "2024-06-01", "--to", "2024-01-01", repoPath})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for inverted date range")
	}
	if !strings.Contains(err.Error(), "start date must be before end date") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestAudit_BadRepoPath rejects a nonexistent path.
func TestAudit_BadRepoPath(t *testing.T) {
	withTestConfig(t)

	cmd, _ := auditCmd(t)
	cmd.SetArgs([]string{"/nonexistent/path"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing repository path")
	}
}

// TestAudit_CorruptSnapshotIgnored verifies that a snapshot file that no
// longer parses is treated as absent, so the audit would re-fetch and
// overwrite it instead of failing the run.
func TestAudit_CorruptSnapshotIgnored(t *testing.T) {
	cacheDir := withTestConfig(t)

	if err := os.WriteFile(cache.Path(cacheDir), []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	var diag strings.Builder
	ctx := log.WithLogger(context.Background(), log.New(&diag, false, false))

	if snap := cachedSnapshot(ctx, cacheDir); snap != nil {
		t.Errorf("cachedSnapshot = %+v, want nil for corrupt snapshot", snap)
	}
	if !strings.Contains(diag.String(), "ignoring unreadable issue snapshot") {
		t.Errorf("missing warning about unreadable snapshot:\n%s", diag.String())
	}

	// A valid snapshot in the same dir is returned as usual.
	if _, err := cache.Save(cacheDir, map[uint64]struct{}{100: {}}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
	snap := cachedSnapshot(ctx, cacheDir)
	if snap == nil || snap.IssueCount != 1 {
		t.Errorf("cachedSnapshot after save = %+v, want 1 issue", snap)
	}

	// No snapshot at all is also absent, without a warning.
	if snap := cachedSnapshot(ctx, t.TempDir()); snap != nil {
		t.Errorf("cachedSnapshot = %+v, want nil for empty dir", snap)
	}
}

// TestCacheStatusAndClear exercises the cache subcommands.
func TestCacheStatusAndClear(t *testing.T) {
	cacheDir := withTestConfig(t)

	if _, err := cache.Save(cacheDir, map[uint64]struct{}{1: {}, 2: {}}); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	ctx, out := testContext(t)
	cmd := newCacheCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{"status"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache status failed: %v", err)
	}
	if !strings.Contains(out.String(), "Open issues: 2") {
		t.Errorf("status output missing issue count:\n%s", out.String())
	}

	ctx, _ = testContext(t)
	cmd = newCacheCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{"clear"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if cache.Exists(cacheDir) {
		t.Error("snapshot still present after clear")
	}

	ctx, out = testContext(t)
	cmd = newCacheCmd()
	cmd.SetContext(ctx)
	cmd.SetArgs([]string{"status"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("cache status after clear failed: %v", err)
	}
	if !strings.Contains(out.String(), "No snapshot cached") {
		t.Errorf("status after clear:\n%s", out.String())
	}
}
