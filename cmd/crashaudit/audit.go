package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"crashaudit/internal/cache"
	"crashaudit/internal/correlate"
	"crashaudit/internal/gitscan"
	"crashaudit/internal/log"
	"crashaudit/internal/output"
	"crashaudit/internal/report"
	"crashaudit/internal/tracker"
	"crashaudit/internal/ui"
)

var (
	fromDate     string
	toDate       string
	githubToken  string
	refreshCache bool
	jsonOut      bool
	copyURLs     bool
	interactive  bool
)

func registerAuditFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&fromDate, "from", "", "Start date for scanning (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toDate, "to", "", "End date for scanning (YYYY-MM-DD)")
	cmd.Flags().StringVar(&githubToken, "github-token", "", "GitHub access token (or use GITHUB_TOKEN env var)")
	cmd.Flags().BoolVar(&refreshCache, "refresh-cache", false, "Force refresh the open-issue snapshot")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&copyURLs, "copy", false, "Copy flagged issue URLs to clipboard")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse flagged issues interactively")
}

// parseDay parses a YYYY-MM-DD flag value.
func parseDay(flag, value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", flag, value)
	}
	return d, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	l := log.FromContext(ctx)
	out := output.FromContext(ctx)

	repoPath := args[0]
	info, err := os.Stat(repoPath)
	if err != nil {
		return fmt.Errorf("repository path does not exist: %s", repoPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("repository path is not a directory: %s", repoPath)
	}

	var from, to time.Time
	if fromDate != "" {
		if from, err = parseDay("from", fromDate); err != nil {
			return err
		}
	}
	if toDate != "" {
		if to, err = parseDay("to", toDate); err != nil {
			return err
		}
	}
	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return fmt.Errorf("start date must be before end date")
	}

	l.Printf("Scanning repository for deleted crash tests...\n")
	if !from.IsZero() {
		until := "present"
		if !to.IsZero() {
			until = to.Format("2006-01-02")
		}
		l.Printf("Date range: %s to %s\n", from.Format("2006-01-02"), until)
	}
	l.Println()

	scanner := gitscan.Scanner{
		RepoPath: repoPath,
		Prefix:   cfg.TestPrefix,
		Marker:   cfg.MergeMarker,
		From:     from,
		To:       to,
	}
	events, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan git history: %w", err)
	}

	l.Printf("Found %d deleted crash test files\n\n", len(events))
	if len(events) == 0 {
		out.Println("No deleted crash test files found in the specified range.")
		return nil
	}

	open, openCount, snapshotAge, err := openIssueSet(ctx)
	if err != nil {
		return err
	}

	currentFiles, err := gitscan.CurrentFiles(ctx, repoPath, cfg.TestPrefix)
	if err != nil {
		return fmt.Errorf("list current crash tests: %w", err)
	}

	reports, stats := correlate.Classify(events, open, currentFiles)

	if l.IsVerbose() {
		for _, r := range reports {
			l.Printf("  issue #%d: %s\n", r.IssueID, r.Class)
		}
		l.Println()
	}

	opts := report.Options{
		Color:          !jsonOut && report.ColorEnabled(os.Stdout),
		RepoSlug:       cfg.Slug(),
		SnapshotAge:    snapshotAge,
		OpenIssueCount: openCount,
	}

	if jsonOut {
		if err := report.RenderJSON(out.Writer(), reports, stats, opts); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
	} else {
		report.Render(out.Writer(), reports, stats, opts)
	}

	flagged := correlate.Filter(reports, correlate.FullyDeletedOpen)

	if copyURLs && len(flagged) > 0 {
		urls := report.URLs(flagged, cfg.Slug())
		if err := clipboard.WriteAll(strings.Join(urls, "\n")); err != nil {
			l.Printf("Warning: failed to copy to clipboard: %v\n", err)
		} else {
			l.Printf("Copied %d issue URL(s) to clipboard\n", len(urls))
		}
	}

	if interactive {
		if err := ui.RunBrowser(flagged, cfg.Slug()); err != nil {
			return fmt.Errorf("interactive browser: %w", err)
		}
	}

	return nil
}

// cachedSnapshot returns the persisted snapshot from dir, or nil when no
// usable snapshot exists. An unreadable snapshot is treated as absent so
// the audit falls through to a fresh fetch that overwrites it.
func cachedSnapshot(ctx context.Context, dir string) *cache.Snapshot {
	if !cache.Exists(dir) {
		return nil
	}
	snap, err := cache.Load(dir)
	if err != nil {
		log.FromContext(ctx).Printf("Warning: ignoring unreadable issue snapshot: %v\n", err)
		return nil
	}
	return snap
}

// openIssueSet acquires the open-issue snapshot: a forced refresh or a
// missing or unreadable cache fetches from the tracker and persists the
// result, an existing cache is used as-is. Returns the set, its size, and
// a human-readable snapshot age (empty for a fresh fetch).
func openIssueSet(ctx context.Context) (map[uint64]struct{}, int, string, error) {
	l := log.FromContext(ctx)

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		var err error
		if cacheDir, err = cache.DefaultDir(); err != nil {
			return nil, 0, "", err
		}
	}

	if !refreshCache {
		if snap := cachedSnapshot(ctx, cacheDir); snap != nil {
			age := cache.FormatAge(snap.Age())
			l.Printf("Using cached data (updated %s ago)\n", age)
			l.Printf("Use --refresh-cache to update\n\n")
			return snap.Set(), snap.IssueCount, age, nil
		}
	}

	if refreshCache {
		l.Printf("Refreshing cache...\n\n")
	}

	token := githubToken
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}

	client := tracker.NewClient(token, cfg.Owner, cfg.Repo)
	open, _, err := client.FetchOpenIssues(ctx)
	if err != nil {
		return nil, 0, "", fmt.Errorf("fetch open issues from %s: %w", cfg.Slug(), err)
	}

	if _, err := cache.Save(cacheDir, open); err != nil {
		return nil, 0, "", fmt.Errorf("save issue snapshot: %w", err)
	}
	l.Printf("Cached %d open issues\n\n", len(open))

	return open, len(open), "", nil
}
