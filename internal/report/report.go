// Package report renders the audit result for humans and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"crashaudit/internal/correlate"
	"crashaudit/internal/ui/styles"
)

// Options controls report rendering.
type Options struct {
	Color          bool
	RepoSlug       string // tracker repository, "owner/repo"
	SnapshotAge    string // human-readable snapshot age; empty for a fresh fetch
	OpenIssueCount int
}

// ColorEnabled reports whether styled output should be used for f.
// Respects NO_COLOR and dumb terminals.
func ColorEnabled(f *os.File) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// IssueURL returns the tracker URL for an issue.
func IssueURL(slug string, id uint64) string {
	return fmt.Sprintf("https://github.com/%s/issues/%d", slug, id)
}

// URLs returns the tracker URLs of all reports, in order.
func URLs(reports []correlate.IssueReport, slug string) []string {
	urls := make([]string, 0, len(reports))
	for _, r := range reports {
		urls = append(urls, IssueURL(slug, r.IssueID))
	}
	return urls
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}

// paint applies style only when color is enabled.
func paint(color bool, style lipgloss.Style, s string) string {
	if !color {
		return s
	}
	return style.Render(s)
}

const rule = "─────────────────────────────────────────────────"

// Render writes the full audit report: findings that need attention,
// partially cleaned issues, aggregate statistics, and a closing
// recommendation.
func Render(w io.Writer, reports []correlate.IssueReport, stats correlate.Stats, opts Options) {
	needAttention := correlate.Filter(reports, correlate.FullyDeletedOpen)
	partial := correlate.Filter(reports, correlate.PartiallyDeleted)

	if len(needAttention) > 0 {
		fmt.Fprintln(w, paint(opts.Color, styles.WarningStyle,
			"⚠ Out-of-sync issues (all crash tests deleted but issue still open):"))
		fmt.Fprintln(w)
		for _, r := range needAttention {
			for _, ev := range r.Events {
				line := fmt.Sprintf("  • Issue #%d: %s deleted in %s (%s",
					r.IssueID, ev.Path, shortHash(ev.CommitHash), ev.CommitDate.Format("2006-01-02"))
				if ev.PRNumber != nil {
					line += fmt.Sprintf(", PR #%d", *ev.PRNumber)
				}
				line += ")"
				fmt.Fprintln(w, line)
			}
			fmt.Fprintln(w, "    "+paint(opts.Color, styles.PrimaryStyle, IssueURL(opts.RepoSlug, r.IssueID)))
			fmt.Fprintln(w)
		}
	}

	if len(partial) > 0 {
		fmt.Fprintln(w, paint(opts.Color, styles.InfoStyle,
			"◐ Partially cleaned issues (some crash tests remain):"))
		fmt.Fprintln(w)
		for _, r := range partial {
			fmt.Fprintf(w, "  • Issue #%d: %d deleted, %d remaining\n",
				r.IssueID, len(r.Events), r.RemainingCount)
		}
		fmt.Fprintln(w)
	}

	// Summary
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, paint(opts.Color, styles.Bold, "Summary:"))
	fmt.Fprintf(w, "  Total deleted tests: %d\n", stats.TotalFiles)
	fmt.Fprintf(w, "  Total open issues in %s: %d\n", opts.RepoSlug, opts.OpenIssueCount)
	if opts.SnapshotAge != "" {
		fmt.Fprintf(w, "  Issue snapshot age: %s (use --refresh-cache to update)\n", opts.SnapshotAge)
	}
	fmt.Fprintln(w)
	// Percentages are per deleted file, so each line shows its file count
	// alongside the issue count.
	fmt.Fprintf(w, "  ⚠ Issues still open: %d (%d file(s), %.1f%%)\n",
		stats.FullyDeletedOpenIssues, stats.FullyDeletedOpenFiles,
		stats.Percentage(stats.FullyDeletedOpenFiles))
	fmt.Fprintf(w, "  ✓ Issues properly closed: %d (%d file(s), %.1f%%)\n",
		stats.FullyDeletedClosedIssues, stats.FullyDeletedClosedFiles,
		stats.Percentage(stats.FullyDeletedClosedFiles))
	fmt.Fprintf(w, "  ◐ Issues partially cleaned: %d (%d file(s), %.1f%%)\n",
		stats.PartiallyDeletedIssues, stats.PartiallyDeletedFiles,
		stats.Percentage(stats.PartiallyDeletedFiles))
	fmt.Fprintln(w, rule)

	if len(needAttention) == 0 {
		fmt.Fprintln(w, "\n"+paint(opts.Color, styles.SuccessStyle,
			"✓ All deleted crash tests have properly closed issues!"))
		return
	}

	fmt.Fprintf(w, "\n%s\n", paint(opts.Color, styles.WarningStyle,
		fmt.Sprintf("⚠ Found %d out-of-sync issue(s) that need attention.", len(needAttention))))
	fmt.Fprintln(w, "\nThese issues should either:")
	fmt.Fprintln(w, "  1. Be reopened (if the crash test was removed by mistake)")
	fmt.Fprintln(w, "  2. Be closed (if the issue is actually fixed)")
}

// jsonReport is the machine-readable output shape.
type jsonReport struct {
	Repo           string      `json:"repo"`
	OpenIssueCount int         `json:"open_issue_count"`
	SnapshotAge    string      `json:"snapshot_age,omitempty"`
	Stats          jsonStats   `json:"stats"`
	NeedsAttention []jsonIssue `json:"needs_attention"`
	PartiallyClean []jsonIssue `json:"partially_cleaned"`
	ProperlyClosed []jsonIssue `json:"properly_closed"`
}

type jsonStats struct {
	TotalFiles    int `json:"total_deleted_files"`
	OpenIssues    int `json:"open_issues"`
	ClosedIssues  int `json:"closed_issues"`
	PartialIssues int `json:"partially_cleaned_issues"`
	OpenFiles     int `json:"open_files"`
	ClosedFiles   int `json:"closed_files"`
	PartialFiles  int `json:"partially_cleaned_files"`
}

type jsonIssue struct {
	correlate.IssueReport
	URL            string `json:"url"`
	Classification string `json:"classification"`
}

func toJSONIssues(reports []correlate.IssueReport, slug string) []jsonIssue {
	out := make([]jsonIssue, 0, len(reports))
	for _, r := range reports {
		out = append(out, jsonIssue{
			IssueReport:    r,
			URL:            IssueURL(slug, r.IssueID),
			Classification: r.Class.String(),
		})
	}
	return out
}

// RenderJSON writes the classification as indented JSON.
func RenderJSON(w io.Writer, reports []correlate.IssueReport, stats correlate.Stats, opts Options) error {
	out := jsonReport{
		Repo:           opts.RepoSlug,
		OpenIssueCount: opts.OpenIssueCount,
		SnapshotAge:    strings.TrimSpace(opts.SnapshotAge),
		Stats: jsonStats{
			TotalFiles:    stats.TotalFiles,
			OpenIssues:    stats.FullyDeletedOpenIssues,
			ClosedIssues:  stats.FullyDeletedClosedIssues,
			PartialIssues: stats.PartiallyDeletedIssues,
			OpenFiles:     stats.FullyDeletedOpenFiles,
			ClosedFiles:   stats.FullyDeletedClosedFiles,
			PartialFiles:  stats.PartiallyDeletedFiles,
		},
		NeedsAttention: toJSONIssues(correlate.Filter(reports, correlate.FullyDeletedOpen), opts.RepoSlug),
		PartiallyClean: toJSONIssues(correlate.Filter(reports, correlate.PartiallyDeleted), opts.RepoSlug),
		ProperlyClosed: toJSONIssues(correlate.Filter(reports, correlate.FullyDeletedClosed), opts.RepoSlug),
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
