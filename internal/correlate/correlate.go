// Package correlate classifies deleted crash tests against the set of
// currently open tracker issues.
package correlate

import (
	"sort"

	"crashaudit/internal/extract"
	"crashaudit/internal/gitscan"
)

// Classification describes the state of an issue whose crash tests were
// deleted at some point in history.
type Classification int

const (
	// FullyDeletedOpen: every test for the issue is gone, but the issue
	// is still open. These are the audit findings that need attention.
	FullyDeletedOpen Classification = iota

	// FullyDeletedClosed: every test for the issue is gone and the issue
	// is closed. The expected lifecycle.
	FullyDeletedClosed

	// PartiallyDeleted: some tests for the issue were deleted but at
	// least one still exists at HEAD. Open or closed does not matter;
	// coverage remains.
	PartiallyDeleted
)

func (c Classification) String() string {
	switch c {
	case FullyDeletedOpen:
		return "fully deleted, still open"
	case FullyDeletedClosed:
		return "fully deleted, closed"
	case PartiallyDeleted:
		return "partially deleted"
	default:
		return "unknown"
	}
}

// IssueReport aggregates every deletion event for one issue.
type IssueReport struct {
	IssueID        uint64                  `json:"issue_id"`
	Events         []gitscan.DeletionEvent `json:"events"`
	RemainingCount int                     `json:"remaining_count"`
	Class          Classification          `json:"-"`
}

// Stats counts files and issues per classification bucket.
type Stats struct {
	TotalFiles int

	FullyDeletedOpenFiles   int
	FullyDeletedClosedFiles int
	PartiallyDeletedFiles   int

	FullyDeletedOpenIssues   int
	FullyDeletedClosedIssues int
	PartiallyDeletedIssues   int
}

// Percentage returns n as a percentage of the total deleted file count.
func (s Stats) Percentage(n int) float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(n) * 100 / float64(s.TotalFiles)
}

// Classify groups deletion events by issue and assigns each issue exactly
// one classification. currentFiles is the list of test paths present at
// HEAD; a deleted-then-recreated test counts as remaining. Reports are
// returned sorted by issue number, each preserving the scan order of its
// events.
func Classify(events []gitscan.DeletionEvent, openIssues map[uint64]struct{}, currentFiles []string) ([]IssueReport, Stats) {
	// Count surviving tests per issue.
	remaining := make(map[uint64]int)
	for _, path := range currentFiles {
		if id, ok := extract.IssueID(path); ok {
			remaining[id]++
		}
	}

	byIssue := make(map[uint64][]gitscan.DeletionEvent)
	order := make([]uint64, 0)
	for _, ev := range events {
		if _, seen := byIssue[ev.IssueID]; !seen {
			order = append(order, ev.IssueID)
		}
		byIssue[ev.IssueID] = append(byIssue[ev.IssueID], ev)
	}

	reports := make([]IssueReport, 0, len(order))
	var stats Stats
	stats.TotalFiles = len(events)

	for _, id := range order {
		evs := byIssue[id]
		r := IssueReport{
			IssueID:        id,
			Events:         evs,
			RemainingCount: remaining[id],
		}

		// Surviving coverage trumps tracker state.
		switch {
		case r.RemainingCount > 0:
			r.Class = PartiallyDeleted
			stats.PartiallyDeletedFiles += len(evs)
			stats.PartiallyDeletedIssues++
		default:
			if _, open := openIssues[id]; open {
				r.Class = FullyDeletedOpen
				stats.FullyDeletedOpenFiles += len(evs)
				stats.FullyDeletedOpenIssues++
			} else {
				r.Class = FullyDeletedClosed
				stats.FullyDeletedClosedFiles += len(evs)
				stats.FullyDeletedClosedIssues++
			}
		}

		reports = append(reports, r)
	}

	sort.Slice(reports, func(i, j int) bool { return reports[i].IssueID < reports[j].IssueID })

	return reports, stats
}

// Filter returns the reports with the given classification, preserving
// order.
func Filter(reports []IssueReport, class Classification) []IssueReport {
	out := make([]IssueReport, 0, len(reports))
	for _, r := range reports {
		if r.Class == class {
			out = append(out, r)
		}
	}
	return out
}
