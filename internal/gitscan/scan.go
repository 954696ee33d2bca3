// Package gitscan walks repository history for deleted crash test files.
//
// The scanner follows only the first parent of each merge commit, so it sees
// the mainline as a linear chain of merges and ignores side-branch detail.
// History is emitted newest-first, which is what makes the early stop at the
// lower date bound valid: once a commit older than the bound appears, every
// remaining commit is older still (up to clock skew, which the original
// revwalk-based approach tolerated identically).
package gitscan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"crashaudit/internal/extract"
	"crashaudit/internal/log"
)

// DeletionEvent records a single crash test file removed between a commit
// and its first parent. Events are immutable once emitted.
type DeletionEvent struct {
	Path       string    `json:"path"`
	IssueID    uint64    `json:"issue_id"`
	CommitHash string    `json:"commit"`
	CommitDate time.Time `json:"commit_date"` // UTC midnight of the commit's calendar day
	PRNumber   *uint64   `json:"pr_number,omitempty"`
}

// Scanner walks first-parent history of a repository and emits one
// DeletionEvent per deleted file under Prefix whose name carries an
// issue number.
type Scanner struct {
	RepoPath string
	Prefix   string    // pathspec, e.g. "tests/crashes/"
	Marker   string    // merge-bot commit marker for PR extraction
	From     time.Time // inclusive lower bound (UTC date), zero = unbounded
	To       time.Time // inclusive upper bound (UTC date), zero = unbounded
}

const commitStart = "COMMIT_START"

// header line offsets within a commit record
const (
	lineHash = iota
	lineDate
	lineParents
	lineSubject
	headerLines
)

// Scan traverses history newest-first and returns deletion events in
// traversal order. A commit dated before From stops the walk entirely;
// a commit dated after To is skipped but the walk continues. Malformed
// commit timestamps abort the scan.
func (s *Scanner) Scan(ctx context.Context) ([]DeletionEvent, error) {
	if err := ensureRepo(ctx, s.RepoPath); err != nil {
		return nil, err
	}

	l := log.FromContext(ctx)

	// The pathspec scopes both the diff and the commits git emits; commits
	// that never delete anything under the prefix are filtered out by
	// --diff-filter=D before we see them.
	args := []string{
		"log",
		"--first-parent",
		"--diff-filter=D",
		"--name-status",
		"--format=" + commitStart + "%n%H%n%cI%n%P%n%s",
		"HEAD",
		"--", s.Prefix,
	}

	// Separate cancel so the early date-bound stop can kill the pipe
	// without tearing down the caller's context.
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := l.Command(s.RepoPath, "git", args...)
	start := time.Now()

	c := exec.CommandContext(scanCtx, "git", args...)
	c.Dir = s.RepoPath
	var stderr bytes.Buffer
	c.Stderr = &stderr

	stdout, err := c.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := c.Start(); err != nil {
		return nil, fmt.Errorf("git log: %w", err)
	}

	events, stopped, parseErr := s.parse(l, stdout)

	if stopped || parseErr != nil {
		// Lower bound reached or scan aborted: no further history is
		// needed, kill the pipe instead of reading it to the end.
		cancel()
		_, _ = io.Copy(io.Discard, stdout)
	}

	waitErr := c.Wait()
	done(time.Since(start))

	if parseErr != nil {
		return nil, parseErr
	}
	if waitErr != nil && !stopped {
		if errMsg := strings.TrimSpace(stderr.String()); errMsg != "" {
			return nil, fmt.Errorf("git log: %s", errMsg)
		}
		return nil, fmt.Errorf("git log: %w", waitErr)
	}

	return events, nil
}

// parse consumes the sentinel-delimited git log stream. It returns the
// collected events, whether traversal stopped at the lower date bound,
// and any fatal parse error.
func (s *Scanner) parse(l *log.Logger, r io.Reader) ([]DeletionEvent, bool, error) {
	var (
		events  []DeletionEvent
		scanned int

		inCommit bool
		lineIdx  int
		hash     string
		day      time.Time
		subject  string
		skip     bool
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == commitStart:
			inCommit = true
			lineIdx = 0
			skip = false

		case inCommit && lineIdx < headerLines:
			switch lineIdx {
			case lineHash:
				hash = line
			case lineDate:
				t, err := time.Parse(time.RFC3339, line)
				if err != nil {
					// A corrupt timestamp would silently break the date
					// range filter, so it fails the whole scan.
					return nil, false, fmt.Errorf("commit %s: invalid timestamp %q: %w", hash, line, err)
				}
				y, m, d := t.UTC().Date()
				day = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

				if !s.From.IsZero() && day.Before(s.From) {
					return events, true, nil
				}
				if !s.To.IsZero() && day.After(s.To) {
					skip = true
				}
			case lineParents:
				if line == "" {
					// Initial commit: nothing to diff against.
					skip = true
				}
			case lineSubject:
				subject = line

				scanned++
				if scanned%1000 == 0 {
					l.Printf("  scanned %d commits...\n", scanned)
				}
			}
			lineIdx++

		case inCommit && !skip && strings.HasPrefix(line, "D\t"):
			path := line[len("D\t"):]
			issue, ok := extract.IssueID(path)
			if !ok {
				// Unparseable filenames carry no issue correlation.
				continue
			}

			ev := DeletionEvent{
				Path:       path,
				IssueID:    issue,
				CommitHash: hash,
				CommitDate: day,
			}
			if pr, ok := extract.PRNumber(subject, s.Marker); ok {
				ev.PRNumber = &pr
			}
			events = append(events, ev)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, false, fmt.Errorf("reading git log output: %w", err)
	}

	l.Debug("scan complete", "commits", scanned, "deletions", len(events))

	return events, false, nil
}
