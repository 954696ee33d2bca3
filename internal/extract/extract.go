// Package extract derives tracker metadata from crash test file paths and
// commit messages. Crash test files are named after the issue that produced
// them (`<issue>.rs` or `<issue>-<slug>.rs`), and merge-bot commits carry
// the pull request number in their subject line.
package extract

import (
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultMergeMarker is the commit message prefix used by the merge bot.
// Only digits immediately following this marker identify the pull request;
// a bare "#123" anywhere else in the message is not a PR reference.
const DefaultMergeMarker = "Auto merge of #"

// IssueID extracts the issue number from a crash test file path.
//
//	tests/crashes/12345.rs     -> 12345
//	tests/crashes/12345-foo.rs -> 12345
//	tests/crashes/foo.rs       -> no match
func IssueID(path string) (uint64, bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if n, err := strconv.ParseUint(stem, 10, 64); err == nil {
		return n, true
	}

	// Filenames like "12345-ice-on-generic-args" carry the issue
	// number before the first hyphen.
	if i := strings.IndexByte(stem, '-'); i >= 0 {
		if n, err := strconv.ParseUint(stem[:i], 10, 64); err == nil {
			return n, true
		}
	}

	return 0, false
}

// PRNumber extracts the pull request number from a commit message.
// marker is the merge-bot prefix to search for; an empty marker falls
// back to DefaultMergeMarker.
func PRNumber(message, marker string) (uint64, bool) {
	if marker == "" {
		marker = DefaultMergeMarker
	}

	i := strings.Index(message, marker)
	if i < 0 {
		return 0, false
	}

	rest := message[i+len(marker):]
	j := 0
	for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
		j++
	}
	if j == 0 {
		return 0, false
	}

	n, err := strconv.ParseUint(rest[:j], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
