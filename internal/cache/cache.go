package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// SnapshotFile is the name of the persisted open-issue snapshot.
const SnapshotFile = "open_issues.json"

// Snapshot is a point-in-time capture of all currently open issue numbers.
// Immutable once constructed; a refresh writes a new snapshot, it never
// merges into an old one.
type Snapshot struct {
	FetchedAt    time.Time `json:"timestamp"`
	IssueCount   int       `json:"issue_count"`
	IssueNumbers []uint64  `json:"issue_numbers"`
}

// Set returns the issue numbers as a lookup set.
func (s *Snapshot) Set() map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(s.IssueNumbers))
	for _, n := range s.IssueNumbers {
		set[n] = struct{}{}
	}
	return set
}

// Age returns how long ago the snapshot was captured.
func (s *Snapshot) Age() time.Duration {
	d := time.Since(s.FetchedAt)
	if d < 0 {
		return 0
	}
	return d
}

// DefaultDir returns the default snapshot cache directory.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, "crashaudit"), nil
}

// Path returns the snapshot file path for a cache directory.
func Path(dir string) string {
	return filepath.Join(dir, SnapshotFile)
}

// LockPath returns the lock file path for a cache directory.
func LockPath(dir string) string {
	return filepath.Join(dir, SnapshotFile+".lock")
}

// Exists reports whether a snapshot has been persisted in dir.
func Exists(dir string) bool {
	_, err := os.Stat(Path(dir))
	return err == nil
}

// Load reads the persisted snapshot from dir.
func Load(dir string) (*Snapshot, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", Path(dir), err)
	}

	return &snap, nil
}

// Save persists the open-issue set to dir atomically, holding the snapshot
// lock for the duration of the write. Issue numbers are stored sorted and
// deduplicated. Returns the snapshot that was written.
func Save(dir string, issues map[uint64]struct{}) (*Snapshot, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	lock := NewFileLock(LockPath(dir))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("acquire snapshot lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	numbers := make([]uint64, 0, len(issues))
	for n := range issues {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	snap := &Snapshot{
		FetchedAt:    time.Now().UTC(),
		IssueCount:   len(numbers),
		IssueNumbers: numbers,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}

	path := Path(dir)
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return nil, fmt.Errorf("write snapshot: %w", err)
	}

	return snap, nil
}

// Clear removes the persisted snapshot. Removing a snapshot that does not
// exist is not an error.
func Clear(dir string) error {
	err := os.Remove(Path(dir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// FormatAge renders a duration in coarse human-readable form, for
// reporting snapshot staleness. Staleness is informational only; the
// snapshot is never auto-expired.
func FormatAge(d time.Duration) string {
	secs := int64(d.Seconds())

	plural := func(n int64, unit string) string {
		if n == 1 {
			return fmt.Sprintf("%d %s", n, unit)
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	switch {
	case secs < 60:
		return plural(secs, "second")
	case secs < 3600:
		return plural(secs/60, "minute")
	case secs < 86400:
		return plural(secs/3600, "hour")
	default:
		return plural(secs/86400, "day")
	}
}
