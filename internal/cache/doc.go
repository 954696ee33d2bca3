// Package cache persists the open-issue snapshot between audit runs.
//
// Fetching every open issue from the tracker takes hundreds of paginated
// API calls for a large repository, so the result is cached on disk and
// reused until the user explicitly refreshes it.
//
// # Snapshot Structure
//
// The snapshot is a single JSON file in the cache directory:
//
//	{
//	  "timestamp": "2026-08-30T10:11:12Z",
//	  "issue_count": 2,
//	  "issue_numbers": [100, 31337]
//	}
//
// Issue numbers are sorted and deduplicated on save. A snapshot is
// immutable: a refresh replaces the file, it never merges.
//
// # Staleness
//
// Snapshot age is reported to the user but never enforced. There is no
// auto-expiry; only an explicit refresh replaces a snapshot.
//
// # Concurrency
//
// [Save] holds a flock-based file lock for the write and renames a temp
// file into place, so concurrent audit runs cannot corrupt the snapshot.
package cache
