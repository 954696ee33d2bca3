// Package config handles loading and validation of crashaudit configuration.
//
// Configuration is read from ~/.config/crashaudit/config.toml. A missing
// file is not an error; the built-in defaults audit tests/crashes/ in a
// checkout against the rust-lang/rust issue tracker.
//
// # Key Settings
//
//   - owner, repo: Tracker repository (default: rust-lang/rust)
//   - test_prefix: Monitored path prefix in the audited repo (default: "tests/crashes/")
//   - merge_marker: Merge-bot subject marker the PR number is read from
//     (default: "Auto merge of #")
//   - cache_dir: Snapshot cache location (must be absolute or ~/...)
//
// # Path Validation
//
// cache_dir must be absolute or start with ~ (no relative paths like "."
// or "..") to avoid confusion about the working directory.
package config
