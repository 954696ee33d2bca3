// Package cmd provides helpers for executing shell commands with proper error handling.
//
// This package wraps [os/exec.Cmd] to capture stderr and include it in error
// messages, making command failures more informative for users.
//
// # Usage
//
//	if err := cmd.RunContext(ctx, repoPath, "git", "rev-parse", "--git-dir"); err != nil {
//	    // err contains stderr output if available
//	    return fmt.Errorf("git failed: %w", err)
//	}
//
//	// For commands that return output:
//	output, err := cmd.OutputContext(ctx, repoPath, "git", "ls-tree", "-r", "HEAD")
//	if err != nil {
//	    // err contains stderr output
//	}
//
// # Design Notes
//
// crashaudit shells out to the git CLI rather than using Go libraries.
// This approach is simpler, more reliable, and ensures compatibility with
// user configurations (alternate object stores, credential helpers, etc.).
package cmd
