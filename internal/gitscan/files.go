package gitscan

import (
	"context"
	"fmt"
	"strings"
)

// CurrentFiles lists the files currently present under prefix in the tip
// tree. Used to detect issues whose crash tests were only partially
// cleaned up. A read failure is fatal to the audit.
func CurrentFiles(ctx context.Context, repoPath, prefix string) ([]string, error) {
	out, err := outputGit(ctx, repoPath, "ls-tree", "-r", "--name-only", "HEAD", "--", prefix)
	if err != nil {
		return nil, fmt.Errorf("list files under %s: %w", prefix, err)
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
