package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"crashaudit/internal/cache"
	"crashaudit/internal/log"
	"crashaudit/internal/output"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the open-issue snapshot cache",
		Long: `Manage the cached snapshot of open tracker issues.

The snapshot is written on the first audit run and reused until
explicitly refreshed. Its age is reported but never enforced.`,
	}

	cmd.AddCommand(newCacheStatusCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

// cacheDir resolves the configured or default cache directory.
func cacheDir() (string, error) {
	if cfg.CacheDir != "" {
		return cfg.CacheDir, nil
	}
	return cache.DefaultDir()
}

func newCacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show snapshot age, size, and location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			dir, err := cacheDir()
			if err != nil {
				return err
			}

			if !cache.Exists(dir) {
				out.Printf("No snapshot cached at %s\n", cache.Path(dir))
				out.Println("The next audit run will fetch open issues from the tracker.")
				return nil
			}

			snap, err := cache.Load(dir)
			if err != nil {
				return fmt.Errorf("load issue snapshot: %w", err)
			}

			out.Printf("Location: %s\n", cache.Path(dir))
			out.Printf("Open issues: %d\n", snap.IssueCount)
			out.Printf("Age: %s (fetched %s)\n",
				cache.FormatAge(snap.Age()), snap.FetchedAt.Format("2006-01-02 15:04 MST"))
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.FromContext(cmd.Context())

			dir, err := cacheDir()
			if err != nil {
				return err
			}

			if err := cache.Clear(dir); err != nil {
				return err
			}
			l.Printf("Cleared snapshot cache at %s\n", cache.Path(dir))
			return nil
		},
	}
}
