package main

import (
	"github.com/spf13/cobra"

	"crashaudit/internal/config"
	"crashaudit/internal/log"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default config file",
		Long: `Create a commented default config file at ~/.config/crashaudit/config.toml.

The defaults audit tests/crashes/ against rust-lang/rust; edit the file
to point the audit at a different tracker or test directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.FromContext(cmd.Context())

			path, err := config.Init(force)
			if err != nil {
				return err
			}
			l.Printf("Created config file: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")

	return cmd
}
