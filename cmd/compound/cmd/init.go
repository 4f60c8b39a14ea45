package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/compound/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration",
	Long: `Write the default configuration to .opencode/compound/config.yaml in the
repository root, or to ~/.config/compound/config.yaml with --user.
An existing file is left untouched.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var initUser bool

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initUser, "user", false, "Write the per-user config instead")
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	var path string
	if initUser {
		p, err := config.UserConfigPath()
		if err != nil {
			return err
		}
		path = p
	} else {
		root, err := resolveRoot(ctx)
		if err != nil {
			return err
		}
		path = filepath.Join(root, filepath.FromSlash(config.ProjectConfigNames[1]))
	}

	created, err := config.EnsureConfigFile(path)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s already exists\n", path)
	}
	return nil
}
