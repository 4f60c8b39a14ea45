package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/compound/internal/adapters/git"
	"github.com/hugo-lorenzo-mato/compound/internal/config"
)

var (
	cfgFile   string
	rootDir   string
	logLevel  string
	logFormat string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "compound",
	Short: "Observation pipeline for the opencode host",
	Long: `compound records redacted observations of what happens in a coding
session, nudges the agent to keep its notes current and, when a session goes
idle, asks the model to propose durable learnings for the loom CLI to apply.

Hosts either talk to 'compound serve' over HTTP or spawn 'compound hook'
once per callback.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .compound.yaml or .opencode/compound/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "",
		"repository root (default: top level of the current git work tree)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format override (auto, text, json)")
}

// resolveRoot returns the --root flag or the enclosing work tree.
func resolveRoot(ctx context.Context) (string, error) {
	if rootDir != "" {
		return rootDir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return git.RepoRoot(ctx, cwd), nil
}

// loadConfig loads and validates the configuration for root. Flag overrides
// are applied through a fresh viper instance so repeated invocations in one
// process never share state.
func loadConfig(root string) (*config.Config, error) {
	v := viper.New()
	loader := config.NewLoaderWithViper(v).WithRoot(root)
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
