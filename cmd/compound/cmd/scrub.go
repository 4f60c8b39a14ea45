package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// errLeak is returned by scrub --check when the input holds a secret.
var errLeak = errors.New("input contains secret-like values")

var scrubCmd = &cobra.Command{
	Use:   "scrub",
	Short: "Redact a JSON document read from stdin",
	Long: `Redact a JSON document read from stdin with the configured scrubber
and print the result.

With --check nothing is printed; the command fails when the input contains
a value the scrubber would redact.`,
	Args: cobra.NoArgs,
	RunE: runScrub,
}

var scrubCheck bool

var signatureCmd = &cobra.Command{
	Use:   "signature <command...>",
	Short: "Print the redacted signature of a shell command",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSignature,
}

func init() {
	rootCmd.AddCommand(scrubCmd)
	rootCmd.AddCommand(signatureCmd)

	scrubCmd.Flags().BoolVar(&scrubCheck, "check", false, "Fail if the input contains secrets")
}

func runScrub(cmd *cobra.Command, _ []string) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	root, err := resolveRoot(ctx)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	scrubber, err := newScrubber(cfg.Observations)
	if err != nil {
		return err
	}

	input, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxHookInput))
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if scrubCheck {
		if scrubber.Leaks(string(input)) {
			return errLeak
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parsing stdin: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(scrubber.Value(doc))
}

func runSignature(cmd *cobra.Command, args []string) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	root, err := resolveRoot(ctx)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	scrubber, err := newScrubber(cfg.Observations)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), scrubber.Signature(strings.Join(args, " ")))
	return nil
}
