package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/compound/internal/autolearn"
	"github.com/hugo-lorenzo-mato/compound/internal/hooks"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show scaffolding, observation and autolearn state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
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
	store := newStore(root, cfg.Observations, logging.NewNop())
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, renderTitle("Repository"))
	fmt.Fprintln(out, renderField("root", root))
	missing := hooks.CheckInstalled(root)
	if len(missing) == 0 {
		fmt.Fprintln(out, renderField("scaffolding", okStyle.Render("installed")))
	} else {
		fmt.Fprintln(out, renderField("scaffolding", failStyle.Render("missing "+strings.Join(missing, ", "))))
		fmt.Fprintln(out, renderField("", hooks.InstallHint))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTitle("Observations"))
	fmt.Fprintln(out, renderField("logging", onOff(cfg.Observations.Enabled)))
	fmt.Fprintln(out, renderField("path", store.Path()))
	fmt.Fprintln(out, renderField("records", store.Count()))
	fmt.Fprintln(out, renderField("backups", len(store.Backups())))

	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTitle("Autolearn"))
	fmt.Fprintln(out, renderField("enabled", onOff(cfg.Auto.Enabled)))
	checkpoint, err := autolearn.LoadCheckpoint(filepath.Join(root, filepath.FromSlash(autolearn.CheckpointRelPath)))
	if err == nil {
		fmt.Fprintln(out, renderField("pending", checkpoint.Observations))
		if !checkpoint.LastAttempt.IsZero() {
			fmt.Fprintln(out, renderField("last attempt", checkpoint.LastAttempt.Local().Format(time.RFC3339)))
		}
	}
	printAutolearnStatus(out, inRoot(root, cfg.Auto.StatusPath))
	return nil
}

func printAutolearnStatus(out io.Writer, path string) {
	st, err := autolearn.ReadStatus(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintln(out, renderField("last result", dimStyle.Render("none yet")))
		return
	case err != nil:
		fmt.Fprintln(out, renderField("last result", failStyle.Render(err.Error())))
		return
	}

	result := okStyle.Render("ok")
	if !st.OK {
		result = failStyle.Render("failed")
	}
	fmt.Fprintln(out, renderField("last result", result+" "+dimStyle.Render(st.TS.Local().Format(time.RFC3339))))
	if st.Applied != nil {
		fmt.Fprintln(out, renderField("applied", *st.Applied))
	}
	if st.Reason != "" {
		fmt.Fprintln(out, renderField("reason", st.Reason))
	}
	if st.Error != "" {
		fmt.Fprintln(out, renderField("error", st.Error))
	}
	if st.ExitCode != nil {
		fmt.Fprintln(out, renderField("exit code", *st.ExitCode))
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
