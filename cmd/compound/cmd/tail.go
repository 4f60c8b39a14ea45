package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/observe"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show recent observations",
	Long: `Show the most recent observations from the active log.

With --follow the command keeps printing records as they are appended,
across rotations, until interrupted. --stats prints the log location, size,
record count and backups instead of records.`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

var (
	tailLines  int
	tailFollow bool
	tailStats  bool
)

func init() {
	rootCmd.AddCommand(tailCmd)

	tailCmd.Flags().IntVarP(&tailLines, "lines", "n", 20, "Number of records to show")
	tailCmd.Flags().BoolVarP(&tailFollow, "follow", "f", false, "Keep printing new records")
	tailCmd.Flags().BoolVar(&tailStats, "stats", false, "Print log statistics")
}

// openStore loads the configuration and opens the observation store
// without wiring the rest of the pipeline.
func openStore(ctx context.Context) (string, *observe.Store, error) {
	root, err := resolveRoot(ctx)
	if err != nil {
		return "", nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return "", nil, err
	}
	return root, newStore(root, cfg.Observations, logging.NewNop()), nil
}

func runTail(cmd *cobra.Command, _ []string) error {
	ctx, stop := runWithContext(cmd)
	defer stop()

	_, store, err := openStore(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if tailStats {
		return printStats(out, store)
	}
	for _, obs := range store.Tail(tailLines) {
		fmt.Fprintln(out, renderObservation(obs))
	}
	if !tailFollow {
		return nil
	}
	return followLog(ctx, store.Path(), out)
}

func printStats(out io.Writer, store *observe.Store) error {
	var size int64
	if info, err := os.Stat(store.Path()); err == nil {
		size = info.Size()
	}
	backups := store.Backups()

	fmt.Fprintln(out, renderTitle("Observation log"))
	fmt.Fprintln(out, renderField("path", store.Path()))
	fmt.Fprintln(out, renderField("size", fmt.Sprintf("%d bytes", size)))
	fmt.Fprintln(out, renderField("records", store.Count()))
	fmt.Fprintln(out, renderField("backups", len(backups)))
	for _, b := range backups {
		fmt.Fprintln(out, renderField("", filepath.Base(b)))
	}
	return nil
}

// logFollower prints records appended after a starting offset. A shrinking
// file means it was rotated and reading restarts from the top.
type logFollower struct {
	path    string
	offset  int64
	partial []byte
	out     io.Writer
}

func newLogFollower(path string, out io.Writer) *logFollower {
	f := &logFollower{path: path, out: out}
	if info, err := os.Stat(path); err == nil {
		f.offset = info.Size()
	}
	return f
}

// poll prints every complete record written since the last call.
func (f *logFollower) poll() error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		f.offset, f.partial = 0, nil
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < f.offset {
		f.offset, f.partial = 0, nil
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.offset += int64(len(data))

	data = append(f.partial, data...)
	cut := bytes.LastIndexByte(data, '\n')
	if cut < 0 {
		f.partial = data
		return nil
	}
	f.partial = append([]byte(nil), data[cut+1:]...)

	for _, line := range bytes.Split(data[:cut], []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var obs core.Observation
		if json.Unmarshal(line, &obs) != nil {
			continue
		}
		fmt.Fprintln(f.out, renderObservation(obs))
	}
	return nil
}

// followLog watches the log directory, which survives rotation, and prints
// new records until ctx is done.
func followLog(ctx context.Context, path string, out io.Writer) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	follower := newLogFollower(path, out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := follower.poll(); err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
}
