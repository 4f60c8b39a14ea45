package autolearn

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/hugo-lorenzo-mato/compound/internal/fsutil"
)

// Checkpoint is the part of the trigger state that survives a process. The
// in-flight flag is deliberately absent: it only guards one process.
type Checkpoint struct {
	LastAttempt  time.Time `json:"last_attempt,omitempty"`
	Observations int64     `json:"observations"`
}

// LoadCheckpoint reads a checkpoint. A missing file is an empty checkpoint.
func LoadCheckpoint(path string) (Checkpoint, error) {
	data, err := fsutil.ReadFileScoped(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Checkpoint{}, nil
	}
	if err != nil {
		return Checkpoint{}, err
	}
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return Checkpoint{}, fmt.Errorf("parsing checkpoint: %w", err)
	}
	return c, nil
}

// SaveCheckpoint replaces the checkpoint file atomically.
func SaveCheckpoint(path string, c Checkpoint) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}
