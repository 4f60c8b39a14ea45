// Package observe persists redacted observations as an append-only JSON-lines
// log with size-based rotation and bounded tail reads.
package observe

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
)

// DefaultRelPath is the active log location relative to the repository root.
const DefaultRelPath = ".opencode/memory/observations.jsonl"

const (
	defaultMaxBytes     int64 = 32 * 1024 * 1024
	defaultMaxBackups         = 5
	defaultTailMaxBytes int64 = 512 * 1024
)

// Options configures a Store.
type Options struct {
	Path         string
	MaxBytes     int64
	MaxBackups   int
	TailMaxBytes int64
}

// DefaultOptions returns the production limits for the log under root.
func DefaultOptions(root string) Options {
	return Options{
		Path:         filepath.Join(root, DefaultRelPath),
		MaxBytes:     defaultMaxBytes,
		MaxBackups:   defaultMaxBackups,
		TailMaxBytes: defaultTailMaxBytes,
	}
}

// Store is the single logical writer of the observation log. Appends from one
// process are serialized; other processes appending to the same file are not
// coordinated with.
type Store struct {
	opts   Options
	logger *logging.Logger

	mu         sync.Mutex
	now        func() time.Time
	lastBackup int64

	hooksMu sync.RWMutex
	hooks   []func(core.Observation)
}

// NewStore creates a store. Non-positive sizes fall back to the defaults;
// MaxBackups <= 0 keeps every backup.
func NewStore(opts Options, logger *logging.Logger) *Store {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.TailMaxBytes <= 0 {
		opts.TailMaxBytes = defaultTailMaxBytes
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Path returns the active log file.
func (s *Store) Path() string {
	return s.opts.Path
}

// Options returns the effective options.
func (s *Store) Options() Options {
	return s.opts
}

// OnAppend registers fn to run after every successful append.
func (s *Store) OnAppend(fn func(core.Observation)) {
	if fn == nil {
		return
	}
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, fn)
	s.hooksMu.Unlock()
}

// NewObservation returns a record of the given type stamped with a fresh id
// and the current UTC time.
func NewObservation(typ, sessionID string) core.Observation {
	return core.Observation{
		ID:        uuid.NewString(),
		TS:        time.Now().UTC(),
		Type:      typ,
		SessionID: core.StringPtr(sessionID),
	}
}

// Append writes obs as one line, rotating the active file first when it has
// grown past MaxBytes. Missing id and timestamp are filled in.
func (s *Store) Append(obs core.Observation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	if obs.TS.IsZero() {
		obs.TS = s.now().UTC()
	}

	line, err := obs.MarshalLine()
	if err != nil {
		return fmt.Errorf("encoding observation: %w", err)
	}
	line = append(line, '\n')

	if err := s.write(line); err != nil {
		return err
	}

	s.hooksMu.RLock()
	hooks := append([]func(core.Observation){}, s.hooks...)
	s.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(obs)
	}
	return nil
}

func (s *Store) write(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.opts.Path), 0o755); err != nil {
		return fmt.Errorf("creating observation directory: %w", err)
	}

	if info, err := os.Stat(s.opts.Path); err == nil && info.Size() > s.opts.MaxBytes {
		if err := s.rotate(); err != nil {
			// Keep appending to the oversized file rather than dropping records.
			s.logger.Warn("observation log rotation failed", "path", s.opts.Path, "error", err)
		}
	}

	f, err := os.OpenFile(s.opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening observation log: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("appending observation: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing observation log: %w", err)
	}
	return nil
}
