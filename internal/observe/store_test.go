package observe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/testutil"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Path == "" {
		opts.Path = filepath.Join(testutil.TempDir(t), "nested", "memory", "observations.jsonl")
	}
	return NewStore(opts, nil)
}

func record(i int) core.Observation {
	obs := NewObservation("tool.execute.after", "ses_1")
	obs.Tool = "read"
	obs.Summary = fmt.Sprintf("record-%03d", i)
	obs.TS = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Second)
	return obs
}

func TestStore_AppendCreatesDirectoriesAndLines(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	require.NoError(t, s.Append(core.Observation{Type: "session.idle"}))
	require.NoError(t, s.Append(record(1)))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Contains(t, first, "sessionID")
	assert.Nil(t, first["sessionID"])
	assert.NotEmpty(t, first["id"])
	assert.NotEmpty(t, first["ts"])
	assert.NotContains(t, first, "tool")
}

func TestStore_OnAppendHooks(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	var calls atomic.Int32
	var lastType atomic.Value
	s.OnAppend(func(o core.Observation) {
		calls.Add(1)
		lastType.Store(o.Type)
	})
	s.OnAppend(nil)

	require.NoError(t, s.Append(record(1)))
	require.NoError(t, s.Append(core.Observation{Type: "session.idle"}))

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "session.idle", lastType.Load())
}

func TestStore_RotationConservesRecords(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{MaxBytes: 400, MaxBackups: 100})

	const n = 40
	for i := 0; i < n; i++ {
		require.NoError(t, s.Append(record(i)))
	}

	backups := s.Backups()
	require.NotEmpty(t, backups)

	namePattern := regexp.MustCompile(`^observations\.jsonl\.\d+\.bak$`)
	seen := map[string]bool{}
	total := 0
	for _, b := range backups {
		assert.Regexp(t, namePattern, filepath.Base(b))
		recs, err := ReadFile(b)
		require.NoError(t, err)
		total += len(recs)
		for _, r := range recs {
			seen[r.Summary] = true
		}
	}
	active, err := ReadFile(s.Path())
	require.NoError(t, err)
	total += len(active)
	for _, r := range active {
		seen[r.Summary] = true
	}

	assert.Equal(t, n, total)
	assert.Len(t, seen, n)
}

func TestStore_PrunesOldestBackups(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{MaxBytes: 300, MaxBackups: 2})

	const n = 30
	for i := 0; i < n; i++ {
		require.NoError(t, s.Append(record(i)))
	}

	assert.Len(t, s.Backups(), 2)

	last := s.Tail(1)
	require.Len(t, last, 1)
	assert.Equal(t, fmt.Sprintf("record-%03d", n-1), last[0].Summary)

	// The surviving backups hold the newest rotated records.
	var kept []string
	for _, b := range s.Backups() {
		recs, err := ReadFile(b)
		require.NoError(t, err)
		for _, r := range recs {
			kept = append(kept, r.Summary)
		}
	}
	require.NotEmpty(t, kept)
	assert.NotContains(t, kept, "record-000")
}

func TestStore_TailSkipsMalformedLines(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	require.NoError(t, s.Append(record(1)))
	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json at all\n{\"id\":\"partial\",\"ts\":\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, s.Append(record(2)))

	got := s.Tail(10)
	require.Len(t, got, 2)
	assert.Equal(t, "record-001", got[0].Summary)
	assert.Equal(t, "record-002", got[1].Summary)
	assert.Equal(t, 2, s.Count())
}

func TestStore_TailKeepsLastLinesInOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Append(record(i)))
	}

	got := s.Tail(3)
	require.Len(t, got, 3)
	assert.Equal(t, "record-007", got[0].Summary)
	assert.Equal(t, "record-009", got[2].Summary)
	assert.Empty(t, s.Tail(0))
}

func TestStore_TailWithinDropsCutFirstLine(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(record(i)))
	}
	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	lineLen := info.Size() / 5

	// Slightly more than two lines: the first visible line is partial.
	got := s.TailWithin(2*lineLen+10, 10)
	require.Len(t, got, 2)
	assert.Equal(t, "record-003", got[0].Summary)
	assert.Equal(t, "record-004", got[1].Summary)
}

func TestStore_TailMissingFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	assert.Empty(t, s.Tail(10))
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.Backups())
}

func TestStore_ConcurrentAppends(t *testing.T) {
	t.Parallel()
	s := newTestStore(t, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, s.Append(record(i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Count())
	assert.Len(t, s.Tail(100), 50)
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()
	opts := DefaultOptions("/repo")

	assert.Equal(t, filepath.Join("/repo", ".opencode", "memory", "observations.jsonl"), opts.Path)
	assert.Equal(t, int64(32*1024*1024), opts.MaxBytes)
	assert.Equal(t, 5, opts.MaxBackups)
	assert.Equal(t, int64(512*1024), opts.TailMaxBytes)
}
