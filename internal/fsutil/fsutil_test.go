package fsutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileScoped(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "status.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"ok":true}`), 0o600))

	data, err := ReadFileScoped(p)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	data, err = ReadFileScoped(empty)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReadFileScoped_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"dot", "."},
		{"separator", string(filepath.Separator)},
		{"missing file", filepath.Join(dir, "nope.json")},
		{"missing directory", filepath.Join(dir, "nodir", "status.json")},
		{"directory", dir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadFileScoped(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestReadFileScoped_MissingIsNotExist(t *testing.T) {
	_, err := ReadFileScoped(filepath.Join(t.TempDir(), "autolearn_status.json"))
	assert.True(t, os.IsNotExist(err), "got %v", err)
}

func TestReadFileLimit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "autolearn.md")
	require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("x", 100)), 0o600))

	data, err := ReadFileLimit(p, 10)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	data, err = ReadFileLimit(p, 1000)
	require.NoError(t, err)
	assert.Len(t, data, 100)

	data, err = ReadFileLimit(p, 0)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = ReadFileLimit(filepath.Join(filepath.Dir(p), "missing.md"), 10)
	assert.Error(t, err)
}

func TestWriteFileAtomic(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".opencode", "compound", "autolearn_status.json")

	require.NoError(t, WriteFileAtomic(p, []byte("first\n"), 0o644))
	require.NoError(t, WriteFileAtomic(p, []byte("second\n"), 0o644))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestWriteFileAtomic_ParentIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := WriteFileAtomic(filepath.Join(blocker, "status.json"), []byte("{}"), 0o644)
	assert.Error(t, err)
}
