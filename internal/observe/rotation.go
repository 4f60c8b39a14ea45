package observe

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const backupExt = ".bak"

// rotate renames the active file to <active>.<unix-millis>.bak and prunes old
// backups. Caller holds s.mu.
func (s *Store) rotate() error {
	millis := s.now().UnixMilli()
	if millis <= s.lastBackup {
		millis = s.lastBackup + 1
	}
	backup := backupName(s.opts.Path, millis)
	for {
		if _, err := os.Lstat(backup); os.IsNotExist(err) {
			break
		}
		millis++
		backup = backupName(s.opts.Path, millis)
	}

	if err := os.Rename(s.opts.Path, backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("rotating observation log: %w", err)
	}
	s.lastBackup = millis
	s.logger.Debug("observation log rotated", "backup", filepath.Base(backup))

	s.prune()
	return nil
}

func backupName(active string, millis int64) string {
	return active + "." + strconv.FormatInt(millis, 10) + backupExt
}

type backupFile struct {
	path    string
	modTime time.Time
}

// listBackups returns the backups of the active file, oldest first by
// modification time.
func (s *Store) listBackups() ([]backupFile, error) {
	dir := filepath.Dir(s.opts.Path)
	prefix := filepath.Base(s.opts.Path) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []backupFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, backupExt) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, nil
}

// prune removes the oldest backups beyond MaxBackups. Failures are logged
// and otherwise ignored.
func (s *Store) prune() {
	if s.opts.MaxBackups <= 0 {
		return
	}
	files, err := s.listBackups()
	if err != nil {
		s.logger.Warn("listing observation backups failed", "error", err)
		return
	}
	for len(files) > s.opts.MaxBackups {
		if err := os.Remove(files[0].path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("removing observation backup failed", "path", files[0].path, "error", err)
		}
		files = files[1:]
	}
}

// Backups returns the backup file paths, oldest first.
func (s *Store) Backups() []string {
	files, err := s.listBackups()
	if err != nil {
		return nil
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths
}
