package observe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// Tail returns up to maxLines of the most recent records found in the last
// TailMaxBytes of the active file.
func (s *Store) Tail(maxLines int) []core.Observation {
	return s.TailWithin(s.opts.TailMaxBytes, maxLines)
}

// TailWithin reads only the last maxBytes of the active file and returns the
// last maxLines records that parse, in file order. Malformed or partial lines
// are skipped. A missing file or any I/O failure yields an empty result.
func (s *Store) TailWithin(maxBytes int64, maxLines int) []core.Observation {
	if maxLines <= 0 || maxBytes <= 0 {
		return nil
	}

	s.mu.Lock()
	data, err := readTail(s.opts.Path, maxBytes)
	s.mu.Unlock()
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Debug("observation tail read failed", "error", err)
		}
		return nil
	}

	records := parseLines(data)
	if len(records) > maxLines {
		records = records[len(records)-maxLines:]
	}
	return records
}

func readTail(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	start := info.Size() - maxBytes
	if start < 0 {
		start = 0
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	return io.ReadAll(f)
}

func parseLines(data []byte) []core.Observation {
	var records []core.Observation
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var obs core.Observation
		if err := json.Unmarshal(line, &obs); err != nil {
			continue
		}
		records = append(records, obs)
	}
	return records
}

// ReadFile parses every well-formed record of a log or backup file.
func ReadFile(path string) ([]core.Observation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseLines(data), nil
}

// Count returns the number of well-formed records in the active file.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.opts.Path)
	if err != nil {
		return 0
	}
	defer f.Close()

	n := 0
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 && json.Valid(line) {
			n++
		}
		if err != nil {
			return n
		}
	}
}
