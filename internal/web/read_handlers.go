package web

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/fsutil"
)

const (
	defaultObservationLimit = 50
	maxObservationLimit     = 1000
)

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultObservationLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, core.ErrValidation("INVALID_LIMIT", "limit must be a positive integer")
	}
	if n > maxObservationLimit {
		n = maxObservationLimit
	}
	return n, nil
}

// handleObservations returns the newest records of the active log, oldest
// first.
func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	obs := s.store.Tail(limit)
	if obs == nil {
		obs = []core.Observation{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"observations": obs,
		"count":        len(obs),
		"path":         s.store.Path(),
	})
}

// handleAutolearnStatus serves the status document verbatim with an ETag.
func (s *Server) handleAutolearnStatus(w http.ResponseWriter, r *http.Request) {
	if s.statusPath == "" {
		s.respondDomainError(w, core.ErrNotFound("autolearn status", "unconfigured"))
		return
	}
	data, err := fsutil.ReadFileScoped(s.statusPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.respondDomainError(w, core.ErrNotFound("autolearn status", s.statusPath))
			return
		}
		s.logger.Warn("reading autolearn status failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, "reading autolearn status")
		return
	}

	etag := contentETag(data)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// contentETag is a quoted strong validator over the full body.
func contentETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}
