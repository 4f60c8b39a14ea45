package web

import (
	"io"
	"net/http"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
	"github.com/hugo-lorenzo-mato/compound/internal/hooks"
)

// readBody reads a bounded request body. Failures are reported to the
// caller as validation errors.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, core.ErrValidation(core.CodeInvalidJSON, "reading request body").WithCause(err)
	}
	return data, nil
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	ev, err := hooks.AdaptEvent(body)
	if err != nil {
		s.logger.Debug("rejected host event", "error", err)
		s.respondDomainError(w, err)
		return
	}
	s.hooks.HandleEvent(r.Context(), ev)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "type": ev.Type()})
}

func (s *Server) handleToolBefore(w http.ResponseWriter, r *http.Request) {
	s.handleTool(w, r, false)
}

func (s *Server) handleToolAfter(w http.ResponseWriter, r *http.Request) {
	s.handleTool(w, r, true)
}

// handleTool replies with the output object, rewritten when a nudge fired.
func (s *Server) handleTool(w http.ResponseWriter, r *http.Request, after bool) {
	body, err := readBody(w, r)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	payload, err := hooks.AdaptTool(body, after)
	if err != nil {
		s.logger.Debug("rejected tool payload", "error", err)
		s.respondDomainError(w, err)
		return
	}

	if after {
		s.hooks.ToolAfter(r.Context(), &payload.Call)
	} else {
		s.hooks.ToolBefore(r.Context(), payload.Call)
	}
	s.respondJSON(w, http.StatusOK, payload.Reply())
}

func (s *Server) handleMessagesTransform(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	transcript, err := hooks.AdaptMessages(body)
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.hooks.TransformMessages(r.Context(), transcript.Messages)
	s.respondJSON(w, http.StatusOK, transcript.Reply())
}

func (s *Server) handleCompaction(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string][]string{
		"context": {s.hooks.CompactionContext()},
	})
}
