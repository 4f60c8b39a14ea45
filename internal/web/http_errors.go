package web

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/compound/internal/core"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

var categoryStatus = map[core.ErrorCategory]int{
	core.ErrCatValidation: http.StatusUnprocessableEntity,
	core.ErrCatNotFound:   http.StatusNotFound,
	core.ErrCatTimeout:    http.StatusGatewayTimeout,
	core.ErrCatExecution:  http.StatusBadGateway,
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorBody{Error: message})
}

// respondDomainError picks the status from the error's category. Errors
// without one are 500s.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var de *core.DomainError
	if !errors.As(err, &de) {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status, ok := categoryStatus[de.Category]
	if !ok {
		status = http.StatusInternalServerError
	}
	s.respondJSON(w, status, errorBody{Error: de.Message, Code: de.Code, Details: de.Details})
}
