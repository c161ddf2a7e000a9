package web

// errors.go turns errors into responses.
//
// Every error goes through core.MapError, which yields the message, action,
// code and status. The technical error is logged with the request ID; the
// client only sees the mapped message. Browsers get an HTML page, everyone
// else gets JSON.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tabula/internal/core"
	"github.com/JonMunkholm/tabula/internal/logging"
	"github.com/JonMunkholm/tabula/internal/web/templates"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
	Action string `json:"action,omitempty"`
}

// respondError logs err and writes the mapped user message.
// Known errors log at warn, anything that falls through to ERR000 at error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"code", msg.Code,
		"error", err.Error(),
	}
	if core.IsUserFacing(err) {
		logger.Warn("request rejected", attrs...)
	} else {
		logger.Error("request failed", attrs...)
	}

	if wantsHTML(r) {
		respondErrorHTML(w, r, msg)
		return
	}
	respondErrorJSON(w, msg)
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(msg.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Detail: msg.Message,
		Code:   msg.Code,
		Action: msg.Action,
	})
}

func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(msg.Status)
	if err := templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error page", "error", err)
	}
}

// wantsHTML reports whether the client asked for HTML first.
// API clients (curl, fetch, SDKs) get JSON.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	html := strings.Index(accept, "text/html")
	if html < 0 {
		return false
	}
	js := strings.Index(accept, "application/json")
	return js < 0 || html < js
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode", "error", err)
	}
}
