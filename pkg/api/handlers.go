package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gridhost/internal/logger"
	"gridhost/pkg/backend"
	"gridhost/pkg/session"
)

// healthHandler serves the liveness and readiness probes.
type healthHandler struct {
	sessions *session.Manager
	backends *backend.Manager
}

func (h *healthHandler) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(map[string]any{
		"service": "gridhost",
	}))
}

func (h *healthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	ready := h.backends.Ready()
	data := map[string]any{
		"backends": len(ready),
		"sessions": h.sessions.Count(),
	}
	if len(ready) == 0 {
		resp := errorResponse("no backend available")
		resp.Data = data
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, okResponse(data))
}

// sessionHandler serves session open/list/close.
type sessionHandler struct {
	sessions *session.Manager
}

func (h *sessionHandler) open(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Open(r.Context())
	if err != nil {
		logger.Error("Failed to open session", logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "failed to open session")
		return
	}
	writeJSON(w, http.StatusCreated, okResponse(sess))
}

func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions := h.sessions.List()
	// Tokens are handed out once at open; never echo them back.
	sanitized := make([]session.Session, 0, len(sessions))
	for _, sess := range sessions {
		clean := *sess
		clean.Token = ""
		sanitized = append(sanitized, clean)
	}
	writeJSON(w, http.StatusOK, okResponse(sanitized))
}

func (h *sessionHandler) close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.sessions.Close(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to close session")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{"closed": id}))
}

// backendHandler serves backend listing and dispatch.
type backendHandler struct {
	backends *backend.Manager
}

func (h *backendHandler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse(h.backends.Ready()))
}

func (h *backendHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	rec, err := h.backends.Dispatch(r.Context())
	if err != nil {
		if errors.Is(err, backend.ErrNoBackends) {
			writeError(w, http.StatusServiceUnavailable, "no backend available")
			return
		}
		logger.Error("Dispatch failed", logger.KeyError, err)
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]string{
		"backend": rec.Name,
		"kind":    rec.Kind,
	}))
}

// shutdownHandler asks the coordinator to stop the daemon.
type shutdownHandler struct {
	shutdown func() bool
}

func (h *shutdownHandler) post(w http.ResponseWriter, r *http.Request) {
	initiated := h.shutdown()
	writeJSON(w, http.StatusAccepted, okResponse(map[string]bool{
		"initiated": initiated,
	}))
}
