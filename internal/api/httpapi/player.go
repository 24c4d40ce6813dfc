package httpapi

import (
	"net/http"
)

func (h *Handler) handleGetPlayer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.room.NowPlaying())
}

func (h *Handler) handleBegin(w http.ResponseWriter, r *http.Request) {
	if err := h.room.Begin(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.room.NowPlaying())
}

func (h *Handler) handleTogglePause(w http.ResponseWriter, _ *http.Request) {
	status, err := h.room.TogglePause()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status.String()})
}

func (h *Handler) handleSkip(w http.ResponseWriter, _ *http.Request) {
	skipped, err := h.room.Skip()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"skipped": skipped})
}

func (h *Handler) handleStop(w http.ResponseWriter, _ *http.Request) {
	if err := h.room.Stop(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "idle"})
}
