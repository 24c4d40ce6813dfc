package httpapi

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/app/room"
)

func (h *Handler) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	view, err := h.room.QueueState(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleAddToQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SearchQuery string `json:"searchQuery"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.SearchQuery == "" {
		writeError(w, http.StatusBadRequest, errors.New("searchQuery is required"))
		return
	}

	item, err := h.room.Add(r.Context(), userID(r), req.SearchQuery)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room.QueueItemViewOf(item))
}

func (h *Handler) handleRemoveFromQueue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QueueIndex *int64 `json:"queueIndex"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.QueueIndex == nil {
		writeError(w, http.StatusBadRequest, errors.New("queueIndex is required"))
		return
	}

	item, err := h.room.RemoveAt(r.Context(), *req.QueueIndex)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room.QueueItemViewOf(item))
}

func (h *Handler) handleToggleLoop(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"looping": h.room.ToggleLoop()})
}

func (h *Handler) handleSearchSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	songs, err := h.room.Search(r.Context(), query, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room.SongViews(songs))
}
