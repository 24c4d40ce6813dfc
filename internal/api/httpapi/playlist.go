package httpapi

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/domain/song"
)

type playlistRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type songRequest struct {
	MediaRef     string `json:"mediaRef"`
	URL          string `json:"url"`
	Name         string `json:"name"`
	Artist       string `json:"artist"`
	DurationSecs int    `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(key), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	return id, nil
}

func (h *Handler) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	lists, err := h.playlists.List(r.Context(), userID(r), all)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *Handler) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.playlists.Create(r.Context(), userID(r), req.Name, req.Description, req.ThumbnailURL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	info, items, err := h.playlists.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist": info,
		"items":    items,
	})
}

func (h *Handler) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req playlistRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.playlists.Update(r.Context(), userID(r), id, req.Name, req.Description, req.ThumbnailURL); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.playlists.Delete(r.Context(), userID(r), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleAddPlaylistItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req songRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.MediaRef == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("mediaRef and name are required"))
		return
	}

	err = h.playlists.AddItem(r.Context(), userID(r), id, song.Song{
		MediaRef:     req.MediaRef,
		URL:          req.URL,
		Name:         req.Name,
		Artist:       req.Artist,
		DurationSecs: req.DurationSecs,
		ThumbnailURL: req.ThumbnailURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (h *Handler) handleRemovePlaylistItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.playlists.RemoveItem(r.Context(), userID(r), id, itemID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) handleEnqueuePlaylist(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	enqueued, err := h.playlists.EnqueueAll(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enqueued": len(enqueued)})
}
