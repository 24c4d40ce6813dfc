// Package httpapi exposes the room over HTTP and WebSocket.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/app/notification"
	"github.com/mingleton/roombox/internal/app/playback"
	"github.com/mingleton/roombox/internal/app/playlist"
	"github.com/mingleton/roombox/internal/app/queue"
	"github.com/mingleton/roombox/internal/app/room"
)

// Config holds API configuration.
type Config struct {
	AdminToken string
}

// Handler serves the room API.
type Handler struct {
	room      *room.Manager
	playlists *playlist.Service
	bus       *notification.Bus
	config    Config
}

// NewHandler creates the API handler.
func NewHandler(rm *room.Manager, pl *playlist.Service, bus *notification.Bus, config Config) *Handler {
	return &Handler{
		room:      rm,
		playlists: pl,
		bus:       bus,
		config:    config,
	}
}

// Mux builds the route table.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/queue", h.handleGetQueue)
	mux.HandleFunc("POST /api/queue/add", h.handleAddToQueue)
	mux.HandleFunc("POST /api/queue/remove", h.requireAdmin(h.handleRemoveFromQueue))
	mux.HandleFunc("POST /api/queue/toggle-loop", h.handleToggleLoop)

	mux.HandleFunc("GET /api/player", h.handleGetPlayer)
	mux.HandleFunc("POST /api/player/begin", h.handleBegin)
	mux.HandleFunc("POST /api/player/toggle-pause", h.handleTogglePause)
	mux.HandleFunc("POST /api/player/skip", h.handleSkip)
	mux.HandleFunc("POST /api/player/stop", h.requireAdmin(h.handleStop))

	mux.HandleFunc("GET /api/songs/search", h.handleSearchSongs)

	mux.HandleFunc("GET /api/playlists", h.handleListPlaylists)
	mux.HandleFunc("POST /api/playlists", h.handleCreatePlaylist)
	mux.HandleFunc("GET /api/playlists/{id}", h.handleGetPlaylist)
	mux.HandleFunc("PATCH /api/playlists/{id}", h.handleUpdatePlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", h.handleDeletePlaylist)
	mux.HandleFunc("POST /api/playlists/{id}/items", h.handleAddPlaylistItem)
	mux.HandleFunc("DELETE /api/playlists/{id}/items/{itemID}", h.handleRemovePlaylistItem)
	mux.HandleFunc("POST /api/playlists/{id}/enqueue", h.handleEnqueuePlaylist)

	mux.HandleFunc("GET /ws", h.handleWebSocket)

	return mux
}

// requireAdmin guards destructive operations with the admin token.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Admin-Token") != h.config.AdminToken {
			writeError(w, http.StatusUnauthorized, errors.New("invalid admin token"))
			return
		}
		next(w, r)
	}
}

// userID identifies the caller. Clients without an identity share the
// anonymous submitter.
func userID(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	return "anonymous"
}

type responseEnvelope struct {
	Status  string `json:"status"`
	Content any    `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, content any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(responseEnvelope{
		Status:  "success",
		Content: content,
	}); err != nil {
		zlog.Warn().Msgf("api: failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(responseEnvelope{
		Status: "error",
		Error:  err.Error(),
	})
}

// writeDomainError maps application errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrNoMatch),
		errors.Is(err, queue.ErrItemNotFound),
		errors.Is(err, playlist.ErrNotFound),
		errors.Is(err, playback.ErrNothingQueued):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, queue.ErrCurrentlyBound),
		errors.Is(err, playback.ErrAlreadyActive),
		errors.Is(err, playback.ErrNotActive),
		errors.Is(err, playback.ErrNotPlaying),
		errors.Is(err, playback.ErrNotPaused),
		errors.Is(err, playlist.ErrNameTaken):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, playlist.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err)
	default:
		zlog.Error().Msgf("api: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func decodeBody(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.Wrap(err, "invalid request body")
	}
	return nil
}
