// Package playlist provides user playlist management.
package playlist

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/domain/song"
	"github.com/mingleton/roombox/internal/infra/store"
)

// Limits applied to playlist metadata. Longer values are truncated,
// not rejected.
const (
	maxNameLen        = 50
	maxDescriptionLen = 300
)

// Errors
var (
	ErrNotFound     = errors.New("playlist not found")
	ErrNameTaken    = errors.New("a playlist with that name already exists")
	ErrNameRequired = errors.New("playlist name is required")
)

// Store is the durable playlist storage consumed by the service.
type Store interface {
	ListPlaylists(ctx context.Context, ownerID string, all bool) ([]song.PlaylistInfo, error)
	GetPlaylist(ctx context.Context, id int64) (song.PlaylistInfo, []song.PlaylistItem, error)
	CreatePlaylist(ctx context.Context, p song.PlaylistInfo) (int64, error)
	UpdatePlaylist(ctx context.Context, p song.PlaylistInfo) error
	DeletePlaylist(ctx context.Context, ownerID string, id int64) error
	AddPlaylistItem(ctx context.Context, playlistID int64, ownerID string, sg song.Song) error
	RemovePlaylistItem(ctx context.Context, playlistID, itemID int64, ownerID string) error
}

// Enqueuer feeds resolved songs into the room queue. Routing through
// the room facade keeps observers notified of every added item.
type Enqueuer interface {
	AddResolved(ctx context.Context, submitterID string, sg song.Song) (song.QueueItem, error)
}

// Service manages playlists and can feed a whole playlist into the
// playback queue.
type Service struct {
	store Store
	room  Enqueuer
}

// NewService creates a playlist service.
func NewService(st Store, room Enqueuer) *Service {
	return &Service{
		store: st,
		room:  room,
	}
}

// List returns the playlists visible to ownerID. With all set, every
// playlist is returned regardless of owner.
func (s *Service) List(ctx context.Context, ownerID string, all bool) ([]song.PlaylistInfo, error) {
	lists, err := s.store.ListPlaylists(ctx, ownerID, all)
	return lists, errors.Wrap(err, "failed to list playlists")
}

// Get returns a playlist and its items.
func (s *Service) Get(ctx context.Context, id int64) (song.PlaylistInfo, []song.PlaylistItem, error) {
	info, items, err := s.store.GetPlaylist(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return song.PlaylistInfo{}, nil, ErrNotFound
	}
	if err != nil {
		return song.PlaylistInfo{}, nil, errors.Wrap(err, "failed to get playlist")
	}
	return info, items, nil
}

// Create stores a new playlist owned by ownerID and returns it.
func (s *Service) Create(ctx context.Context, ownerID, name, description, thumbnailURL string) (song.PlaylistInfo, error) {
	if name == "" {
		return song.PlaylistInfo{}, ErrNameRequired
	}

	p := song.PlaylistInfo{
		OwnerID:      ownerID,
		Name:         truncate(name, maxNameLen),
		Description:  truncate(description, maxDescriptionLen),
		ThumbnailURL: thumbnailURL,
	}

	id, err := s.store.CreatePlaylist(ctx, p)
	if errors.Is(err, store.ErrDuplicateName) {
		return song.PlaylistInfo{}, ErrNameTaken
	}
	if err != nil {
		return song.PlaylistInfo{}, errors.Wrap(err, "failed to create playlist")
	}
	p.ID = id
	return p, nil
}

// Update edits a playlist's metadata. Only the owner may edit.
func (s *Service) Update(ctx context.Context, ownerID string, id int64, name, description, thumbnailURL string) error {
	if name == "" {
		return ErrNameRequired
	}

	err := s.store.UpdatePlaylist(ctx, song.PlaylistInfo{
		ID:           id,
		OwnerID:      ownerID,
		Name:         truncate(name, maxNameLen),
		Description:  truncate(description, maxDescriptionLen),
		ThumbnailURL: thumbnailURL,
	})
	switch {
	case errors.Is(err, store.ErrDuplicateName):
		return ErrNameTaken
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	}
	return errors.Wrap(err, "failed to update playlist")
}

// Delete removes a playlist and its items. Only the owner may delete.
func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	err := s.store.DeletePlaylist(ctx, ownerID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, "failed to delete playlist")
}

// AddItem appends a song to a playlist.
func (s *Service) AddItem(ctx context.Context, ownerID string, playlistID int64, sg song.Song) error {
	// Confirm the playlist exists first so a bad id is not a silent
	// foreign key failure.
	if _, _, err := s.Get(ctx, playlistID); err != nil {
		return err
	}
	return errors.Wrap(s.store.AddPlaylistItem(ctx, playlistID, ownerID, sg), "failed to add playlist item")
}

// RemoveItem removes an item from a playlist. Only the owner may remove.
func (s *Service) RemoveItem(ctx context.Context, ownerID string, playlistID, itemID int64) error {
	err := s.store.RemovePlaylistItem(ctx, playlistID, itemID, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, "failed to remove playlist item")
}

// EnqueueAll feeds every item of a playlist into the playback queue in
// playlist order and returns the enqueued items.
func (s *Service) EnqueueAll(ctx context.Context, submitterID string, playlistID int64) ([]song.QueueItem, error) {
	_, items, err := s.Get(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	enqueued := make([]song.QueueItem, 0, len(items))
	for _, item := range items {
		qi, err := s.room.AddResolved(ctx, submitterID, item.Song)
		if err != nil {
			return enqueued, errors.Wrapf(err, "failed to enqueue playlist item %q", item.Song.Name)
		}
		enqueued = append(enqueued, qi)
	}
	return enqueued, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Cutting on a byte budget can land mid-rune; drop the split rune
	// rather than storing invalid UTF-8.
	return strings.ToValidUTF8(s[:max], "")
}
