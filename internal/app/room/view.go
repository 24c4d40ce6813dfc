package room

import (
	"time"

	"github.com/mingleton/roombox/internal/domain/song"
)

// SongView is the wire shape of a song.
type SongView struct {
	MediaRef     string `json:"mediaRef"`
	URL          string `json:"url"`
	Name         string `json:"name"`
	Artist       string `json:"artist"`
	DurationSecs int    `json:"duration"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// QueueItemView is the wire shape of a queue item.
type QueueItemView struct {
	ID          int64     `json:"id"`
	Position    int64     `json:"position"`
	SubmitterID string    `json:"submitterId"`
	AddedAt     time.Time `json:"addedAt"`
	Song        SongView  `json:"song"`
}

// QueueStateView is the full queue snapshot sent to clients.
type QueueStateView struct {
	Looping bool            `json:"looping"`
	Current *QueueItemView  `json:"current"`
	Next    []QueueItemView `json:"next"`
	History []QueueItemView `json:"history"`
}

// PlaybackView is the playback snapshot sent to clients.
type PlaybackView struct {
	Status  string    `json:"status"`
	Looping bool      `json:"looping"`
	Elapsed int       `json:"elapsed"`
	Song    *SongView `json:"song"`
}

func newSongView(s song.Song) SongView {
	return SongView{
		MediaRef:     s.MediaRef,
		URL:          s.URL,
		Name:         s.Name,
		Artist:       s.Artist,
		DurationSecs: s.DurationSecs,
		ThumbnailURL: s.ThumbnailURL,
	}
}

func newQueueItemView(item song.QueueItem) QueueItemView {
	return QueueItemView{
		ID:          item.ID,
		Position:    item.Position,
		SubmitterID: item.SubmitterID,
		AddedAt:     item.AddedAt,
		Song:        newSongView(item.Song),
	}
}

func newQueueItemViews(items []song.QueueItem) []QueueItemView {
	views := make([]QueueItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newQueueItemView(item))
	}
	return views
}

// QueueItemViewOf converts a queue item for API responses.
func QueueItemViewOf(item song.QueueItem) QueueItemView {
	return newQueueItemView(item)
}

// SongViews converts resolver results for API responses.
func SongViews(songs []song.Song) []SongView {
	views := make([]SongView, 0, len(songs))
	for _, s := range songs {
		views = append(views, newSongView(s))
	}
	return views
}
