// Package song provides the Song and QueueItem domain entities.
package song

import "time"

// Song represents a playable audio item as returned by the resolver.
// Contains only information retrieved from the metadata service.
type Song struct {
	MediaRef     string `json:"mediaRef"`               // Opaque media reference used by the transport (e.g. a video ID)
	URL          string `json:"url"`                    // Canonical URL of the source
	Name         string `json:"name"`                   // Song title
	Artist       string `json:"artist"`                 // Artist or channel name
	DurationSecs int    `json:"duration"`               // Duration in seconds
	ThumbnailURL string `json:"thumbnailUrl,omitempty"` // Thumbnail image URL
}

// QueueItem represents a song stored in the playback queue.
// Items are immutable once stored; positions are never reused.
type QueueItem struct {
	ID          int64     // Server-issued unique identifier
	Position    int64     // Queue position, strictly increasing in insertion order
	SubmitterID string    // External user ID of the submitter
	Song        Song      // Song metadata captured at enqueue time
	AddedAt     time.Time // Time when added to the queue
}

// PlaylistInfo represents a user playlist's metadata.
type PlaylistInfo struct {
	ID           int64  `json:"id"`
	OwnerID      string `json:"ownerId"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// PlaylistItem represents a song stored in a playlist.
type PlaylistItem struct {
	ID       int64  `json:"id"`
	Position int64  `json:"position"`
	OwnerID  string `json:"ownerId"`
	Song     Song   `json:"song"`
}
