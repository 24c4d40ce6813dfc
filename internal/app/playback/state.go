// Package playback provides the single-session playback state machine
// driving a room's audio transport.
package playback

// Status represents the playback status.
type Status int

const (
	StatusIdle     Status = iota // No session active
	StatusStarting               // Transport connecting or stream starting
	StatusPlaying                // Audio streaming
	StatusPaused                 // Audio suspended, session alive
	StatusStopping               // Teardown in progress
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStarting:
		return "starting"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}
