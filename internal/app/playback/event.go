package playback

import "github.com/mingleton/roombox/internal/domain/song"

// EventType represents a session event type.
type EventType int

const (
	EventStarted      EventType = iota // An item started streaming
	EventProgress                      // Per-tick progress update
	EventAdvanced                      // Cursor moved to the next item
	EventStateChanged                  // Paused or resumed
	EventStopped                       // Session ended, transport torn down
	EventDisconnected                  // Session ended by transport loss
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventProgress:
		return "progress"
	case EventAdvanced:
		return "advanced"
	case EventStateChanged:
		return "state_changed"
	case EventStopped:
		return "stopped"
	case EventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Event represents a session event.
type Event struct {
	Type    EventType
	Item    *song.QueueItem // Item now bound to the session (nil for some events)
	Prev    *song.QueueItem // Item left behind on EventAdvanced
	Elapsed int             // Whole seconds of playback for the bound item
	Status  Status
}
