package playback

import "context"

// TransportEventKind represents a transport lifecycle event kind.
type TransportEventKind int

const (
	TransportStreaming    TransportEventKind = iota // Audio is flowing
	TransportStreamEnded                            // Current stream finished naturally
	TransportDisconnected                           // Connection lost
	TransportReconnecting                           // Connection recovery in progress
)

// String returns the string representation of the event kind.
func (k TransportEventKind) String() string {
	switch k {
	case TransportStreaming:
		return "streaming"
	case TransportStreamEnded:
		return "stream_ended"
	case TransportDisconnected:
		return "disconnected"
	case TransportReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// TransportEvent is an asynchronous lifecycle event from the transport.
type TransportEvent struct {
	Kind TransportEventKind
	Err  error // Set for TransportDisconnected when a cause is known
}

// Transport delivers audio to the room's shared output. Implementations
// emit lifecycle events on the Events channel; a Stream call replacing
// an in-flight stream abandons the old one.
type Transport interface {
	// Connect attaches the transport to the given target.
	Connect(ctx context.Context, target string) error
	// Stream starts streaming the referenced media, replacing any
	// stream already in flight.
	Stream(ctx context.Context, mediaRef string) error
	// Pause suspends the current stream without losing position.
	Pause() error
	// Unpause resumes a suspended stream.
	Unpause() error
	// Teardown disconnects and releases transport resources.
	Teardown() error
	// Events returns the transport's lifecycle event channel.
	Events() <-chan TransportEvent
}
