// Package notification provides the observer bus for broadcasting room
// events to connected clients.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names carried in the envelope.
const (
	EventConnectionsUpdated = "connections-updated"
	EventQueueItemAdded     = "queue-item-added"
	EventQueueItemRemoved   = "queue-item-removed"
	EventPlaybackUpdated    = "playback-updated"
	EventPlaybackStopped    = "playback-stopped"
	EventPlayerDisconnected = "player-disconnected"
)

// Envelope is the wire shape of every notification.
type Envelope struct {
	Event      string `json:"event"`
	Status     string `json:"status"`
	SequenceNo uint64 `json:"sequenceNo"`
	Content    any    `json:"content,omitempty"`
}

// Socket is one subscriber connection.
type Socket interface {
	Send(Envelope) error
}

// observer is one subscribed client connection.
type observer struct {
	connID string
	socket Socket
}

// Bus fans room events out to every observer. Observers are keyed by
// connection ID; subscribing again with the same ID replaces the old
// socket, so a reconnecting client never counts twice.
type Bus struct {
	mu        sync.RWMutex
	observers map[string]*observer

	sequenceNo   uint64
	sequenceNoMu sync.Mutex

	sendTimeout time.Duration
}

// NewBus creates an observer bus.
func NewBus() *Bus {
	return &Bus{
		observers:   make(map[string]*observer),
		sendTimeout: 500 * time.Millisecond,
	}
}

// Subscribe registers a socket under the given connection ID and
// returns the ID. An empty ID gets a generated one. A new ID is
// announced to everyone with the updated observer count; re-subscribing
// a known ID only swaps the socket, the count is unchanged so nothing
// is broadcast.
func (b *Bus) Subscribe(connID string, socket Socket) string {
	if connID == "" {
		connID = uuid.New().String()
	}

	b.mu.Lock()
	_, known := b.observers[connID]
	b.observers[connID] = &observer{
		connID: connID,
		socket: socket,
	}
	count := len(b.observers)
	b.mu.Unlock()

	if !known {
		b.Broadcast(EventConnectionsUpdated, map[string]any{"connections": count})
	}
	return connID
}

// Unsubscribe removes the observer with the given connection ID and
// broadcasts the updated count to the rest.
func (b *Bus) Unsubscribe(connID string) {
	b.mu.Lock()
	_, ok := b.observers[connID]
	delete(b.observers, connID)
	count := len(b.observers)
	b.mu.Unlock()

	if ok {
		b.Broadcast(EventConnectionsUpdated, map[string]any{"connections": count})
	}
}

// ObserverCount returns the number of connected observers.
func (b *Bus) ObserverCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.observers)
}

// Broadcast sends an event to every observer.
// Each send runs in its own goroutine with a timeout so one stalled
// connection cannot hold up the rest.
func (b *Bus) Broadcast(event string, content any) {
	b.sequenceNoMu.Lock()
	b.sequenceNo++
	envelope := Envelope{
		Event:      event,
		Status:     "success",
		SequenceNo: b.sequenceNo,
		Content:    content,
	}
	b.sequenceNoMu.Unlock()

	b.mu.RLock()
	// Copy observers to avoid holding the lock during sends
	obs := make([]*observer, 0, len(b.observers))
	for _, o := range b.observers {
		obs = append(obs, o)
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, o := range obs {
		wg.Add(1)
		go func(o *observer) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), b.sendTimeout)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				done <- o.socket.Send(envelope)
			}()

			select {
			case <-done:
				// A send error is not fatal; the connection is
				// cleaned up when its reader exits.
			case <-ctx.Done():
				// Timeout, move on
			}
		}(o)
	}
	wg.Wait()
}

// Close drops all observers.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = make(map[string]*observer)
}
