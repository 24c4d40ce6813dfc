package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSocket struct {
	mu        sync.Mutex
	envelopes []Envelope
	delay     time.Duration
}

func (s *recordingSocket) Send(e Envelope) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envelopes = append(s.envelopes, e)
	return nil
}

func (s *recordingSocket) received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.envelopes))
	copy(out, s.envelopes)
	return out
}

func TestBusSubscribeBroadcastsConnectionCount(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sock1 := &recordingSocket{}
	id1 := b.Subscribe("conn-1", sock1)
	assert.Equal(t, "conn-1", id1)
	assert.Equal(t, 1, b.ObserverCount())

	sock2 := &recordingSocket{}
	b.Subscribe("conn-2", sock2)
	assert.Equal(t, 2, b.ObserverCount())

	// The first socket saw both connection updates.
	got := sock1.received()
	require.Len(t, got, 2)
	assert.Equal(t, EventConnectionsUpdated, got[0].Event)
	assert.Equal(t, map[string]any{"connections": 1}, got[0].Content)
	assert.Equal(t, map[string]any{"connections": 2}, got[1].Content)
}

func TestBusDuplicateConnIDReplacesSocket(t *testing.T) {
	b := NewBus()
	defer b.Close()

	old := &recordingSocket{}
	b.Subscribe("conn-1", old)
	replacement := &recordingSocket{}
	b.Subscribe("conn-1", replacement)

	// A reconnecting client never counts twice, and an unchanged count
	// is not re-announced.
	assert.Equal(t, 1, b.ObserverCount())
	require.Len(t, old.received(), 1)
	assert.Empty(t, replacement.received())

	b.Broadcast(EventPlaybackUpdated, nil)
	got := replacement.received()
	assert.Equal(t, EventPlaybackUpdated, got[len(got)-1].Event)
}

func TestBusGeneratesConnIDWhenEmpty(t *testing.T) {
	b := NewBus()
	defer b.Close()

	id := b.Subscribe("", &recordingSocket{})
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, b.ObserverCount())
}

func TestBusUnsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sock := &recordingSocket{}
	b.Subscribe("conn-1", sock)
	b.Subscribe("conn-2", &recordingSocket{})

	b.Unsubscribe("conn-2")
	assert.Equal(t, 1, b.ObserverCount())

	got := sock.received()
	assert.Equal(t, map[string]any{"connections": 1}, got[len(got)-1].Content)

	// Unknown IDs are a no-op, no spurious broadcast.
	before := len(sock.received())
	b.Unsubscribe("conn-unknown")
	assert.Len(t, sock.received(), before)
}

func TestBusBroadcastSequenceNumbersIncrease(t *testing.T) {
	b := NewBus()
	defer b.Close()

	sock := &recordingSocket{}
	b.Subscribe("conn-1", sock)
	b.Broadcast(EventQueueItemAdded, map[string]any{"name": "first"})
	b.Broadcast(EventQueueItemRemoved, map[string]any{"name": "first"})

	got := sock.received()
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i].SequenceNo, got[i-1].SequenceNo)
	}
}

func TestBusSlowObserverDoesNotBlockOthers(t *testing.T) {
	b := NewBus()
	b.sendTimeout = 50 * time.Millisecond
	defer b.Close()

	stalled := &recordingSocket{delay: time.Second}
	fast := &recordingSocket{}
	b.Subscribe("conn-slow", stalled)
	b.Subscribe("conn-fast", fast)

	start := time.Now()
	b.Broadcast(EventPlaybackUpdated, nil)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	got := fast.received()
	assert.Equal(t, EventPlaybackUpdated, got[len(got)-1].Event)
}
