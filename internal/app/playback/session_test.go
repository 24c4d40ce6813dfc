package playback

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingleton/roombox/internal/app/queue"
	"github.com/mingleton/roombox/internal/domain/song"
	"github.com/mingleton/roombox/internal/infra/store"
)

// fakeTransport is a scripted transport for driving the session state
// machine from tests.
type fakeTransport struct {
	mu sync.Mutex

	events chan TransportEvent

	target    string
	streamed  []string
	pauses    int
	unpauses  int
	teardowns int

	connectErr error
	streamErr  error
	autoStream bool // emit TransportStreaming as soon as Stream is called
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		events:     make(chan TransportEvent, 16),
		autoStream: true,
	}
}

func (f *fakeTransport) Connect(_ context.Context, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.target = target
	return nil
}

func (f *fakeTransport) Stream(_ context.Context, mediaRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.streamErr != nil {
		return f.streamErr
	}
	f.streamed = append(f.streamed, mediaRef)
	if f.autoStream {
		f.events <- TransportEvent{Kind: TransportStreaming}
	}
	return nil
}

func (f *fakeTransport) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeTransport) Unpause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unpauses++
	return nil
}

func (f *fakeTransport) Teardown() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	return nil
}

func (f *fakeTransport) Events() <-chan TransportEvent {
	return f.events
}

func (f *fakeTransport) emit(kind TransportEventKind) {
	f.events <- TransportEvent{Kind: kind}
}

func (f *fakeTransport) streamedRefs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.streamed))
	copy(out, f.streamed)
	return out
}

func (f *fakeTransport) teardownCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teardowns
}

func newTestSession(t *testing.T, config Config) (*Session, *queue.Manager, *fakeTransport) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "playback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	q, err := queue.NewManager(context.Background(), st, 100)
	require.NoError(t, err)

	ft := newFakeTransport()
	s := NewSession(q, ft, config)
	t.Cleanup(s.Close)
	return s, q, ft
}

func testConfig() Config {
	return Config{
		DisconnectGrace: 80 * time.Millisecond,
		TickInterval:    time.Hour, // Ticks disabled unless a test wants them
	}
}

func testSong(name string) song.Song {
	return song.Song{
		MediaRef:     "media:" + name,
		URL:          "https://songs.example.com/" + name,
		Name:         name,
		Artist:       "artist",
		DurationSecs: 180,
	}
}

func waitEvent(t *testing.T, ch <-chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event %s", want)
		}
	}
}

func waitStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Status() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for status %s, got %s", want, s.Status())
}

func TestSessionBeginOnlyFromIdle(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)

	require.NoError(t, s.Begin(ctx, "room-main"))
	ev := waitEvent(t, s.Events(), EventStarted)
	assert.Equal(t, "first", ev.Item.Song.Name)
	assert.Equal(t, StatusPlaying, ev.Status)
	waitStatus(t, s, StatusPlaying)

	assert.ErrorIs(t, s.Begin(ctx, "room-main"), ErrAlreadyActive)
	assert.Equal(t, []string{"media:first"}, ft.streamedRefs())
}

func TestSessionBeginWithEmptyQueue(t *testing.T) {
	s, _, ft := newTestSession(t, testConfig())

	err := s.Begin(context.Background(), "room-main")
	assert.ErrorIs(t, err, ErrNothingQueued)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Empty(t, ft.streamedRefs())
}

func TestSessionPauseResume(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	// Pause is only valid while playing.
	require.NoError(t, s.Pause())
	ev := waitEvent(t, s.Events(), EventStateChanged)
	assert.Equal(t, StatusPaused, ev.Status)
	assert.ErrorIs(t, s.Pause(), ErrNotPlaying)

	require.NoError(t, s.Resume())
	ev = waitEvent(t, s.Events(), EventStateChanged)
	assert.Equal(t, StatusPlaying, ev.Status)
	assert.ErrorIs(t, s.Resume(), ErrNotPaused)

	ft.mu.Lock()
	defer ft.mu.Unlock()
	assert.Equal(t, 1, ft.pauses)
	assert.Equal(t, 1, ft.unpauses)
}

func TestSessionSkipAdvances(t *testing.T) {
	s, q, _ := newTestSession(t, testConfig())
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		_, err := q.Enqueue(ctx, testSong(name), "user-1")
		require.NoError(t, err)
	}
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	require.NoError(t, s.Skip())
	ev := waitEvent(t, s.Events(), EventAdvanced)
	assert.Equal(t, "second", ev.Item.Song.Name)
	require.NotNil(t, ev.Prev)
	assert.Equal(t, "first", ev.Prev.Song.Name)

	waitStatus(t, s, StatusPlaying)
	assert.Equal(t, 0, s.Elapsed())
}

func TestSessionSkipOnLastItemStops(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("only"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	assert.ErrorIs(t, s.Skip(), ErrQueueExhausted)
	waitEvent(t, s.Events(), EventStopped)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Equal(t, 1, ft.teardownCount())

	upcoming, err := q.ListUpcoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestSessionLoopKeepsSingleItemCycling(t *testing.T) {
	s, q, _ := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("looped"), "user-1")
	require.NoError(t, err)
	q.SetLoop(true)

	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Skip())
		ev := waitEvent(t, s.Events(), EventAdvanced)
		assert.Equal(t, "looped", ev.Item.Song.Name)
		waitStatus(t, s, StatusPlaying)
	}
}

func TestSessionStreamEndUsesSkipPath(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		_, err := q.Enqueue(ctx, testSong(name), "user-1")
		require.NoError(t, err)
	}
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	ft.emit(TransportStreamEnded)
	ev := waitEvent(t, s.Events(), EventAdvanced)
	assert.Equal(t, "second", ev.Item.Song.Name)
	waitStatus(t, s, StatusPlaying)

	// End of the last item stops the session.
	ft.emit(TransportStreamEnded)
	waitEvent(t, s.Events(), EventStopped)
	waitStatus(t, s, StatusIdle)
}

func TestSessionStopClearsQueueAndLoop(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	for _, name := range []string{"first", "second"} {
		_, err := q.Enqueue(ctx, testSong(name), "user-1")
		require.NoError(t, err)
	}
	q.SetLoop(true)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	require.NoError(t, s.Stop())
	waitEvent(t, s.Events(), EventStopped)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Equal(t, 1, ft.teardownCount())
	assert.False(t, q.GetLoop())

	upcoming, err := q.ListUpcoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	assert.ErrorIs(t, s.Stop(), ErrNotActive)
}

func TestSessionEnqueueAfterStopIsPlayable(t *testing.T) {
	s, q, _ := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)
	require.NoError(t, s.Stop())
	waitStatus(t, s, StatusIdle)

	// The stop emptied the positions around the cursor; a fresh
	// enqueue must still be reachable by the next Begin.
	_, err = q.Enqueue(ctx, testSong("fresh"), "user-2")
	require.NoError(t, err)

	require.NoError(t, s.Begin(ctx, "room-main"))
	ev := waitEvent(t, s.Events(), EventStarted)
	assert.Equal(t, "fresh", ev.Item.Song.Name)
}

func TestSessionDisconnectGraceExpires(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	ft.emit(TransportDisconnected)
	waitEvent(t, s.Events(), EventDisconnected)
	assert.Equal(t, StatusIdle, s.Status())
	assert.Equal(t, 1, ft.teardownCount())

	upcoming, err := q.ListUpcoming(ctx)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestSessionReconnectWithinGraceSurvives(t *testing.T) {
	s, q, ft := newTestSession(t, testConfig())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))
	waitStatus(t, s, StatusPlaying)

	ft.emit(TransportDisconnected)
	ft.emit(TransportReconnecting)

	// Wait well past the grace window; the session must survive.
	time.Sleep(3 * testConfig().DisconnectGrace)
	assert.Equal(t, StatusPlaying, s.Status())
	assert.Equal(t, 0, ft.teardownCount())
}

func TestSessionProgressTicks(t *testing.T) {
	config := testConfig()
	config.TickInterval = 10 * time.Millisecond
	s, q, _ := newTestSession(t, config)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testSong("first"), "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Begin(ctx, "room-main"))

	ev := waitEvent(t, s.Events(), EventProgress)
	assert.GreaterOrEqual(t, ev.Elapsed, 1)
	assert.Equal(t, "first", ev.Item.Song.Name)

	// Elapsed freezes while paused.
	require.NoError(t, s.Pause())
	frozen := s.Elapsed()
	time.Sleep(5 * config.TickInterval)
	assert.Equal(t, frozen, s.Elapsed())
}
