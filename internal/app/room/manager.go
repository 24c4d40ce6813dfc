// Package room provides the orchestration facade tying the queue, the
// playback session and the observer bus together.
package room

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/app/notification"
	"github.com/mingleton/roombox/internal/app/playback"
	"github.com/mingleton/roombox/internal/app/queue"
	"github.com/mingleton/roombox/internal/domain/song"
)

// Errors
var (
	ErrNoMatch = errors.New("no songs matched the query")
)

// Resolver turns a free-text query into playable songs.
type Resolver interface {
	Resolve(ctx context.Context, query string, limit int) ([]song.Song, error)
}

// Manager is the single entry point for room operations. It applies
// every mutation through the queue manager and the playback session,
// then broadcasts the outcome, so observers only ever see durable
// state.
type Manager struct {
	queue    *queue.Manager
	session  *playback.Session
	bus      *notification.Bus
	resolver Resolver
	target   string

	done chan struct{}
}

// NewManager creates the room facade and starts relaying session
// events to the observer bus.
func NewManager(q *queue.Manager, s *playback.Session, bus *notification.Bus, r Resolver, target string) *Manager {
	m := &Manager{
		queue:    q,
		session:  s,
		bus:      bus,
		resolver: r,
		target:   target,
		done:     make(chan struct{}),
	}
	go m.relayEvents()
	return m
}

// Close stops the session and the event relay.
func (m *Manager) Close() {
	m.session.Close()
	<-m.done
	m.bus.Close()
}

// Search resolves a free-text query into song candidates.
func (m *Manager) Search(ctx context.Context, query string, limit int) ([]song.Song, error) {
	songs, err := m.resolver.Resolve(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve query")
	}
	if len(songs) == 0 {
		return nil, ErrNoMatch
	}
	return songs, nil
}

// Add resolves a query to its best match and enqueues it.
func (m *Manager) Add(ctx context.Context, submitterID, query string) (song.QueueItem, error) {
	songs, err := m.Search(ctx, query, 1)
	if err != nil {
		return song.QueueItem{}, err
	}
	return m.AddResolved(ctx, submitterID, songs[0])
}

// AddResolved enqueues an already resolved song and starts playback
// when the room is idle. The enqueued item is broadcast only after it
// is durably stored. Bulk producers (playlist enqueue) go through here
// so observers see every item.
func (m *Manager) AddResolved(ctx context.Context, submitterID string, sg song.Song) (song.QueueItem, error) {
	item, err := m.queue.Enqueue(ctx, sg, submitterID)
	if err != nil {
		return song.QueueItem{}, err
	}

	m.bus.Broadcast(notification.EventQueueItemAdded, newQueueItemView(item))

	// Failure to start is not a failure to enqueue.
	if m.session.Status() == playback.StatusIdle {
		if err := m.session.Begin(ctx, m.target); err != nil {
			zlog.Warn().Msgf("room: could not start playback for new item: %v", err)
		}
	}
	return item, nil
}

// RemoveAt removes the upcoming item at the given position. The item
// bound to the session cannot be removed.
func (m *Manager) RemoveAt(ctx context.Context, pos int64) (song.QueueItem, error) {
	item, err := m.queue.Dequeue(ctx, pos)
	if err != nil {
		return song.QueueItem{}, err
	}
	m.bus.Broadcast(notification.EventQueueItemRemoved, newQueueItemView(item))
	return item, nil
}

// Begin explicitly starts playback at the cursor.
func (m *Manager) Begin(ctx context.Context) error {
	return m.session.Begin(ctx, m.target)
}

// Skip advances to the next item. The skipped return is false when the
// queue ran out and the session stopped instead.
func (m *Manager) Skip() (skipped bool, err error) {
	err = m.session.Skip()
	if errors.Is(err, playback.ErrQueueExhausted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TogglePause pauses a playing session and resumes a paused one,
// returning the new status.
func (m *Manager) TogglePause() (playback.Status, error) {
	switch m.session.Status() {
	case playback.StatusPlaying:
		if err := m.session.Pause(); err != nil {
			return m.session.Status(), err
		}
	case playback.StatusPaused:
		if err := m.session.Resume(); err != nil {
			return m.session.Status(), err
		}
	default:
		return m.session.Status(), playback.ErrNotActive
	}
	return m.session.Status(), nil
}

// Stop ends the session and clears the upcoming queue.
func (m *Manager) Stop() error {
	return m.session.Stop()
}

// ToggleLoop flips the loop flag and returns the new value.
func (m *Manager) ToggleLoop() bool {
	looping := m.queue.SetLoop(!m.queue.GetLoop())
	m.bus.Broadcast(notification.EventPlaybackUpdated, m.nowPlayingView())
	return looping
}

// QueueState returns a full queue snapshot.
func (m *Manager) QueueState(ctx context.Context) (QueueStateView, error) {
	view := QueueStateView{
		Looping: m.queue.GetLoop(),
		Next:    []QueueItemView{},
		History: []QueueItemView{},
	}

	upcoming, err := m.queue.ListUpcoming(ctx)
	if err != nil {
		return QueueStateView{}, err
	}
	history, err := m.queue.ListHistory(ctx)
	if err != nil {
		return QueueStateView{}, err
	}
	view.History = newQueueItemViews(history)

	// The cursor row is the current item; everything past it is next.
	cursor := m.queue.CurrentPosition()
	for _, item := range upcoming {
		if item.Position == cursor {
			v := newQueueItemView(item)
			view.Current = &v
			continue
		}
		view.Next = append(view.Next, newQueueItemView(item))
	}
	return view, nil
}

// NowPlaying returns the playback snapshot.
func (m *Manager) NowPlaying() PlaybackView {
	return m.nowPlayingView()
}

func (m *Manager) nowPlayingView() PlaybackView {
	view := PlaybackView{
		Status:  m.session.Status().String(),
		Looping: m.queue.GetLoop(),
		Elapsed: m.session.Elapsed(),
	}
	if item, ok := m.session.Current(); ok {
		sv := newSongView(item.Song)
		view.Song = &sv
	}
	return view
}

// relayEvents turns session events into observer broadcasts.
func (m *Manager) relayEvents() {
	defer close(m.done)

	for ev := range m.session.Events() {
		switch ev.Type {
		case playback.EventStarted, playback.EventProgress, playback.EventStateChanged:
			m.bus.Broadcast(notification.EventPlaybackUpdated, m.nowPlayingView())
		case playback.EventAdvanced:
			if ev.Prev != nil {
				m.bus.Broadcast(notification.EventQueueItemRemoved, newQueueItemView(*ev.Prev))
			}
			m.bus.Broadcast(notification.EventPlaybackUpdated, m.nowPlayingView())
		case playback.EventStopped:
			m.bus.Broadcast(notification.EventPlaybackStopped, nil)
		case playback.EventDisconnected:
			m.bus.Broadcast(notification.EventPlaybackStopped, nil)
			m.bus.Broadcast(notification.EventPlayerDisconnected, nil)
		}
	}
}
