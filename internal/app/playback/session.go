package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/app/queue"
	"github.com/mingleton/roombox/internal/domain/song"
)

// Errors
var (
	ErrAlreadyActive  = errors.New("a session is already active")
	ErrNothingQueued  = errors.New("nothing to play at the current position")
	ErrNotActive      = errors.New("no active session")
	ErrNotPlaying     = errors.New("not playing")
	ErrNotPaused      = errors.New("not paused")
	ErrQueueExhausted = errors.New("queue exhausted")
)

// Config holds session configuration.
type Config struct {
	DisconnectGrace time.Duration // How long a lost transport may recover before the session ends
	TickInterval    time.Duration // Progress tick period
}

// Session is the room's single playback session. At most one item is
// bound at a time, and every mutation runs under the session mutex, so
// observers never see a half-applied transition.
type Session struct {
	mu sync.RWMutex

	queue     *queue.Manager
	transport Transport
	config    Config

	status  Status
	current *song.QueueItem
	elapsed int // Whole seconds played of the bound item
	target  string

	// Timers
	tickCancel  func() // Cancel function for the progress ticker
	graceCancel func() // Cancel function for the disconnect grace timer

	// Events
	eventCh chan Event

	// Context
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a playback session over the given queue and
// transport and starts consuming transport lifecycle events.
func NewSession(q *queue.Manager, t Transport, config Config) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		queue:     q,
		transport: t,
		config:    config,
		status:    StatusIdle,
		eventCh:   make(chan Event, 32),
		ctx:       ctx,
		cancel:    cancel,
	}
	go s.consumeTransportEvents()
	return s
}

// Events returns the session event channel.
func (s *Session) Events() <-chan Event {
	return s.eventCh
}

// Begin starts playback at the cursor. Only valid from idle; a session
// that is already active must be stopped first.
func (s *Session) Begin(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusIdle {
		return ErrAlreadyActive
	}

	item, err := s.queue.BindCurrent(ctx)
	if errors.Is(err, queue.ErrEmptyQueue) {
		return ErrNothingQueued
	}
	if err != nil {
		return errors.Wrap(err, "failed to bind current item")
	}

	s.status = StatusStarting
	s.current = &item
	s.elapsed = 0
	s.target = target

	if err := s.transport.Connect(ctx, target); err != nil {
		s.resetLocked()
		return errors.Wrap(err, "failed to connect transport")
	}
	if err := s.transport.Stream(ctx, item.Song.MediaRef); err != nil {
		_ = s.transport.Teardown()
		s.resetLocked()
		return errors.Wrap(err, "failed to start stream")
	}

	zlog.Info().Msgf("playback: session starting: target=%s name=%s", target, item.Song.Name)
	return nil
}

// Pause suspends the current stream. Elapsed time freezes until Resume.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return ErrNotPlaying
	}

	if err := s.transport.Pause(); err != nil {
		return errors.Wrap(err, "failed to pause transport")
	}

	s.stopTickLocked()
	s.status = StatusPaused

	s.sendEventLocked(Event{
		Type:    EventStateChanged,
		Item:    s.current,
		Elapsed: s.elapsed,
		Status:  s.status,
	})
	return nil
}

// Resume continues a paused stream from where it left off.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPaused {
		return ErrNotPaused
	}

	if err := s.transport.Unpause(); err != nil {
		return errors.Wrap(err, "failed to unpause transport")
	}

	s.status = StatusPlaying
	s.startTickLocked()

	s.sendEventLocked(Event{
		Type:    EventStateChanged,
		Item:    s.current,
		Elapsed: s.elapsed,
		Status:  s.status,
	})
	return nil
}

// Skip abandons the current item and advances to the next one. When
// the queue is exhausted the session stops and ErrQueueExhausted is
// returned so callers can tell the two outcomes apart.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying && s.status != StatusPaused {
		return ErrNotActive
	}
	return s.skipLocked()
}

// Stop ends the session, clears the upcoming queue including the
// current item, resets the loop flag and tears down the transport.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusIdle {
		return ErrNotActive
	}

	if err := s.queue.Clear(s.ctx); err != nil {
		zlog.Error().Msgf("playback: failed to clear queue on stop: %v", err)
	}
	s.stopLocked()

	s.sendEventLocked(Event{
		Type:   EventStopped,
		Status: s.status,
	})
	return nil
}

// Status returns the current playback status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Current returns the item bound to the session, if any.
func (s *Session) Current() (*song.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// Elapsed returns whole seconds played of the bound item.
func (s *Session) Elapsed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsed
}

// Close shuts the session down and releases resources.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopTickLocked()
	s.stopGraceLocked()
	if s.status != StatusIdle {
		_ = s.transport.Teardown()
	}
	s.resetLocked()
	// Cancel while still holding the lock so no late handler can
	// reach the event channel after it closes.
	s.cancel()
	s.mu.Unlock()

	close(s.eventCh)
}

// skipLocked advances the cursor and rebinds the session to the next
// item. End-of-stream advancement uses the same path as a manual skip.
// Must be called with lock held.
func (s *Session) skipLocked() error {
	prev := s.current

	next, err := s.queue.Advance(s.ctx)
	if errors.Is(err, queue.ErrEmptyQueue) {
		if err := s.queue.Clear(s.ctx); err != nil {
			zlog.Error().Msgf("playback: failed to clear queue after exhaustion: %v", err)
		}
		s.stopLocked()
		s.sendEventLocked(Event{
			Type:   EventStopped,
			Status: s.status,
		})
		return ErrQueueExhausted
	}
	if err != nil {
		return errors.Wrap(err, "failed to advance queue")
	}

	s.stopTickLocked()
	s.status = StatusStarting
	s.current = &next
	s.elapsed = 0

	if err := s.transport.Stream(s.ctx, next.Song.MediaRef); err != nil {
		s.stopLocked()
		s.sendEventLocked(Event{
			Type:   EventStopped,
			Status: s.status,
		})
		return errors.Wrap(err, "failed to start stream")
	}

	s.sendEventLocked(Event{
		Type:   EventAdvanced,
		Item:   &next,
		Prev:   prev,
		Status: s.status,
	})

	zlog.Debug().Msgf("playback: advanced: position=%d name=%s", next.Position, next.Song.Name)
	return nil
}

// stopLocked tears the transport down and returns the session to idle.
// Must be called with lock held.
func (s *Session) stopLocked() {
	s.status = StatusStopping
	s.stopTickLocked()
	s.stopGraceLocked()

	if err := s.transport.Teardown(); err != nil {
		zlog.Warn().Msgf("playback: transport teardown failed: %v", err)
	}
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.current = nil
	s.elapsed = 0
	s.target = ""
	s.status = StatusIdle
}

// consumeTransportEvents drives the state machine from transport
// lifecycle events.
func (s *Session) consumeTransportEvents() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case ev, ok := <-s.transport.Events():
			if !ok {
				return
			}
			s.handleTransportEvent(ev)
		}
	}
}

func (s *Session) handleTransportEvent(ev TransportEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case TransportStreaming:
		s.onStreamingLocked()
	case TransportStreamEnded:
		s.onStreamEndedLocked()
	case TransportDisconnected:
		s.onDisconnectedLocked(ev.Err)
	case TransportReconnecting:
		s.onReconnectingLocked()
	}
}

func (s *Session) onStreamingLocked() {
	// Audio flowing means the connection recovered as well.
	s.stopGraceLocked()

	if s.status != StatusStarting {
		return
	}

	s.status = StatusPlaying
	s.startTickLocked()

	s.sendEventLocked(Event{
		Type:    EventStarted,
		Item:    s.current,
		Elapsed: s.elapsed,
		Status:  s.status,
	})
}

func (s *Session) onStreamEndedLocked() {
	if s.status != StatusPlaying && s.status != StatusStarting {
		return
	}

	if err := s.skipLocked(); err != nil && !errors.Is(err, ErrQueueExhausted) {
		zlog.Error().Msgf("playback: failed to advance after stream end: %v", err)
	}
}

// onDisconnectedLocked arms the grace timer. The session survives if
// the transport reports recovery before the timer fires; otherwise the
// session ends as if stopped.
func (s *Session) onDisconnectedLocked(cause error) {
	if s.status == StatusIdle || s.status == StatusStopping {
		return
	}
	if s.graceCancel != nil {
		return
	}

	zlog.Warn().Msgf("playback: transport disconnected, grace window %v: cause=%v", s.config.DisconnectGrace, cause)

	s.graceCancel = s.startTimer(s.config.DisconnectGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.graceCancel = nil
		if s.status == StatusIdle {
			return
		}

		zlog.Warn().Msg("playback: transport did not recover, abandoning session")

		if err := s.queue.Clear(s.ctx); err != nil {
			zlog.Error().Msgf("playback: failed to clear queue on disconnect: %v", err)
		}
		s.stopLocked()

		s.sendEventLocked(Event{
			Type:   EventDisconnected,
			Status: s.status,
		})
	})
}

func (s *Session) onReconnectingLocked() {
	if s.graceCancel == nil {
		return
	}

	zlog.Info().Msg("playback: transport recovering, grace timer cancelled")
	s.stopGraceLocked()
}

// startTickLocked starts the progress ticker.
// Must be called with lock held.
func (s *Session) startTickLocked() {
	s.stopTickLocked()

	ctx, cancel := context.WithCancel(s.ctx)
	s.tickCancel = cancel

	go func() {
		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.onTick()
			}
		}
	}()
}

func (s *Session) onTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPlaying {
		return
	}

	s.elapsed++
	s.sendEventLocked(Event{
		Type:    EventProgress,
		Item:    s.current,
		Elapsed: s.elapsed,
		Status:  s.status,
	})
}

func (s *Session) stopTickLocked() {
	if s.tickCancel != nil {
		s.tickCancel()
		s.tickCancel = nil
	}
}

func (s *Session) stopGraceLocked() {
	if s.graceCancel != nil {
		s.graceCancel()
		s.graceCancel = nil
	}
}

// startTimer triggers callback after duration unless cancelled.
// Returns a cancel function.
func (s *Session) startTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(s.ctx)

	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(duration):
			callback()
		}
	}()

	return cancel
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (s *Session) sendEventLocked(e Event) {
	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.eventCh <- e:
		// Successfully sent
	default:
		// Channel full, drop event
	}
}
