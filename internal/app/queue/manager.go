// Package queue provides the queue manager, the sole owner of the
// position cursor and the loop flag.
package queue

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mingleton/roombox/internal/domain/song"
	"github.com/mingleton/roombox/internal/infra/store"
)

// Errors
var (
	ErrEmptyQueue     = errors.New("no upcoming items in the queue")
	ErrNoCurrentItem  = errors.New("no item at the current position")
	ErrItemNotFound   = errors.New("no item at that position")
	ErrCurrentlyBound = errors.New("cannot remove the item at the cursor")
)

// Store is the durable queue storage consumed by the manager.
// Implementations report missing rows with store.ErrNotFound.
type Store interface {
	Append(ctx context.Context, item song.QueueItem) (song.QueueItem, error)
	DeleteOlderThan(ctx context.Context, idThreshold int64) error
	DeleteRange(ctx context.Context, fromPos int64) error
	DeleteByPosition(ctx context.Context, pos int64) error
	FindByPosition(ctx context.Context, pos int64) (song.QueueItem, error)
	FindAtOrAfter(ctx context.Context, pos int64) (song.QueueItem, error)
	FindNextAfter(ctx context.Context, pos int64) (song.QueueItem, error)
	ListFrom(ctx context.Context, pos int64) ([]song.QueueItem, error)
	ListBefore(ctx context.Context, pos int64) ([]song.QueueItem, error)
	LoadCursor(ctx context.Context) (int64, error)
	SaveCursor(ctx context.Context, pos int64) error
}

// Manager owns the cursor separating history from upcoming items.
// The cursor survives restarts; the loop flag does not.
type Manager struct {
	mu sync.RWMutex

	store  Store
	window int64 // retention window in ids

	pos  int64
	loop bool
}

// NewManager creates a queue manager, loading the persisted cursor.
func NewManager(ctx context.Context, st Store, retentionWindow int64) (*Manager, error) {
	pos, err := st.LoadCursor(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load cursor")
	}
	return &Manager{
		store:  st,
		window: retentionWindow,
		pos:    pos,
	}, nil
}

// Enqueue stores a song at the tail of the queue and applies the
// retention policy. Position assignment is atomic in the store.
func (m *Manager) Enqueue(ctx context.Context, sg song.Song, submitterID string) (song.QueueItem, error) {
	stored, err := m.store.Append(ctx, song.QueueItem{
		SubmitterID: submitterID,
		Song:        sg,
	})
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to enqueue item")
	}

	// Best effort; a failed sweep only delays history cleanup.
	if err := m.store.DeleteOlderThan(ctx, stored.ID-m.window); err != nil {
		zlog.Warn().Msgf("queue: retention sweep failed: %v", err)
	}

	zlog.Debug().Msgf("queue: item enqueued: id=%d position=%d name=%s", stored.ID, stored.Position, stored.Song.Name)
	return stored, nil
}

// Dequeue removes the item at the given position. The item at the
// cursor cannot be removed this way; only Advance moves the cursor.
func (m *Manager) Dequeue(ctx context.Context, pos int64) (song.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pos == m.pos {
		return song.QueueItem{}, ErrCurrentlyBound
	}

	item, err := m.store.FindByPosition(ctx, pos)
	if errors.Is(err, store.ErrNotFound) {
		return song.QueueItem{}, ErrItemNotFound
	}
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to look up item")
	}

	if err := m.store.DeleteByPosition(ctx, pos); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return song.QueueItem{}, ErrItemNotFound
		}
		return song.QueueItem{}, errors.Wrap(err, "failed to remove item")
	}
	return item, nil
}

// PeekCurrent returns the item at the cursor.
func (m *Manager) PeekCurrent(ctx context.Context) (song.QueueItem, error) {
	m.mu.RLock()
	pos := m.pos
	m.mu.RUnlock()

	item, err := m.store.FindByPosition(ctx, pos)
	if errors.Is(err, store.ErrNotFound) {
		return song.QueueItem{}, ErrNoCurrentItem
	}
	return item, errors.Wrap(err, "failed to look up current item")
}

// BindCurrent returns the first item at or after the cursor and moves
// the cursor onto it. After a stop emptied the positions around the
// cursor, this lands on whatever was enqueued since.
func (m *Manager) BindCurrent(ctx context.Context) (song.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.store.FindAtOrAfter(ctx, m.pos)
	if errors.Is(err, store.ErrNotFound) {
		return song.QueueItem{}, ErrEmptyQueue
	}
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to find playable item")
	}

	if item.Position != m.pos {
		if err := m.store.SaveCursor(ctx, item.Position); err != nil {
			return song.QueueItem{}, errors.Wrap(err, "failed to persist cursor")
		}
		m.pos = item.Position
	}
	return item, nil
}

// ListUpcoming returns items at or after the cursor, in play order.
func (m *Manager) ListUpcoming(ctx context.Context) ([]song.QueueItem, error) {
	m.mu.RLock()
	pos := m.pos
	m.mu.RUnlock()
	items, err := m.store.ListFrom(ctx, pos)
	return items, errors.Wrap(err, "failed to list upcoming items")
}

// ListHistory returns items before the cursor, most recent first.
func (m *Manager) ListHistory(ctx context.Context) ([]song.QueueItem, error) {
	m.mu.RLock()
	pos := m.pos
	m.mu.RUnlock()
	items, err := m.store.ListBefore(ctx, pos)
	return items, errors.Wrap(err, "failed to list history")
}

// Advance moves the cursor to the smallest position after it.
//
// With the loop flag set, the item being left behind is first
// re-enqueued at the tail, so a single looping item cycles forever.
// The cursor is only persisted after the target row is confirmed to
// exist; on ErrEmptyQueue the cursor is unchanged.
func (m *Manager) Advance(ctx context.Context) (song.QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loop {
		if cur, err := m.store.FindByPosition(ctx, m.pos); err == nil {
			if _, err := m.store.Append(ctx, song.QueueItem{
				SubmitterID: cur.SubmitterID,
				Song:        cur.Song,
			}); err != nil {
				return song.QueueItem{}, errors.Wrap(err, "failed to re-enqueue looping item")
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return song.QueueItem{}, errors.Wrap(err, "failed to look up looping item")
		}
	}

	next, err := m.store.FindNextAfter(ctx, m.pos)
	if errors.Is(err, store.ErrNotFound) {
		return song.QueueItem{}, ErrEmptyQueue
	}
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to find next item")
	}

	if err := m.store.SaveCursor(ctx, next.Position); err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to persist cursor")
	}
	m.pos = next.Position

	zlog.Debug().Msgf("queue: advanced: position=%d name=%s", next.Position, next.Song.Name)
	return next, nil
}

// Clear removes everything at or after the cursor and resets the loop
// flag. History stays untouched.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.DeleteRange(ctx, m.pos); err != nil {
		return errors.Wrap(err, "failed to clear upcoming items")
	}
	m.loop = false
	return nil
}

// CurrentPosition returns the cursor.
func (m *Manager) CurrentPosition() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pos
}

// SetLoop sets the loop flag and returns the new value.
func (m *Manager) SetLoop(v bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loop = v
	return m.loop
}

// GetLoop returns the loop flag.
func (m *Manager) GetLoop() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loop
}
