package playlist

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingleton/roombox/internal/domain/song"
	"github.com/mingleton/roombox/internal/infra/store"
)

// recordingEnqueuer stands in for the room facade and records every
// song handed to it, in order.
type recordingEnqueuer struct {
	items []song.QueueItem
}

func (e *recordingEnqueuer) AddResolved(_ context.Context, submitterID string, sg song.Song) (song.QueueItem, error) {
	item := song.QueueItem{
		ID:          int64(len(e.items) + 1),
		Position:    int64(len(e.items)),
		SubmitterID: submitterID,
		Song:        sg,
	}
	e.items = append(e.items, item)
	return item, nil
}

func newTestService(t *testing.T) (*Service, *recordingEnqueuer) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "playlist.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	enq := &recordingEnqueuer{}
	return NewService(st, enq), enq
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

func TestServiceCreateAndGet(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "user-1", "road trip", "songs for the car", "")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	info, items, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "road trip", info.Name)
	assert.Equal(t, "user-1", info.OwnerID)
	assert.Empty(t, items)

	_, _, err = s.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCreateValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "user-1", "", "", "")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = s.Create(ctx, "user-1", "dupe", "", "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "user-2", "dupe", "", "")
	assert.ErrorIs(t, err, ErrNameTaken)

	// Over-long fields are truncated, not rejected.
	longName := strings.Repeat("n", 80)
	longDesc := strings.Repeat("d", 400)
	created, err := s.Create(ctx, "user-1", longName, longDesc, "")
	require.NoError(t, err)
	assert.Len(t, created.Name, 50)
	assert.Len(t, created.Description, 300)

	// Truncation never splits a multi-byte character.
	wideName := strings.Repeat("世", 30)
	created, err = s.Create(ctx, "user-1", wideName, "", "")
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(created.Name))
	assert.LessOrEqual(t, len(created.Name), maxNameLen)
	assert.Equal(t, strings.Repeat("世", 16), created.Name)
}

func TestServiceUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "user-1", "mine", "", "")
	require.NoError(t, err)

	err = s.Update(ctx, "user-2", created.ID, "stolen", "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Update(ctx, "user-1", created.ID, "renamed", "new words", ""))
	info, _, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", info.Name)

	assert.ErrorIs(t, s.Delete(ctx, "user-2", created.ID), ErrNotFound)
	require.NoError(t, s.Delete(ctx, "user-1", created.ID))
	_, _, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceItems(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "user-1", "mine", "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddItem(ctx, "user-1", 9999, testSong("a")), ErrNotFound)

	require.NoError(t, s.AddItem(ctx, "user-1", created.ID, testSong("a")))
	require.NoError(t, s.AddItem(ctx, "user-1", created.ID, testSong("b")))

	_, items, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Song.Name)
	assert.Equal(t, "b", items[1].Song.Name)

	assert.ErrorIs(t, s.RemoveItem(ctx, "user-2", created.ID, items[0].ID), ErrNotFound)
	require.NoError(t, s.RemoveItem(ctx, "user-1", created.ID, items[0].ID))

	_, items, err = s.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b", items[0].Song.Name)
}

func TestServiceEnqueueAllRoutesThroughRoom(t *testing.T) {
	s, enq := newTestService(t)
	ctx := context.Background()

	created, err := s.Create(ctx, "user-1", "mine", "", "")
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.AddItem(ctx, "user-1", created.ID, testSong(name)))
	}

	enqueued, err := s.EnqueueAll(ctx, "user-2", created.ID)
	require.NoError(t, err)
	require.Len(t, enqueued, 3)
	assert.Equal(t, "user-2", enqueued[0].SubmitterID)

	// Every item went through the room facade, in playlist order, so
	// each one is announced to observers.
	require.Len(t, enq.items, 3)
	assert.Equal(t, "a", enq.items[0].Song.Name)
	assert.Equal(t, "c", enq.items[2].Song.Name)
}
