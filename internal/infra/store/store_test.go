package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingleton/roombox/internal/domain/song"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testItem(name string) song.QueueItem {
	return song.QueueItem{
		SubmitterID: "user1",
		Song: song.Song{
			MediaRef:     "ref-" + name,
			URL:          "https://media.example/" + name,
			Name:         name,
			Artist:       "Artist",
			DurationSecs: 180,
		},
	}
}

func TestAppend_PositionsStrictlyIncreasing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var lastPos int64 = -1
	for _, name := range []string{"a", "b", "c", "d"} {
		stored, err := s.Append(ctx, testItem(name))
		require.NoError(t, err)
		assert.Equal(t, lastPos+1, stored.Position)
		lastPos = stored.Position
	}

	next, err := s.NextPosition(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
}

func TestAppend_EmptyQueueStartsAtZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.Append(ctx, testItem("first"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Position)
}

func TestFindByPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stored, err := s.Append(ctx, testItem("a"))
	require.NoError(t, err)

	got, err := s.FindByPosition(ctx, stored.Position)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "a", got.Song.Name)

	_, err = s.FindByPosition(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindNextAfter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		_, err := s.Append(ctx, testItem(name))
		require.NoError(t, err)
	}

	// Remove the middle row; next after 0 should skip to position 2.
	require.NoError(t, s.DeleteByPosition(ctx, 1))

	next, err := s.FindNextAfter(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Position)

	_, err = s.FindNextAfter(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindAtOrAfter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := s.Append(ctx, testItem(name))
		require.NoError(t, err)
	}

	// Exact match wins when the row still exists.
	got, err := s.FindAtOrAfter(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Position)

	// After the row at the cursor is gone, the next row is returned.
	require.NoError(t, s.DeleteByPosition(ctx, 0))
	got, err = s.FindAtOrAfter(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Position)

	_, err = s.FindAtOrAfter(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRangeAndListing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := s.Append(ctx, testItem(name))
		require.NoError(t, err)
	}

	upcoming, err := s.ListFrom(ctx, 2)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "c", upcoming[0].Song.Name)

	history, err := s.ListBefore(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// History is most recent first.
	assert.Equal(t, "b", history[0].Song.Name)
	assert.Equal(t, "a", history[1].Song.Name)

	require.NoError(t, s.DeleteRange(ctx, 2))
	upcoming, err = s.ListFrom(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestDeleteOlderThan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var lastID int64
	for _, name := range []string{"a", "b", "c"} {
		stored, err := s.Append(ctx, testItem(name))
		require.NoError(t, err)
		lastID = stored.ID
	}

	require.NoError(t, s.DeleteOlderThan(ctx, lastID))

	rows, err := s.ListFrom(ctx, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, lastID, rows[0].ID)
}

func TestCursorRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	pos, err := s.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)

	require.NoError(t, s.SaveCursor(ctx, 7))
	require.NoError(t, s.SaveCursor(ctx, 9))

	pos, err = s.LoadCursor(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), pos)
}

func TestPlaylistLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.CreatePlaylist(ctx, song.PlaylistInfo{OwnerID: "user1", Name: "Road trip"})
	require.NoError(t, err)

	_, err = s.CreatePlaylist(ctx, song.PlaylistInfo{OwnerID: "user2", Name: "Road trip"})
	assert.ErrorIs(t, err, ErrDuplicateName)

	require.NoError(t, s.AddPlaylistItem(ctx, id, "user1", song.Song{MediaRef: "m1", Name: "One"}))
	require.NoError(t, s.AddPlaylistItem(ctx, id, "user1", song.Song{MediaRef: "m2", Name: "Two"}))

	info, items, err := s.GetPlaylist(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Road trip", info.Name)
	require.Len(t, items, 2)
	assert.Equal(t, int64(0), items[0].Position)
	assert.Equal(t, int64(1), items[1].Position)

	// Wrong owner cannot delete.
	assert.ErrorIs(t, s.DeletePlaylist(ctx, "user2", id), ErrNotFound)
	require.NoError(t, s.DeletePlaylist(ctx, "user1", id))

	_, _, err = s.GetPlaylist(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
