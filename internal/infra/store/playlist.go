package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/domain/song"
)

// ListPlaylists returns playlist metadata, either for a single owner or
// for everyone.
func (s *Store) ListPlaylists(ctx context.Context, ownerID string, all bool) ([]song.PlaylistInfo, error) {
	query := `SELECT id, owner_id, name, description, thumbnail_url FROM playlists WHERE owner_id = ? ORDER BY name`
	args := []any{ownerID}
	if all {
		query = `SELECT id, owner_id, name, description, thumbnail_url FROM playlists ORDER BY owner_id, name`
		args = nil
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query playlists")
	}
	defer rows.Close()

	var lists []song.PlaylistInfo
	for rows.Next() {
		var p song.PlaylistInfo
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.ThumbnailURL); err != nil {
			return nil, errors.Wrap(err, "failed to scan playlist row")
		}
		lists = append(lists, p)
	}
	return lists, errors.Wrap(rows.Err(), "failed to iterate playlists")
}

// GetPlaylist returns a playlist's metadata and its items in order.
func (s *Store) GetPlaylist(ctx context.Context, id int64) (song.PlaylistInfo, []song.PlaylistItem, error) {
	var p song.PlaylistInfo
	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, thumbnail_url FROM playlists WHERE id = ?`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.ThumbnailURL)
	if errors.Is(err, sql.ErrNoRows) {
		return song.PlaylistInfo{}, nil, ErrNotFound
	}
	if err != nil {
		return song.PlaylistInfo{}, nil, errors.Wrap(err, "failed to query playlist")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, position, owner_id, media_ref, url, name, artist, duration, thumbnail_url
		 FROM playlist_items WHERE playlist_id = ? ORDER BY position`, id)
	if err != nil {
		return song.PlaylistInfo{}, nil, errors.Wrap(err, "failed to query playlist items")
	}
	defer rows.Close()

	var items []song.PlaylistItem
	for rows.Next() {
		var it song.PlaylistItem
		if err := rows.Scan(&it.ID, &it.Position, &it.OwnerID,
			&it.Song.MediaRef, &it.Song.URL, &it.Song.Name, &it.Song.Artist,
			&it.Song.DurationSecs, &it.Song.ThumbnailURL); err != nil {
			return song.PlaylistInfo{}, nil, errors.Wrap(err, "failed to scan playlist item")
		}
		items = append(items, it)
	}
	return p, items, errors.Wrap(rows.Err(), "failed to iterate playlist items")
}

// CreatePlaylist stores a new playlist. Names are unique across users.
func (s *Store) CreatePlaylist(ctx context.Context, p song.PlaylistInfo) (int64, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlists WHERE name = ?`, p.Name).Scan(&exists)
	if err != nil {
		return 0, errors.Wrap(err, "failed to check playlist name")
	}
	if exists > 0 {
		return 0, ErrDuplicateName
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (owner_id, name, description, thumbnail_url) VALUES (?, ?, ?, ?)`,
		p.OwnerID, p.Name, p.Description, p.ThumbnailURL)
	if err != nil {
		return 0, errors.Wrap(err, "failed to insert playlist")
	}
	id, err := res.LastInsertId()
	return id, errors.Wrap(err, "failed to read playlist id")
}

// UpdatePlaylist updates a playlist's metadata. Only the owner may edit.
func (s *Store) UpdatePlaylist(ctx context.Context, p song.PlaylistInfo) error {
	var conflict int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playlists WHERE name = ? AND id != ?`, p.Name, p.ID).Scan(&conflict)
	if err != nil {
		return errors.Wrap(err, "failed to check playlist name")
	}
	if conflict > 0 {
		return ErrDuplicateName
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE playlists SET name = ?, description = ?, thumbnail_url = ? WHERE id = ? AND owner_id = ?`,
		p.Name, p.Description, p.ThumbnailURL, p.ID, p.OwnerID)
	if err != nil {
		return errors.Wrap(err, "failed to update playlist")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlaylist removes a playlist and its items. Only the owner may delete.
func (s *Store) DeletePlaylist(ctx context.Context, ownerID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM playlists WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return errors.Wrap(err, "failed to delete playlist")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddPlaylistItem appends a song to a playlist.
func (s *Store) AddPlaylistItem(ctx context.Context, playlistID int64, ownerID string, sg song.Song) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var pos int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM playlist_items WHERE playlist_id = ?`,
		playlistID).Scan(&pos); err != nil {
		return errors.Wrap(err, "failed to assign playlist position")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO playlist_items (playlist_id, position, owner_id, media_ref, url, name, artist, duration, thumbnail_url)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		playlistID, pos, ownerID, sg.MediaRef, sg.URL, sg.Name, sg.Artist,
		sg.DurationSecs, sg.ThumbnailURL); err != nil {
		return errors.Wrap(err, "failed to insert playlist item")
	}

	return errors.Wrap(tx.Commit(), "failed to commit playlist item")
}

// RemovePlaylistItem removes an item by id from a playlist.
func (s *Store) RemovePlaylistItem(ctx context.Context, playlistID, itemID int64, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM playlist_items WHERE id = ? AND playlist_id = ? AND owner_id = ?`,
		itemID, playlistID, ownerID)
	if err != nil {
		return errors.Wrap(err, "failed to delete playlist item")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
