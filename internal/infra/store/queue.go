package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mingleton/roombox/internal/domain/song"
)

// Append stores a new queue item, assigning the next free position
// inside a single transaction so concurrent enqueues never collide.
// Returns the stored item with its id and position filled in.
func (s *Store) Append(ctx context.Context, item song.QueueItem) (song.QueueItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var pos int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM queue`,
	).Scan(&pos); err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to assign position")
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO queue (position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pos, item.SubmitterID, item.Song.MediaRef, item.Song.URL, item.Song.Name,
		item.Song.Artist, item.Song.DurationSecs, item.Song.ThumbnailURL, item.AddedAt.Unix(),
	)
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to insert queue row")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to read inserted id")
	}

	if err := tx.Commit(); err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to commit enqueue")
	}

	item.ID = id
	item.Position = pos
	return item, nil
}

// DeleteOlderThan removes queue rows whose id is below the threshold.
func (s *Store) DeleteOlderThan(ctx context.Context, idThreshold int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE id < ?`, idThreshold)
	return errors.Wrap(err, "failed to delete old queue rows")
}

// DeleteRange removes all queue rows at or after fromPos.
func (s *Store) DeleteRange(ctx context.Context, fromPos int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE position >= ?`, fromPos)
	return errors.Wrap(err, "failed to delete queue range")
}

// DeleteByPosition removes the queue row at the given position.
// Returns ErrNotFound if no row occupies it.
func (s *Store) DeleteByPosition(ctx context.Context, pos int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE position = ?`, pos)
	if err != nil {
		return errors.Wrap(err, "failed to delete queue row")
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

// FindByPosition returns the queue item at the given position.
func (s *Store) FindByPosition(ctx context.Context, pos int64) (song.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE position = ?`, pos)
	return scanQueueItem(row)
}

// FindByID returns the queue item with the given id.
func (s *Store) FindByID(ctx context.Context, id int64) (song.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE id = ?`, id)
	return scanQueueItem(row)
}

// FindNextAfter returns the queue item at the smallest position
// strictly greater than pos.
func (s *Store) FindNextAfter(ctx context.Context, pos int64) (song.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE position > ? ORDER BY position LIMIT 1`, pos)
	return scanQueueItem(row)
}

// FindAtOrAfter returns the queue item with the smallest position at or
// after pos, or ErrNotFound.
func (s *Store) FindAtOrAfter(ctx context.Context, pos int64) (song.QueueItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE position >= ? ORDER BY position LIMIT 1`, pos)
	return scanQueueItem(row)
}

// ListFrom returns queue items at or after pos in ascending position order.
func (s *Store) ListFrom(ctx context.Context, pos int64) ([]song.QueueItem, error) {
	return s.list(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE position >= ? ORDER BY position`, pos)
}

// ListBefore returns queue items strictly before pos in descending
// position order (most recent history first).
func (s *Store) ListBefore(ctx context.Context, pos int64) ([]song.QueueItem, error) {
	return s.list(ctx,
		`SELECT id, position, submitter_id, media_ref, url, name, artist, duration, thumbnail_url, added_at
		 FROM queue WHERE position < ? ORDER BY position DESC`, pos)
}

// NextPosition returns the position the next Append would assign.
func (s *Store) NextPosition(ctx context.Context) (int64, error) {
	var pos int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM queue`).Scan(&pos)
	if err != nil {
		return 0, errors.Wrap(err, "failed to query next position")
	}
	return pos, nil
}

// LoadCursor returns the persisted current position, or 0 if the cursor
// has never been saved.
func (s *Store) LoadCursor(ctx context.Context) (int64, error) {
	var pos int64
	err := s.db.QueryRowContext(ctx, `SELECT position FROM cursor WHERE id = 1`).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to load cursor")
	}
	return pos, nil
}

// SaveCursor persists the current position.
func (s *Store) SaveCursor(ctx context.Context, pos int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cursor (id, position) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET position = excluded.position`, pos)
	return errors.Wrap(err, "failed to save cursor")
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]song.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query queue rows")
	}
	defer rows.Close()

	var items []song.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, errors.Wrap(rows.Err(), "failed to iterate queue rows")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (song.QueueItem, error) {
	var (
		item    song.QueueItem
		addedAt int64
	)
	err := row.Scan(
		&item.ID, &item.Position, &item.SubmitterID,
		&item.Song.MediaRef, &item.Song.URL, &item.Song.Name, &item.Song.Artist,
		&item.Song.DurationSecs, &item.Song.ThumbnailURL, &addedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return song.QueueItem{}, ErrNotFound
	}
	if err != nil {
		return song.QueueItem{}, errors.Wrap(err, "failed to scan queue row")
	}
	item.AddedAt = time.Unix(addedAt, 0)
	return item, nil
}
