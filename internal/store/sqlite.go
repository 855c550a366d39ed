package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gilbertyin/Jurni/internal/domain"
)

// SQLiteStore implements VideoStore on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS videos (
	id             TEXT PRIMARY KEY,
	url            TEXT NOT NULL,
	submitted_by   TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	duration       INTEGER NOT NULL DEFAULT 0,
	uploader       TEXT NOT NULL DEFAULT '',
	upload_date    TEXT NOT NULL DEFAULT '',
	view_count     INTEGER NOT NULL DEFAULT 0,
	like_count     INTEGER NOT NULL DEFAULT 0,
	comment_count  INTEGER NOT NULL DEFAULT 0,
	venue_name     TEXT NOT NULL DEFAULT '',
	country_name   TEXT NOT NULL DEFAULT '',
	city_name      TEXT NOT NULL DEFAULT '',
	gemini_analysis TEXT,
	latitude       REAL,
	longitude      REAL,
	created_at     INTEGER NOT NULL,
	processing_at  INTEGER,
	processed_at   INTEGER,
	last_error     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_videos_status ON videos(status);
`

// OpenSQLite opens (creating if needed) the store at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The pipeline writes from multiple goroutines; a single connection
	// avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts a new record.
func (s *SQLiteStore) Create(ctx context.Context, video *domain.Video) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (id, url, submitted_by, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		video.ID.String(), video.URL, video.SubmittedBy, string(video.Status),
		video.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// Get retrieves a record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id domain.VideoID) (*domain.Video, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id.String())
	return scanVideo(row)
}

// List returns records, optionally filtered by status, newest first.
func (s *SQLiteStore) List(ctx context.Context, status *domain.Status, limit, offset int) ([]*domain.Video, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectColumns
	args := []any{}
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetStatus writes a lifecycle transition, enforcing the state machine
// inside a transaction so concurrent writers cannot race a record past a
// terminal state.
func (s *SQLiteStore) SetStatus(ctx context.Context, id domain.VideoID, status domain.Status) error {
	return s.transition(ctx, id, status, "")
}

// MarkFailed transitions the record to failed and records the reason.
func (s *SQLiteStore) MarkFailed(ctx context.Context, id domain.VideoID, reason string) error {
	return s.transition(ctx, id, domain.StatusFailed, reason)
}

func (s *SQLiteStore) transition(ctx context.Context, id domain.VideoID, status domain.Status, reason string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM videos WHERE id = ?`, id.String()).Scan(&current)
	if err == sql.ErrNoRows {
		return domain.ErrVideoNotFound
	}
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}

	if !domain.Status(current).CanTransition(status) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current, status)
	}

	if status.Terminal() {
		_, err = tx.ExecContext(ctx,
			`UPDATE videos SET status = ?, last_error = ?, processed_at = ? WHERE id = ?`,
			string(status), reason, time.Now().UnixNano(), id.String(),
		)
	} else {
		// The only non-terminal transition target is processing; stamp
		// the claim time so the stale reaper measures work, not queue wait.
		_, err = tx.ExecContext(ctx,
			`UPDATE videos SET status = ?, processing_at = ? WHERE id = ?`,
			string(status), time.Now().UnixNano(), id.String(),
		)
	}
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	return tx.Commit()
}

// PersistResults writes metadata, the analysis blob, and coordinates in
// one update.
func (s *SQLiteStore) PersistResults(ctx context.Context, id domain.VideoID, md domain.Metadata, analysis domain.VenueAnalysis, coords domain.Coordinates) error {
	blob, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	lat := sql.NullFloat64{}
	lng := sql.NullFloat64{}
	if !coords.IsNull() {
		lat = sql.NullFloat64{Float64: *coords.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: *coords.Longitude, Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET
			title = ?, description = ?, duration = ?, uploader = ?, upload_date = ?,
			view_count = ?, like_count = ?, comment_count = ?,
			venue_name = ?, country_name = ?, city_name = ?,
			gemini_analysis = ?, latitude = ?, longitude = ?
		WHERE id = ?`,
		md.Title, md.Description, md.Duration, md.Uploader, md.UploadDate,
		md.ViewCount, md.LikeCount, md.CommentCount,
		analysis.VenueName, analysis.CountryName, analysis.CityName,
		string(blob), lat, lng,
		id.String(),
	)
	if err != nil {
		return fmt.Errorf("persist results: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return domain.ErrVideoNotFound
	}
	return nil
}

// ResetStale marks records claimed into processing before cutoff as
// failed. Staleness is measured from processing_at, so a record that sat
// queued for a long time is not reaped the moment a worker picks it up.
func (s *SQLiteStore) ResetStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE videos SET status = ?, last_error = 'orphaned by worker restart', processed_at = ?
		 WHERE status = ? AND processing_at < ?`,
		string(domain.StatusFailed),
		time.Now().UnixNano(),
		string(domain.StatusProcessing),
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT id, url, submitted_by, status,
	title, description, duration, uploader, upload_date,
	view_count, like_count, comment_count,
	venue_name, country_name, city_name,
	gemini_analysis, latitude, longitude,
	created_at, processed_at, last_error
FROM videos`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*domain.Video, error) {
	var (
		v           domain.Video
		id, status  string
		analysis    sql.NullString
		lat, lng    sql.NullFloat64
		createdAt   int64
		processedAt sql.NullInt64
	)

	err := row.Scan(
		&id, &v.URL, &v.SubmittedBy, &status,
		&v.Metadata.Title, &v.Metadata.Description, &v.Metadata.Duration,
		&v.Metadata.Uploader, &v.Metadata.UploadDate,
		&v.Metadata.ViewCount, &v.Metadata.LikeCount, &v.Metadata.CommentCount,
		&v.VenueName, &v.CountryName, &v.CityName,
		&analysis, &lat, &lng,
		&createdAt, &processedAt, &v.LastError,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan video: %w", err)
	}

	v.ID = domain.VideoID(id)
	v.Status = domain.Status(status)
	if analysis.Valid {
		v.Analysis = json.RawMessage(analysis.String)
	}
	if lat.Valid && lng.Valid {
		v.Latitude = &lat.Float64
		v.Longitude = &lng.Float64
	}
	v.CreatedAt = time.Unix(0, createdAt)
	if processedAt.Valid {
		t := time.Unix(0, processedAt.Int64)
		v.ProcessedAt = &t
	}

	return &v, nil
}
