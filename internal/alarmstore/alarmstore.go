// Package alarmstore persists AlarmRecords to the shared av_alarm
// table. All operations use a short-lived connection from the pool;
// duplicate primary-key inserts are logged and ignored rather than
// treated as fatal.
package alarmstore

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS av_alarm (
	alarm_id            TEXT PRIMARY KEY,
	video_path          TEXT NOT NULL,
	video_absolute_path TEXT,
	image_path          TEXT,
	desc                TEXT NOT NULL,
	state               INTEGER NOT NULL DEFAULT 0,
	create_time         TIMESTAMPTZ NOT NULL
)`

// Record is one row of av_alarm.
type Record struct {
	AlarmID           string
	VideoPath         string // relative to videoRoot
	VideoAbsolutePath string
	ImagePath         string // relative to videoRoot
	Desc              string
	State             int
	CreateTime        time.Time
}

// Store wraps a *sql.DB opened against the pgx stdlib driver.
type Store struct {
	db        *sql.DB
	videoRoot string
}

// Open connects to databaseURL (a Postgres DSN) and ensures the
// av_alarm table exists.
func Open(databaseURL, videoRoot string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening alarm store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging alarm store: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating av_alarm table: %w", err)
	}
	return &Store{db: db, videoRoot: videoRoot}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// RelativePath converts an absolute path under videoRoot into a
// forward-slash relative path: image/video paths are stored relative
// to videoRoot, always with forward slashes regardless of OS. A path
// that lies outside videoRoot is returned whole, with forward slashes.
func (s *Store) RelativePath(absPath string) string {
	rel, err := filepath.Rel(s.videoRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(absPath)
	}
	return filepath.ToSlash(rel)
}

// Insert writes r to av_alarm. A duplicate alarm_id is logged and
// treated as success, never surfaced as an error to the caller.
func (s *Store) Insert(ctx context.Context, r Record) error {
	const insertSQL = `
		INSERT INTO av_alarm (alarm_id, video_path, video_absolute_path, image_path, desc, state, create_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, insertSQL,
		r.AlarmID, r.VideoPath, r.VideoAbsolutePath, r.ImagePath, r.Desc, r.State, r.CreateTime)
	if err != nil {
		if isDuplicateError(err) {
			log.Printf("[AlarmStore] duplicate alarm_id %q ignored", r.AlarmID)
			return nil
		}
		return fmt.Errorf("inserting alarm record %s: %w", r.AlarmID, err)
	}
	return nil
}

// Get fetches one alarm record by ID.
func (s *Store) Get(ctx context.Context, alarmID string) (*Record, error) {
	const querySQL = `
		SELECT alarm_id, video_path, video_absolute_path, image_path, desc, state, create_time
		FROM av_alarm WHERE alarm_id = $1
	`
	var r Record
	var videoAbs, imagePath sql.NullString
	err := s.db.QueryRowContext(ctx, querySQL, alarmID).Scan(
		&r.AlarmID, &r.VideoPath, &videoAbs, &imagePath, &r.Desc, &r.State, &r.CreateTime)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alarm %s not found", alarmID)
		}
		return nil, fmt.Errorf("getting alarm %s: %w", alarmID, err)
	}
	r.VideoAbsolutePath = videoAbs.String
	r.ImagePath = imagePath.String
	return &r, nil
}

// List returns alarm records ordered newest-first.
func (s *Store) List(ctx context.Context, limit, offset int64) ([]Record, error) {
	const querySQL = `
		SELECT alarm_id, video_path, video_absolute_path, image_path, desc, state, create_time
		FROM av_alarm ORDER BY create_time DESC LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, querySQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing alarms: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var videoAbs, imagePath sql.NullString
		if err := rows.Scan(&r.AlarmID, &r.VideoPath, &videoAbs, &imagePath, &r.Desc, &r.State, &r.CreateTime); err != nil {
			return nil, fmt.Errorf("scanning alarm row: %w", err)
		}
		r.VideoAbsolutePath = videoAbs.String
		r.ImagePath = imagePath.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteWithFiles removes the given alarm records and their backing
// video files from disk. File-removal failures are logged but do not
// abort the DB delete; a file that is already missing is not an error.
func (s *Store) DeleteWithFiles(ctx context.Context, alarmIDs []string) (int, error) {
	deleted := 0
	for _, id := range alarmIDs {
		rec, err := s.Get(ctx, id)
		if err != nil {
			log.Printf("[AlarmStore] skipping delete of unknown alarm %s: %v", id, err)
			continue
		}

		if rec.VideoAbsolutePath != "" {
			if err := os.Remove(rec.VideoAbsolutePath); err != nil && !os.IsNotExist(err) {
				log.Printf("[AlarmStore] failed to remove clip file for %s: %v", id, err)
			}
		}

		if _, err := s.db.ExecContext(ctx, `DELETE FROM av_alarm WHERE alarm_id = $1`, id); err != nil {
			log.Printf("[AlarmStore] failed to delete row %s: %v", id, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

func isDuplicateError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
