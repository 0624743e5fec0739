package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/codeGROOVE-dev/threadsift/comment"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	url               TEXT NOT NULL,
	platform          TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL,
	error             TEXT NOT NULL DEFAULT '',
	comment_count     INTEGER NOT NULL DEFAULT 0,
	participant_count INTEGER NOT NULL DEFAULT 0,
	signal_count      INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMP NOT NULL,
	updated_at        TIMESTAMP NOT NULL,
	completed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS participants (
	session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	username       TEXT NOT NULL,
	display_name   TEXT NOT NULL,
	profile_url    TEXT NOT NULL,
	snippet        TEXT NOT NULL,
	comment_count  INTEGER NOT NULL,
	PRIMARY KEY (session_id, position)
);

CREATE TABLE IF NOT EXISTS signals (
	session_id           TEXT NOT NULL,
	participant_position INTEGER NOT NULL,
	position             INTEGER NOT NULL,
	value                TEXT NOT NULL,
	kind                 TEXT NOT NULL,
	source               TEXT NOT NULL,
	confidence           INTEGER NOT NULL,
	is_primary           INTEGER NOT NULL,
	PRIMARY KEY (session_id, participant_position, position),
	FOREIGN KEY (session_id, participant_position)
		REFERENCES participants(session_id, position) ON DELETE CASCADE
);
`

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("create session schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// Create registers a new PROCESSING session.
func (s *SQLite) Create(ctx context.Context, url string) (Record, error) {
	now := time.Now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, url, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Status, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return Record{}, fmt.Errorf("create session: %w", err)
	}
	return rec, nil
}

// Complete transitions a session to COMPLETED and stores its results in
// a single transaction, so a failure leaves the session untouched.
func (s *SQLite) Complete(ctx context.Context, id string, outcome *comment.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, platform = ?, comment_count = ?, participant_count = ?, signal_count = ?, updated_at = ?, completed_at = ? WHERE id = ?`,
		StatusCompleted, outcome.Platform, outcome.Comments, len(outcome.Participants), outcome.SignalsFound, now, now, id)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	for pi, p := range outcome.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO participants (session_id, position, username, display_name, profile_url, snippet, comment_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, pi, p.Username, p.DisplayName, p.ProfileURL, p.CommentSnippet, p.CommentCount); err != nil {
			return fmt.Errorf("store participant: %w", err)
		}
		for si, sig := range p.Signals {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO signals (session_id, participant_position, position, value, kind, source, confidence, is_primary)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				id, pi, si, sig.Value, sig.Kind, sig.Source, sig.Confidence, sig.Primary); err != nil {
				return fmt.Errorf("store signal: %w", err)
			}
		}
	}

	return tx.Commit()
}

// Fail transitions a session to FAILED.
func (s *SQLite) Fail(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("fail session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns a session, with its outcome reassembled when completed.
func (s *SQLite) Get(ctx context.Context, id string) (Record, error) {
	var rec Record
	var platform string
	var comments, signalsFound int
	var completedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, platform, status, error, comment_count, signal_count, created_at, updated_at, completed_at
		 FROM sessions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.URL, &platform, &rec.Status, &rec.Error, &comments, &signalsFound, &rec.CreatedAt, &rec.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get session: %w", err)
	}
	if completedAt.Valid {
		rec.CompletedAt = completedAt.Time
	}

	if rec.Status != StatusCompleted {
		return rec, nil
	}

	participants, err := s.participants(ctx, id)
	if err != nil {
		return Record{}, err
	}
	rec.Outcome = &comment.Outcome{
		SourceURL:    rec.URL,
		Platform:     comment.Platform(platform),
		Comments:     comments,
		Participants: participants,
		SignalsFound: signalsFound,
	}
	return rec, nil
}

func (s *SQLite) participants(ctx context.Context, id string) ([]comment.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, username, display_name, profile_url, snippet, comment_count
		 FROM participants WHERE session_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error ignored intentionally

	var participants []comment.Participant
	var positions []int
	for rows.Next() {
		var pos int
		var p comment.Participant
		if err := rows.Scan(&pos, &p.Username, &p.DisplayName, &p.ProfileURL, &p.CommentSnippet, &p.CommentCount); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	for i, pos := range positions {
		signals, err := s.signals(ctx, id, pos)
		if err != nil {
			return nil, err
		}
		participants[i].Signals = signals
	}
	return participants, nil
}

func (s *SQLite) signals(ctx context.Context, id string, participantPos int) ([]comment.Signal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT value, kind, source, confidence, is_primary
		 FROM signals WHERE session_id = ? AND participant_position = ? ORDER BY position`, id, participantPos)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error ignored intentionally

	var signals []comment.Signal
	for rows.Next() {
		var sig comment.Signal
		if err := rows.Scan(&sig.Value, &sig.Kind, &sig.Source, &sig.Confidence, &sig.Primary); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}

// List returns all sessions, newest first, without outcomes.
func (s *SQLite) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, status, error, created_at, updated_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }() //nolint:errcheck // error ignored intentionally

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.URL, &rec.Status, &rec.Error, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a session and its results.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
