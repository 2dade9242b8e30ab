// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record persists raw source samples to SQLite so a tracking
// session can be replayed through the pipeline later.
package record

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/headtracker/internal/orientation"
)

var ErrNoSession = errors.New("record: no such session")

// timeLayout has fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	offset_us   INTEGER NOT NULL,
	x           REAL NOT NULL,
	y           REAL NOT NULL,
	z           REAL NOT NULL,
	yaw         REAL NOT NULL,
	pitch       REAL NOT NULL,
	roll        REAL NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS samples_session_seq ON samples(session_id, seq);
`

// Session describes one recording.
type Session struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	Samples   int       `json:"samples"`
}

// Sample is one confident pose taken from a source.
type Sample struct {
	Seq    int64
	Offset time.Duration // since the session started
	Pose   orientation.Pose
}

// Store manages recorded sessions in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("record: open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("record: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// BeginSession creates an empty session for samples from source.
func (s *Store) BeginSession(source string) (Session, error) {
	sess := Session{
		ID:        uuid.New().String(),
		Source:    source,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, source, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Source, sess.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Session{}, fmt.Errorf("record: insert session: %w", err)
	}
	return sess, nil
}

// AppendSamples stores samples for a session in one transaction.
func (s *Store) AppendSamples(sessionID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("record: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO samples (session_id, seq, offset_us, x, y, z, yaw, pitch, roll)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("record: prepare: %w", err)
	}
	defer stmt.Close()

	for _, smp := range samples {
		p := smp.Pose
		if _, err := stmt.Exec(sessionID, smp.Seq, smp.Offset.Microseconds(),
			p[orientation.X], p[orientation.Y], p[orientation.Z],
			p[orientation.Yaw], p[orientation.Pitch], p[orientation.Roll]); err != nil {
			return fmt.Errorf("record: insert sample %d: %w", smp.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record: commit: %w", err)
	}
	return nil
}

// Session looks up one session by id.
func (s *Store) Session(id string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT s.session_id, s.source, s.started_at, COUNT(m.id)
		 FROM sessions s LEFT JOIN samples m ON m.session_id = s.session_id
		 WHERE s.session_id = ?
		 GROUP BY s.session_id`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNoSession, id)
	}
	return sess, err
}

// Sessions lists every session, oldest first.
func (s *Store) Sessions() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT s.session_id, s.source, s.started_at, COUNT(m.id)
		 FROM sessions s LEFT JOIN samples m ON m.session_id = s.session_id
		 GROUP BY s.session_id
		 ORDER BY s.started_at, s.rowid`)
	if err != nil {
		return nil, fmt.Errorf("record: query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record: iterate sessions: %w", err)
	}
	return out, nil
}

// Samples returns a session's samples in recording order.
func (s *Store) Samples(sessionID string) ([]Sample, error) {
	if _, err := s.Session(sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		`SELECT seq, offset_us, x, y, z, yaw, pitch, roll
		 FROM samples WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("record: query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			smp Sample
			us  int64
			p   = &smp.Pose
		)
		if err := rows.Scan(&smp.Seq, &us,
			&p[orientation.X], &p[orientation.Y], &p[orientation.Z],
			&p[orientation.Yaw], &p[orientation.Pitch], &p[orientation.Roll]); err != nil {
			return nil, fmt.Errorf("record: scan sample: %w", err)
		}
		smp.Offset = time.Duration(us) * time.Microsecond
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("record: iterate samples: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var (
		sess    Session
		started string
	)
	if err := row.Scan(&sess.ID, &sess.Source, &started, &sess.Samples); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("record: scan session: %w", err)
	}
	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return Session{}, fmt.Errorf("record: parse started_at %q: %w", started, err)
	}
	sess.StartedAt = t
	return sess, nil
}
