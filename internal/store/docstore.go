package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

// sortableTime keeps updated_at ordering correct under string comparison.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// DocStore implements Store on SQLite, keeping each session as a JSONB
// document next to the columns used for listing. The sessions table is
// created by the migrations package.
type DocStore struct {
	db *sql.DB
}

func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

func (s *DocStore) Get(ctx context.Context, id string) (hunt.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM sessions WHERE id = ?`, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.Session{}, ErrNotFound
	}
	if err != nil {
		return hunt.Session{}, err
	}

	var sess hunt.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return hunt.Session{}, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return sess, nil
}

func (s *DocStore) Put(ctx context.Context, sess hunt.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, stage, updated_at, data) VALUES (?, ?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET stage = excluded.stage, updated_at = excluded.updated_at, data = excluded.data`,
		sess.ID, string(sess.Stage), sess.UpdatedAt.UTC().Format(sortableTime), string(data),
	)
	return err
}

func (s *DocStore) List(ctx context.Context) ([]hunt.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT json(data) FROM sessions ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hunt.Session
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var sess hunt.Session
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			return nil, fmt.Errorf("decoding session: %w", err)
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Check pings the database, for the health endpoint.
func (s *DocStore) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
