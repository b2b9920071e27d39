package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

const sessionBucket = "sessions"

// BoltStore implements Store on a single BoltDB file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBolt opens a BoltDB-backed store at path.
func OpenBolt(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sessionBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) Get(ctx context.Context, id string) (hunt.Session, error) {
	if err := ctx.Err(); err != nil {
		return hunt.Session{}, err
	}

	var sess hunt.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		payload := tx.Bucket([]byte(sessionBucket)).Get([]byte(id))
		if payload == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(payload, &sess); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		return nil
	})
	if err != nil {
		return hunt.Session{}, err
	}
	return sess, nil
}

func (s *BoltStore) Put(ctx context.Context, sess hunt.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id is required")
	}

	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(sess.ID), payload)
	})
}

func (s *BoltStore) List(ctx context.Context) ([]hunt.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []hunt.Session
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).ForEach(func(k, v []byte) error {
			var sess hunt.Session
			if err := json.Unmarshal(v, &sess); err != nil {
				return fmt.Errorf("unmarshal session %s: %w", k, err)
			}
			out = append(out, sess)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortByUpdated(out)
	return out, nil
}
