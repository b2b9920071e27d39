// Package store persists hunt sessions and serializes concurrent updates to
// a single session.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// Store is a session repository keyed by session id.
type Store interface {
	Get(ctx context.Context, id string) (hunt.Session, error)
	Put(ctx context.Context, sess hunt.Session) error
	// List returns every session, most recently updated first.
	List(ctx context.Context) ([]hunt.Session, error)
}

func sortByUpdated(sessions []hunt.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
}
