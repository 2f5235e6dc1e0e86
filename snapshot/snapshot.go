package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/models"
	"github.com/samandartukhtayev/user-directory/page"
)

// ErrNotFound is returned by Load when nothing has been prefetched yet
var ErrNotFound = errors.New("snapshot not found")

// Snapshot is the outcome of a prefetch: either the users or the class of the failure
type Snapshot struct {
	FetchedAt time.Time     `json:"fetchedAt"`
	Users     []models.User `json:"users"`
	ErrorKind fetcher.Kind  `json:"errorKind,omitempty"`
}

// FromResult builds a snapshot from a FetchUsers result
func FromResult(users []models.User, err error, now time.Time) *Snapshot {
	if err != nil {
		return &Snapshot{FetchedAt: now, ErrorKind: fetcher.KindOf(err)}
	}
	return &Snapshot{FetchedAt: now, Users: users}
}

// InitialData turns the snapshot into data supplied to a page mount
func (s *Snapshot) InitialData() page.InitialData {
	return page.InitialData{Users: s.Users, ErrorKind: s.ErrorKind}
}

// Store keeps the latest snapshot
type Store interface {
	Save(ctx context.Context, s *Snapshot) error
	Load(ctx context.Context) (*Snapshot, error)
}
