package page

import (
	"context"
	"time"

	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/logging"
	"github.com/samandartukhtayev/user-directory/models"
)

// State of a page mount
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "error"
	default:
		return "unknown"
	}
}

// View is what the page shows in a given state
type View struct {
	State State
	Users []models.User
	Error string
}

// UsersSource is anything that can produce the directory once
type UsersSource interface {
	FetchUsers(ctx context.Context) ([]models.User, error)
}

// InitialData is data supplied before mounting, e.g. from a prefetch snapshot.
// Non-empty Users skip the fetch. ErrorKind alone does not: the mount fetches
// again so a reload can recover from a failed prefetch.
type InitialData struct {
	Users     []models.User
	ErrorKind fetcher.Kind
}

// Loader drives one mount of the page: idle -> loading -> success | error
type Loader struct {
	source  UsersSource
	delay   time.Duration
	initial InitialData
	log     *logging.Logger
}

// NewLoader creates a loader that waits delay before calling source
func NewLoader(source UsersSource, delay time.Duration, initial InitialData, logger *logging.Logger) *Loader {
	return &Loader{
		source:  source,
		delay:   delay,
		initial: initial,
		log:     logger.With("Page"),
	}
}

// Load runs the mount to completion and returns the final view. observe, if
// not nil, sees every state the page enters after idle, in order.
func (l *Loader) Load(ctx context.Context, observe func(View)) View {
	emit := func(v View) View {
		if observe != nil {
			observe(v)
		}
		return v
	}

	// We got initial data, don't refetch
	if len(l.initial.Users) > 0 {
		return emit(View{State: StateSuccess, Users: l.initial.Users})
	}
	if l.initial.ErrorKind != "" {
		l.log.Warn("prefetch failed with %s, fetching again", l.initial.ErrorKind)
	}

	emit(View{State: StateLoading})

	if err := l.wait(ctx); err != nil {
		l.log.Warn("page mount cancelled before fetch: %v", err)
		return emit(View{State: StateFailed, Error: fetcher.Humanize(err)})
	}

	users, err := l.source.FetchUsers(ctx)
	if err != nil {
		l.log.Warn("failed to load users: %v", err)
		return emit(View{State: StateFailed, Error: fetcher.Humanize(err)})
	}

	return emit(View{State: StateSuccess, Users: users})
}

// wait is the artificial delay before the fetch starts
func (l *Loader) wait(ctx context.Context) error {
	if l.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(l.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
