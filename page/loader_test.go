package page

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/logging"
	"github.com/samandartukhtayev/user-directory/models"
)

type fakeSource struct {
	users []models.User
	err   error
	calls int
}

func (f *fakeSource) FetchUsers(ctx context.Context) ([]models.User, error) {
	f.calls++
	return f.users, f.err
}

func collectStates(views *[]View) func(View) {
	return func(v View) {
		*views = append(*views, v)
	}
}

func states(views []View) []State {
	out := make([]State, 0, len(views))
	for _, v := range views {
		out = append(out, v.State)
	}
	return out
}

func TestLoader_Success(t *testing.T) {
	source := &fakeSource{users: sampleUsers()}
	loader := NewLoader(source, 0, InitialData{}, logging.Discard())

	var views []View
	final := loader.Load(context.Background(), collectStates(&views))

	assert.Equal(t, []State{StateLoading, StateSuccess}, states(views))
	assert.Equal(t, StateSuccess, final.State)
	assert.Equal(t, sampleUsers(), final.Users)
	assert.Equal(t, 1, source.calls)
}

func TestLoader_Failure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"wrong status", &fetcher.LoadError{Kind: fetcher.KindWrongStatus, StatusCode: 500}, fetcher.MessageWrongStatus},
		{"not array", &fetcher.LoadError{Kind: fetcher.KindNotArray}, fetcher.MessageNotArray},
		{"timeout", context.DeadlineExceeded, fetcher.MessageSlowResponse},
		{"transport", errors.New("dial tcp: connection refused"), fetcher.MessageUnknown},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{err: tc.err}
			loader := NewLoader(source, 0, InitialData{}, logging.Discard())

			var views []View
			final := loader.Load(context.Background(), collectStates(&views))

			assert.Equal(t, []State{StateLoading, StateFailed}, states(views))
			assert.Equal(t, tc.want, final.Error)
			assert.Empty(t, final.Users)
			assert.Equal(t, 1, source.calls)
		})
	}
}

func TestLoader_InitialUsersSkipFetch(t *testing.T) {
	source := &fakeSource{err: errors.New("must not be called")}
	loader := NewLoader(source, time.Hour, InitialData{Users: sampleUsers()}, logging.Discard())

	var views []View
	final := loader.Load(context.Background(), collectStates(&views))

	assert.Equal(t, []State{StateSuccess}, states(views))
	assert.Equal(t, sampleUsers(), final.Users)
	assert.Zero(t, source.calls)
}

func TestLoader_InitialErrorFetchesAgain(t *testing.T) {
	source := &fakeSource{users: sampleUsers()}
	loader := NewLoader(source, 0, InitialData{ErrorKind: fetcher.KindNotArray}, logging.Discard())

	var views []View
	final := loader.Load(context.Background(), collectStates(&views))

	assert.Equal(t, []State{StateLoading, StateSuccess}, states(views))
	assert.Equal(t, sampleUsers(), final.Users)
	assert.Empty(t, final.Error)
	assert.Equal(t, 1, source.calls)
}

func TestLoader_DelayBeforeFetch(t *testing.T) {
	source := &fakeSource{users: sampleUsers()}
	loader := NewLoader(source, 30*time.Millisecond, InitialData{}, logging.Discard())

	start := time.Now()
	final := loader.Load(context.Background(), nil)

	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, StateSuccess, final.State)
}

func TestLoader_CancelledDuringDelay(t *testing.T) {
	source := &fakeSource{users: sampleUsers()}
	loader := NewLoader(source, time.Hour, InitialData{}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	var views []View
	final := loader.Load(ctx, func(v View) {
		views = append(views, v)
		if v.State == StateLoading {
			cancel()
		}
	})

	assert.Equal(t, []State{StateLoading, StateFailed}, states(views))
	assert.Equal(t, fetcher.MessageUnknown, final.Error)
	assert.Zero(t, source.calls)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "success", StateSuccess.String())
	assert.Equal(t, "error", StateFailed.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestLoader_NilObserver(t *testing.T) {
	loader := NewLoader(&fakeSource{}, 0, InitialData{}, logging.Discard())
	require.NotPanics(t, func() {
		loader.Load(context.Background(), nil)
	})
}
