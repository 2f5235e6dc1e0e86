package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samandartukhtayev/user-directory/config"
	"github.com/samandartukhtayev/user-directory/fetcher"
	"github.com/samandartukhtayev/user-directory/logging"
	"github.com/samandartukhtayev/user-directory/models"
	"github.com/samandartukhtayev/user-directory/page"
)

const upstreamUsers = `[
  {"id": 1, "name": "Leanne Graham", "username": "Bret", "email": "Sincere@april.biz",
   "address": {"street": "Kulas Light", "suite": "Apt. 556", "city": "Gwenborough", "zipcode": "92998-3874",
               "geo": {"lat": "-37.3159", "lng": "81.1496"}},
   "phone": "1-770-736-8031 x56442", "website": "hildegard.org",
   "company": {"name": "Romaguera-Crona", "catchPhrase": "Multi-layered client-server neural-net", "bs": "harness real-time e-markets"}},
  {"id": 2, "name": "Ervin Howell", "username": "Antonette", "email": "Shanna@melissa.tv",
   "address": {"street": "Victor Plains", "suite": "Suite 879", "city": "Wisokyburgh", "zipcode": "90566-7771",
               "geo": {"lat": "-43.9509", "lng": "-34.4618"}},
   "phone": "010-692-6593 x09125", "website": "anastasia.net",
   "company": {"name": "Deckow-Crist", "catchPhrase": "Proactive didactic contingency", "bs": "synergize scalable supply-chains"}}
]`

func newUpstream(t *testing.T, status int, body string) *fetcher.Client {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(upstream.Close)

	return fetcher.NewClient(config.FetcherConfig{
		Endpoint: upstream.URL,
		Timeout:  config.Duration{Duration: time.Second},
	}, logging.Discard())
}

func newTestServer(t *testing.T, source page.UsersSource, initial page.InitialData) *httptest.Server {
	renderer, err := page.NewRenderer("Users")
	require.NoError(t, err)

	handler := NewPageHandler(renderer, source, 0, initial, logging.Discard())
	s := NewServer(":0", handler, logging.Discard())

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func TestPage_Success(t *testing.T) {
	ts := newTestServer(t, newUpstream(t, http.StatusOK, upstreamUsers), page.InitialData{})

	res, body := get(t, ts.URL+"/")

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", res.Header.Get("Content-Type"))
	assert.NotEmpty(t, res.Header.Get(requestIDHeader))

	assert.Equal(t, 2, strings.Count(body, "<article "))
	assert.Less(t, strings.Index(body, "Leanne Graham"), strings.Index(body, "Ervin Howell"))
	assert.Less(t, strings.Index(body, `id="loading"`), strings.Index(body, "<article "),
		"the loading indicator is streamed before the cards")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(body), "</html>"))
}

func TestPage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"wrong status", http.StatusInternalServerError, upstreamUsers, "Received wrong status from the users endpoint."},
		{"not array", http.StatusOK, `{"users": []}`, "The users endpoint didn&#39;t return an array."},
		{"invalid json", http.StatusOK, `[{`, "Unknown error while fetching the users endpoint."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, newUpstream(t, tc.status, tc.body), page.InitialData{})

			res, body := get(t, ts.URL+"/")

			// The page itself still loads; the failure is shown in place of the cards
			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Contains(t, body, tc.want)
			assert.NotContains(t, body, "<article ")
		})
	}
}

func TestPage_InitialDataSkipsLoading(t *testing.T) {
	initial := page.InitialData{Users: []models.User{{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz"}}}
	ts := newTestServer(t, newUpstream(t, http.StatusInternalServerError, ""), initial)

	_, body := get(t, ts.URL+"/")

	assert.NotContains(t, body, `id="loading"`)
	assert.Equal(t, 1, strings.Count(body, "<article "))
	assert.Contains(t, body, "Leanne Graham")
}

func TestPage_SavedFailureIsRetried(t *testing.T) {
	initial := page.InitialData{ErrorKind: fetcher.KindWrongStatus}
	ts := newTestServer(t, newUpstream(t, http.StatusOK, upstreamUsers), initial)

	for i := 0; i < 3; i++ {
		_, body := get(t, ts.URL+"/")

		assert.Equal(t, 2, strings.Count(body, "<article "), "request %d", i)
		assert.NotContains(t, body, fetcher.MessageWrongStatus, "request %d", i)
	}
}

func TestPage_KeepsRequestID(t *testing.T) {
	ts := newTestServer(t, newUpstream(t, http.StatusOK, `[]`), page.InitialData{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "req-123")

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "req-123", res.Header.Get(requestIDHeader))
}

func TestPage_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, newUpstream(t, http.StatusOK, `[]`), page.InitialData{})

	res, err := http.Post(ts.URL+"/", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, newUpstream(t, http.StatusOK, `[]`), page.InitialData{})

	res, body := get(t, ts.URL+"/healthz")

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, body)
}

func TestServerStartAndStop(t *testing.T) {
	renderer, err := page.NewRenderer("Users")
	require.NoError(t, err)
	s := NewServer("127.0.0.1:0", NewPageHandler(renderer, newUpstream(t, http.StatusOK, `[]`), 0, page.InitialData{}, logging.Discard()), logging.Discard())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
