package users

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsersServer(t *testing.T, status int, body string) (*httptest.Server, func() string) {
	t.Helper()
	var (
		mu   sync.Mutex
		path string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		path = r.URL.Path
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, func() string {
		mu.Lock()
		defer mu.Unlock()
		return path
	}
}

func TestHTTPSourceFetchAll(t *testing.T) {
	srv, path := newUsersServer(t, http.StatusOK, `[{"id":1,"name":"Ana","age":70,"interests":"chess","email":"ana@example.com"}]`)

	src, err := NewHTTPSource(srv.URL+"/", time.Second)
	require.NoError(t, err)

	users, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []User{{ID: 1, Name: "Ana", Age: 70, Interests: "chess"}}, users)
	assert.Equal(t, "/users", path())
}

func TestHTTPSourceResolvesRelativeToBasePath(t *testing.T) {
	srv, path := newUsersServer(t, http.StatusOK, `[]`)

	src, err := NewHTTPSource(srv.URL+"/api/v1", time.Second)
	require.NoError(t, err)

	users, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
	assert.Equal(t, "/api/v1/users", path())
}

func TestHTTPSourceDecodeErrors(t *testing.T) {
	cases := map[string]struct {
		body  string
		index int
	}{
		"not json":         {body: `<html>oops</html>`, index: -1},
		"object not array": {body: `{"id":1}`, index: -1},
		"null body":        {body: `null`, index: -1},
		"empty body":       {body: ``, index: -1},
		"truncated":        {body: `[{"id":1,"name":"Ana"`, index: -1},
		"wrong type":       {body: `[{"id":"1","name":"Ana","age":70,"interests":"chess"}]`, index: -1},
		"null element":     {body: `[null]`, index: 0},
		"missing name":     {body: `[{"id":1,"age":70,"interests":"chess"}]`, index: 0},
		"empty name":       {body: `[{"id":1,"name":"","age":70,"interests":"chess"}]`, index: 0},
		"missing age":      {body: `[{"id":1,"name":"Ana","interests":"chess"}]`, index: 0},
		"negative age":     {body: `[{"id":1,"name":"Ana","age":-1,"interests":"chess"}]`, index: 0},
		"missing interest": {body: `[{"id":1,"name":"Ana","age":70},{"id":2}]`, index: 0},
		"second invalid":   {body: `[{"id":1,"name":"Ana","age":70,"interests":""},{"id":2}]`, index: 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv, _ := newUsersServer(t, http.StatusOK, tc.body)
			src, err := NewHTTPSource(srv.URL, time.Second)
			require.NoError(t, err)

			users, err := src.FetchAll(context.Background())
			assert.Nil(t, users)
			require.ErrorIs(t, err, ErrDecode)
			assert.NotErrorIs(t, err, ErrTransport)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tc.index, decodeErr.Index)
		})
	}
}

func TestHTTPSourceZeroValuesArePresent(t *testing.T) {
	srv, _ := newUsersServer(t, http.StatusOK, `[{"id":0,"name":"Ana","age":0,"interests":""}]`)
	src, err := NewHTTPSource(srv.URL, time.Second)
	require.NoError(t, err)

	users, err := src.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []User{{Name: "Ana"}}, users)
}

func TestHTTPSourceStatusIsTransportError(t *testing.T) {
	srv, _ := newUsersServer(t, http.StatusServiceUnavailable, `{"error":"down"}`)
	src, err := NewHTTPSource(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = src.FetchAll(context.Background())
	require.ErrorIs(t, err, ErrTransport)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
}

func TestHTTPSourceUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src, err := NewHTTPSource(url, time.Second)
	require.NoError(t, err)

	_, err = src.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPSourceTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	src, err := NewHTTPSource(srv.URL, 50*time.Millisecond)
	require.NoError(t, err)

	_, err = src.FetchAll(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
}

func TestNewHTTPSourceRejectsRelativeURL(t *testing.T) {
	_, err := NewHTTPSource("users", time.Second)
	assert.Error(t, err)
}

func TestHTTPSourcePing(t *testing.T) {
	srv, _ := newUsersServer(t, http.StatusOK, ``)
	src, err := NewHTTPSource(srv.URL, time.Second)
	require.NoError(t, err)
	assert.NoError(t, src.Ping(context.Background()))

	down, _ := newUsersServer(t, http.StatusBadGateway, ``)
	src, err = NewHTTPSource(down.URL, time.Second)
	require.NoError(t, err)
	assert.ErrorIs(t, src.Ping(context.Background()), ErrTransport)
}
