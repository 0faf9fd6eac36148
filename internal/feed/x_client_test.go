package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestXClient(url string, tokens TokenSource) *XClient {
	return NewXClient(XOptions{
		BaseURL:           url,
		Tokens:            tokens,
		RequestsPerMinute: 60000,
		MaxRetries:        2,
		RetryDelay:        5 * time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
	})
}

func TestXClient_FetchRecent(t *testing.T) {
	var lookups atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/2/users/by/username/dev":
			lookups.Add(1)
			w.Write([]byte(`{"data":{"id":"42","username":"dev"}}`))
		case "/2/users/42/tweets":
			assert.Equal(t, "5", r.URL.Query().Get("max_results"))
			assert.Equal(t, "created_at,author_id", r.URL.Query().Get("tweet.fields"))
			w.Write([]byte(`{"data":[
				{"id":"3","text":"newest","author_id":"42","created_at":"2024-05-01T10:02:00.000Z"},
				{"id":"2","text":"middle","author_id":"42","created_at":"2024-05-01T10:01:00.000Z"},
				{"id":"1","text":"oldest","author_id":"42","created_at":"2024-05-01T10:00:00.000Z"}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := newTestXClient(server.URL, StaticToken("tok"))
	ctx := context.Background()

	posts, err := c.FetchRecent(ctx, "@dev", 5)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "3", posts[0].ID)
	assert.Equal(t, "dev", posts[0].Author)
	assert.Equal(t, "newest", posts[0].Text)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC), posts[0].CreatedAt.UTC())

	// User id is cached across fetches
	_, err = c.FetchRecent(ctx, "dev", 5)
	require.NoError(t, err)
	assert.Equal(t, int32(1), lookups.Load())
}

func TestXClient_FetchRecent_NoPosts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/2/users/by/username/dev" {
			w.Write([]byte(`{"data":{"id":"42","username":"dev"}}`))
			return
		}
		w.Write([]byte(`{"meta":{"result_count":0}}`))
	}))
	defer server.Close()

	posts, err := newTestXClient(server.URL, StaticToken("tok")).FetchRecent(context.Background(), "dev", 10)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestXClient_Unauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized"}`))
	}))
	defer server.Close()

	_, err := newTestXClient(server.URL, StaticToken("bad")).FetchRecent(context.Background(), "dev", 5)
	assert.ErrorIs(t, err, ErrUnauthorized)
	// Auth failures are not retried
	assert.Equal(t, int32(1), calls.Load())
}

func TestXClient_UserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"title":"Not Found Error","detail":"Could not find user with username: [ghost]."}]}`))
	}))
	defer server.Close()

	_, err := newTestXClient(server.URL, StaticToken("tok")).FetchRecent(context.Background(), "ghost", 5)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestXClient_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":{"id":"42","username":"dev"}}`))
	}))
	defer server.Close()

	c := newTestXClient(server.URL, StaticToken("tok"))
	id, err := c.userID(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
	assert.Equal(t, int32(3), calls.Load())
}

func TestXClient_RetriesExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestXClient(server.URL, StaticToken("tok")).FetchRecent(context.Background(), "dev", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestXClient_LoginReloadsToken(t *testing.T) {
	var current atomic.Value
	current.Store("old")
	tokens := func(context.Context) (string, error) { return current.Load().(string), nil }

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer new" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"id":"42","username":"dev"}}`))
	}))
	defer server.Close()

	c := newTestXClient(server.URL, tokens)
	ctx := context.Background()

	_, err := c.userID(ctx, "dev")
	require.ErrorIs(t, err, ErrUnauthorized)

	current.Store("new")
	ok, err := c.Login(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	id, err := c.userID(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, "42", id)
}

func TestXClient_LoginEmptyToken(t *testing.T) {
	c := newTestXClient("http://127.0.0.1:0", StaticToken(""))
	ok, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestXClient_LoginVerifiesKnownHandle(t *testing.T) {
	var fail atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"data":{"id":"42","username":"dev"}}`))
	}))
	defer server.Close()

	c := newTestXClient(server.URL, StaticToken("tok"))
	ctx := context.Background()
	_, err := c.userID(ctx, "dev")
	require.NoError(t, err)

	fail.Store(true)
	ok, err := c.Login(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
