package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/tasksync/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenHolder struct{ token string }

func (h *tokenHolder) Token() string { return h.token }

// testClock is shared with handler goroutines
type testClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.at.IsZero() {
		return time.Now()
	}
	return c.at
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.at = t
	c.mu.Unlock()
}

func startServer(t *testing.T, opts Options) (*Server, *api.Client, *tokenHolder) {
	srv, client, tokens, _ := startServerWithClock(t, opts)
	return srv, client, tokens
}

func startServerWithClock(t *testing.T, opts Options) (*Server, *api.Client, *tokenHolder, *testClock) {
	t.Helper()
	clock := &testClock{}
	srv := New(NewMemoryStore(), opts)
	srv.now = clock.Now
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	tokens := &tokenHolder{}
	return srv, api.NewClient(ts.URL, tokens, 2*time.Second), tokens, clock
}

func TestHealth(t *testing.T) {
	_, client, _ := startServer(t, Options{})
	assert.NoError(t, client.Health(context.Background()))
}

func TestCreateAssignsServerIDForLocalIDs(t *testing.T) {
	_, client, _ := startServer(t, Options{})
	ctx := context.Background()

	created, err := client.Create(ctx, api.TaskDto{
		ID:        "local-123",
		Title:     "Buy milk",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-01-01T00:00:00.000Z",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.True(t, strings.HasPrefix(created.ID, "task-"))
	assert.Equal(t, "2024-01-01T00:00:00.000Z", created.CreatedAt)
	assert.Equal(t, "", created.Description)

	kept, err := client.Create(ctx, api.TaskDto{ID: "custom-1", Title: "Keep id"})
	require.NoError(t, err)
	assert.Equal(t, "custom-1", kept.ID)
	assert.NotEmpty(t, kept.CreatedAt)
	assert.Equal(t, kept.CreatedAt, kept.UpdatedAt)

	_, err = client.Create(ctx, api.TaskDto{ID: "custom-1", Title: "Again"})
	assert.ErrorIs(t, err, api.ErrConflict)
}

func TestCreateRequiresTitle(t *testing.T) {
	_, client, _ := startServer(t, Options{})

	_, err := client.Create(context.Background(), api.TaskDto{ID: "x"})
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestUpdatePreservesCreatedAt(t *testing.T) {
	_, client, _, clock := startServerWithClock(t, Options{})
	ctx := context.Background()

	_, err := client.Create(ctx, api.TaskDto{
		ID:        "t1",
		Title:     "Before",
		CreatedAt: "2024-01-01T00:00:00.000Z",
		UpdatedAt: "2024-01-01T00:00:00.000Z",
	})
	require.NoError(t, err)

	clock.Set(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	updated, err := client.Update(ctx, "t1", api.TaskDto{
		ID:        "t1",
		Title:     "After",
		Completed: true,
		CreatedAt: "2030-01-01T00:00:00.000Z",
		UpdatedAt: "2024-02-01T00:00:00.000Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Title)
	assert.True(t, updated.Completed)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", updated.CreatedAt)
	assert.Equal(t, "2024-06-01T12:00:00.000Z", updated.UpdatedAt)

	_, err = client.Update(ctx, "missing", api.TaskDto{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestListSinceIsInclusive(t *testing.T) {
	_, client, _ := startServer(t, Options{})
	ctx := context.Background()

	for _, dto := range []api.TaskDto{
		{ID: "old", Title: "old", UpdatedAt: "2024-01-01T00:00:00.000Z"},
		{ID: "edge", Title: "edge", UpdatedAt: "2024-01-02T00:00:00.000Z"},
		{ID: "new", Title: "new", UpdatedAt: "2024-01-03T00:00:00.000Z"},
	} {
		_, err := client.Create(ctx, dto)
		require.NoError(t, err)
	}

	all, err := client.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	since, err := client.ListSince(ctx, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, "edge", since[0].ID)
	assert.Equal(t, "new", since[1].ID)
}

func TestListAcceptsUpdatedAtGte(t *testing.T) {
	srv, _, _ := startServer(t, Options{})
	store := srv.store.(*MemoryStore)
	require.NoError(t, store.CreateTask(context.Background(), Task{
		ID: "a", Title: "a",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks?updatedAt_gte=2024-01-02T00:00:00Z", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/tasks?since=garbage", nil)
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteTask(t *testing.T) {
	srv, client, _ := startServer(t, Options{})
	_, err := client.Create(context.Background(), api.TaskDto{ID: "t1", Title: "x"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tasks/t1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/tasks/t1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv, client, tokens, clock := startServerWithClock(t, Options{RequireAuth: true})
	ctx := context.Background()

	_, err := client.List(ctx)
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)

	tokens.token = "forged"
	_, err = client.List(ctx)
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)

	resp, err := client.Login(ctx, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", resp.Email)
	assert.True(t, strings.HasPrefix(resp.ID, "user-"))

	tokens.token = resp.Token
	_, err = client.List(ctx)
	require.NoError(t, err)

	// Same email maps to the same user
	again, err := client.Login(ctx, "me@example.com")
	require.NoError(t, err)
	assert.Equal(t, resp.ID, again.ID)
	assert.NotEqual(t, resp.Token, again.Token)

	// Raw tokens are never stored
	store := srv.store.(*MemoryStore)
	_, err = store.GetSession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrSessionMissing)

	clock.Set(time.Now().Add(365 * 24 * time.Hour))
	_, err = client.List(ctx)
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestLoginRequiresEmail(t *testing.T) {
	_, client, _ := startServer(t, Options{})

	_, err := client.Login(context.Background(), "  ")
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestTokenDigest(t *testing.T) {
	a := tokenDigest("token-a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, tokenDigest("token-a"))
	assert.NotEqual(t, a, tokenDigest("token-b"))
	assert.NotContains(t, a, "token-a")
}
