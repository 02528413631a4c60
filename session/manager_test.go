package session_test

import (
	"context"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskvine/identity/session"
)

// memoryStore implements session.Store for engine tests.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*session.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*session.Record{}}
}

func (s *memoryStore) Get(_ context.Context, id string) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.Expired(time.Now()) {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (s *memoryStore) Save(_ context.Context, record *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *memoryStore) Touch(_ context.Context, id string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.ExpiresAt = expiresAt
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *memoryStore) DeleteExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	now := time.Now()
	for id, r := range s.records {
		if r.Expired(now) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func newTestManager(t *testing.T, store session.Store) *session.Manager {
	t.Helper()
	m, err := session.NewManager(store, "sid", "keyboard cat", time.Hour)
	require.NoError(t, err)
	return m
}

func TestManagerRequiresSecret(t *testing.T) {
	_, err := session.NewManager(newMemoryStore(), "sid", "", time.Hour)
	assert.Error(t, err)
}

func TestManagerCreatesSessionWithoutCookie(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)

	app := fiber.New()
	app.Use(manager.Middleware())

	var sid string
	app.Get("/", func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		require.True(t, ok)
		assert.True(t, sess.IsNew())
		sid = sess.ID()
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// record persisted
	rec, err := store.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, rec)

	// cookie issued
	cookies := resp.Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
}

func TestManagerResolvesExistingSession(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)

	require.NoError(t, store.Save(context.Background(), &session.Record{
		ID:        "known-session",
		UserID:    "user-1",
		Data:      map[string]any{"k": "v"},
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}))

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		sess, ok := session.FromCtx(c)
		require.True(t, ok)
		assert.False(t, sess.IsNew())
		assert.Equal(t, "user-1", sess.UserID())
		v, _ := sess.Get("k")
		assert.Equal(t, "v", v)
		return c.SendStatus(fiber.StatusOK)
	})

	signed, err := session.Sign("known-session", "keyboard cat")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", "sid="+url.QueryEscape(signed))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestManagerRejectsForgedCookie(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)

	require.NoError(t, store.Save(context.Background(), &session.Record{
		ID:        "victim-session",
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		sess, _ := session.FromCtx(c)
		// unsigned cookie must not resolve the stored session
		assert.True(t, sess.IsNew())
		assert.Empty(t, sess.UserID())
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", "sid=victim-session")

	_, err := app.Test(req)
	require.NoError(t, err)
}

func TestManagerRollingExpiry(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(t, store)

	soon := time.Now().Add(time.Minute)
	require.NoError(t, store.Save(context.Background(), &session.Record{
		ID:        "rolling",
		ExpiresAt: soon,
	}))

	app := fiber.New()
	app.Use(manager.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	signed, err := session.Sign("rolling", "keyboard cat")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", "sid="+url.QueryEscape(signed))

	_, err = app.Test(req)
	require.NoError(t, err)

	rec, err := store.Get(context.Background(), "rolling")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.ExpiresAt.After(soon.Add(30*time.Minute)), "expiry should have rolled forward")
}

func TestStoreSweepRemovesExpired(t *testing.T) {
	store := newMemoryStore()

	require.NoError(t, store.Save(context.Background(), &session.Record{
		ID:        "gone",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.Save(context.Background(), &session.Record{
		ID:        "kept",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	n, err := store.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	rec, err := store.Get(context.Background(), "kept")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}
