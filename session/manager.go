package session

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
)

const localsKey = "identity.session"

// Manager is the session engine: it resolves the inbound cookie to a
// Record, creates fresh sessions on demand, applies rolling expiry, and
// writes dirty payloads back after the handler runs.
type Manager struct {
	store  Store
	name   string
	secret string
	ttl    time.Duration
	logger Logger

	cookieSecure   bool
	cookieSameSite string
}

type ManagerOption func(*Manager)

func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithSecureCookies(secure bool) ManagerOption {
	return func(m *Manager) {
		m.cookieSecure = secure
	}
}

func NewManager(store Store, name, secret string, ttl time.Duration, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required", errors.CategoryOperation)
	}
	if secret == "" {
		return nil, ErrNoSecret
	}
	if name == "" {
		name = "sid"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	m := &Manager{
		store:          store,
		name:           name,
		secret:         secret,
		ttl:            ttl,
		logger:         defLogger{},
		cookieSameSite: "Lax",
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// CookieName returns the session cookie name.
func (m *Manager) CookieName() string { return m.name }

// Secret exposes the signing secret to the Bridge.
func (m *Manager) Secret() string { return m.secret }

// Session is the per-request view handed to route handlers.
type Session struct {
	manager *Manager
	record  *Record
	isNew   bool
	dirty   bool
	killed  bool
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.record.ID }

// UserID returns the bound account reference, empty until login.
func (s *Session) UserID() string { return s.record.UserID }

// IsNew reports whether the session was created on this request.
func (s *Session) IsNew() bool { return s.isNew }

// Get reads a payload value (flash messages, OAuth state and the like).
func (s *Session) Get(key string) (any, bool) {
	if s.record.Data == nil {
		return nil, false
	}
	v, ok := s.record.Data[key]
	return v, ok
}

// Set writes a payload value, marking the session dirty.
func (s *Session) Set(key string, value any) {
	if s.record.Data == nil {
		s.record.Data = map[string]any{}
	}
	s.record.Data[key] = value
	s.dirty = true
}

// Unset removes a payload value.
func (s *Session) Unset(key string) {
	if s.record.Data == nil {
		return
	}
	delete(s.record.Data, key)
	s.dirty = true
}

// BindUser attaches an authenticated account to the session.
func (s *Session) BindUser(userID string) {
	s.record.UserID = userID
	s.dirty = true
}

// Middleware resolves the session for every request. It must run after
// the Bridge so synthesized cookies are already in place.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := m.load(c)
		if err != nil {
			// engine errors are logged with request context and
			// forwarded, never swallowed
			m.logger.Error("session engine error path=%s method=%s sid=%s error=%v",
				c.Path(), c.Method(), c.Cookies(m.name), err)
			return err
		}

		c.Locals(localsKey, sess)

		err = c.Next()

		if saveErr := m.save(c, sess); saveErr != nil {
			m.logger.Error("session save error path=%s method=%s sid=%s error=%v",
				c.Path(), c.Method(), sess.ID(), saveErr)
			if err == nil {
				err = saveErr
			}
		}

		return err
	}
}

// FromCtx returns the request session installed by Middleware.
func FromCtx(c *fiber.Ctx) (*Session, bool) {
	sess, ok := c.Locals(localsKey).(*Session)
	return sess, ok
}

// Regenerate rotates the session identifier, preserving the payload.
// Called on login so an issued ID is never reused for a different user.
func (m *Manager) Regenerate(c *fiber.Ctx, sess *Session) error {
	old := sess.record.ID

	id, err := NewSessionID()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to generate session id")
	}

	if err := m.store.Delete(c.Context(), old); err != nil {
		return err
	}

	now := time.Now()
	sess.record.ID = id
	sess.record.CreatedAt = now
	sess.record.ExpiresAt = now.Add(m.ttl)
	sess.isNew = true
	sess.dirty = true

	m.setCookie(c, id)
	return nil
}

// Destroy deletes the session and expires the cookie.
func (m *Manager) Destroy(c *fiber.Ctx, sess *Session) error {
	sess.killed = true
	if err := m.store.Delete(c.Context(), sess.record.ID); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.name,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		Path:     "/",
	})

	return nil
}

func (m *Manager) load(c *fiber.Ctx) (*Session, error) {
	raw := c.Cookies(m.name)

	if raw != "" {
		decoded, err := url.QueryUnescape(raw)
		if err != nil {
			decoded = raw
		}

		sid, err := Unsign(decoded, m.secret)
		if err == nil {
			record, err := m.store.Get(c.Context(), sid)
			if err != nil {
				return nil, err
			}
			if record != nil && !record.Expired(time.Now()) {
				return &Session{manager: m, record: record}, nil
			}
		}
		// invalid signature or stale record falls through to a new session
	}

	return m.create(c)
}

func (m *Manager) create(c *fiber.Ctx) (*Session, error) {
	id, err := NewSessionID()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate session id")
	}

	now := time.Now()
	record := &Record{
		ID:        id,
		Data:      map[string]any{},
		ExpiresAt: now.Add(m.ttl),
		CreatedAt: now,
	}

	m.setCookie(c, id)

	return &Session{manager: m, record: record, isNew: true, dirty: true}, nil
}

func (m *Manager) save(c *fiber.Ctx, sess *Session) error {
	if sess.killed {
		return nil
	}

	// rolling expiry on every request
	sess.record.ExpiresAt = time.Now().Add(m.ttl)

	if sess.dirty || sess.isNew {
		return m.store.Save(c.Context(), sess.record)
	}

	return m.store.Touch(c.Context(), sess.record.ID, sess.record.ExpiresAt)
}

func (m *Manager) setCookie(c *fiber.Ctx, sid string) {
	signed, err := Sign(sid, m.secret)
	if err != nil {
		// no secret means the manager would not have been constructed;
		// keep the raw id so the request can still proceed
		signed = sid
	}

	c.Cookie(&fiber.Cookie{
		Name:     m.name,
		Value:    url.QueryEscape(signed),
		Expires:  time.Now().Add(m.ttl),
		HTTPOnly: true,
		Secure:   m.cookieSecure,
		SameSite: m.cookieSameSite,
		Path:     "/",
	})
}
