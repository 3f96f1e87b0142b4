package authgate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// StoredSession is the locally persisted form of a session. Providers keep it
// so CurrentSession can be answered without a network call.
type StoredSession struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email,omitempty"`
	Token     string     `json:"-"`
	Provider  string     `json:"provider,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Expired reports whether the session has an expiry at or before now.
func (s *StoredSession) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt == nil {
		return false
	}
	return !now.Before(*s.ExpiresAt)
}

// Session returns the identity part of the stored session.
func (s *StoredSession) Session() *Session {
	if s == nil {
		return nil
	}
	return &Session{UserID: s.UserID, Email: s.Email}
}

// SessionStore persists at most one stored session. Load returns ErrNoSession
// when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context) (*StoredSession, error)
	Save(ctx context.Context, session *StoredSession) error
	Clear(ctx context.Context) error
}

// MemorySessionStore is a SessionStore that lives as long as the process.
type MemorySessionStore struct {
	mu      sync.Mutex
	session *StoredSession
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (m *MemorySessionStore) Load(_ context.Context) (*StoredSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, ErrNoSession
	}
	s := *m.session
	return &s, nil
}

func (m *MemorySessionStore) Save(_ context.Context, session *StoredSession) error {
	if session == nil {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *session
	m.session = &s
	return nil
}

func (m *MemorySessionStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// SessionCacheOption customizes the session cache.
type SessionCacheOption func(*SessionCache)

func WithCacheLogger(logger Logger) SessionCacheOption {
	return func(c *SessionCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheClock injects a custom clock (useful for tests).
func WithCacheClock(clock func() time.Time) SessionCacheOption {
	return func(c *SessionCache) {
		if clock != nil {
			c.now = clock
		}
	}
}

// SessionCache keeps the current stored session in memory and writes it
// through to a SessionStore. It is safe for concurrent use.
type SessionCache struct {
	mu      sync.RWMutex
	store   SessionStore
	current *StoredSession
	logger  Logger
	now     func() time.Time
}

// NewSessionCache returns an empty cache. A nil store keeps sessions in memory.
func NewSessionCache(store SessionStore, opts ...SessionCacheOption) *SessionCache {
	if store == nil {
		store = NewMemorySessionStore()
	}
	c := &SessionCache{
		store:  store,
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Restore loads the persisted session. Expired sessions are cleared.
func (c *SessionCache) Restore(ctx context.Context) error {
	stored, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			c.set(nil)
			return nil
		}
		return err
	}

	if stored.Expired(c.now()) {
		c.logger.Info("stored session expired", "user_id", stored.UserID)
		c.set(nil)
		return c.store.Clear(ctx)
	}

	c.set(stored)
	return nil
}

// Current returns the cached session, or nil when there is none or it expired.
func (c *SessionCache) Current() *Session {
	stored := c.Stored()
	if stored == nil || stored.Expired(c.now()) {
		return nil
	}
	return stored.Session()
}

// Stored returns a copy of the cached stored session.
func (c *SessionCache) Stored() *StoredSession {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	s := *c.current
	return &s
}

// Store caches session and persists it. The cache is updated even when
// persistence fails.
func (c *SessionCache) Store(ctx context.Context, session *StoredSession) error {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return ErrNoSession
	}

	s := *session
	if s.CreatedAt.IsZero() {
		s.CreatedAt = c.now()
	}
	c.set(&s)

	if err := c.store.Save(ctx, &s); err != nil {
		c.logger.Error("persist session failed", "user_id", s.UserID, "error", err)
		return err
	}
	return nil
}

// Clear drops the cached session and its persisted copy. Persistence errors
// are logged only.
func (c *SessionCache) Clear(ctx context.Context) {
	c.set(nil)
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error("clear persisted session failed", "error", err)
	}
}

func (c *SessionCache) set(s *StoredSession) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}
