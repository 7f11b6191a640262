// Session management: a pluggable Store, a request-scoped Session handed
// to handlers via context, and a save step that runs after the handler, on
// the dispatcher's onResponse hook (spec.md §4.6 step 10) rather than
// inside the middleware chain, since this framework's middleware only runs
// before the handler (see Sessions below).
package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ignite-go/ignite/app"
	"github.com/ignite-go/ignite/ctx"
)

const sessionContextKey = "__session"

// Store abstracts session persistence. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(id string) (map[string]any, bool)
	Save(id string, data map[string]any, ttl time.Duration) error
	Delete(id string) error
}

// MemoryStore is an in-memory, TTL-expiring session store. Grounded on the
// teacher's session.go MemoryStore (the same map+mutex+lazy-expiration
// shape respcache.Cache's LRU generalizes further with an eviction order).
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[string]entry
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	cleanupOnce   sync.Once
}

type entry struct {
	v   map[string]any
	exp time.Time
}

// NewMemoryStore returns an empty MemoryStore. Call StartCleanup to run
// periodic expired-entry eviction in the background.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]entry), cleanupDone: make(chan struct{})}
}

// Get retrieves session data by ID, using a constant-time dummy compare on
// a miss to avoid leaking which IDs exist via response timing.
func (m *MemoryStore) Get(id string) (map[string]any, bool) {
	m.mu.RLock()
	e, ok := m.data[id]
	m.mu.RUnlock()
	if !ok {
		_ = subtle.ConstantTimeCompare([]byte(id), []byte("dummy_session_id_for_timing"))
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		_ = m.Delete(id)
		return nil, false
	}
	return copyMap(e.v), true
}

// Save persists a copy of data under id with ttl (0 = no expiration).
func (m *MemoryStore) Save(id string, data map[string]any, ttl time.Duration) error {
	if id == "" {
		return errors.New("session: empty session id")
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.data[id] = entry{v: copyMap(data), exp: exp}
	m.mu.Unlock()
	return nil
}

// Delete removes a session; idempotent.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	delete(m.data, id)
	m.mu.Unlock()
	return nil
}

// StartCleanup runs a background goroutine evicting expired entries every
// interval, until StopCleanup is called.
func (m *MemoryStore) StartCleanup(interval time.Duration) {
	m.cleanupOnce.Do(func() {
		m.cleanupTicker = time.NewTicker(interval)
		go func() {
			for {
				select {
				case <-m.cleanupTicker.C:
					now := time.Now()
					m.mu.Lock()
					for id, e := range m.data {
						if !e.exp.IsZero() && now.After(e.exp) {
							delete(m.data, id)
						}
					}
					m.mu.Unlock()
				case <-m.cleanupDone:
					return
				}
			}
		}()
	})
}

// StopCleanup stops the background cleanup goroutine, if running.
func (m *MemoryStore) StopCleanup() {
	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}
	close(m.cleanupDone)
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Session is the per-request session handle a handler reads and writes
// through SessionFromCtx.
type Session struct {
	ID          string
	Values      map[string]any
	changed     bool
	isNew       bool
	regenerated bool
	oldID       string
}

func (s *Session) Get(key string) (any, bool) {
	if s.Values == nil {
		return nil, false
	}
	v, ok := s.Values[key]
	return v, ok
}

func (s *Session) Set(key string, v any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = v
	s.changed = true
}

func (s *Session) Delete(key string) {
	delete(s.Values, key)
	s.changed = true
}

func (s *Session) Clear() {
	for k := range s.Values {
		delete(s.Values, k)
	}
	s.changed = true
}

// Regenerate issues a new session ID while keeping the session's values,
// to be called after authentication or privilege escalation (prevents
// session fixation). The previous ID is deleted from the store at save
// time.
func (s *Session) Regenerate() {
	if s.ID != "" {
		s.oldID = s.ID
	}
	s.ID = newSessionID()
	s.regenerated = true
	s.changed = true
}

func (s *Session) IsNew() bool         { return s.isNew }
func (s *Session) IsChanged() bool     { return s.changed }
func (s *Session) IsRegenerated() bool { return s.regenerated }

// SessionConfig configures Sessions.
type SessionConfig struct {
	Store      Store
	TTL        time.Duration
	CookieName string
	CookiePath string
	Domain     string
	Secure     bool
	HTTPOnly   bool
	SameSite   http.SameSite
	HeaderName string
}

func (cfg SessionConfig) withDefaults() SessionConfig {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "ignite.sid"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	return cfg
}

// Sessions returns two collaborating pieces wired separately because this
// framework's middleware chain only runs ahead of the handler (spec.md
// §4.4): mw loads the session into the context before routing runs, and
// hook persists it after the handler returns, registered as
//
//	mw, hook := middleware.Sessions(cfg)
//	a.Use(mw)
//	a.OnResponse(hook)
func Sessions(cfg SessionConfig) (mw func(*ctx.Context) ctx.Result, hook app.ResponseHook) {
	cfg = cfg.withDefaults()

	mw = func(c *ctx.Context) ctx.Result {
		id := readSessionID(c.Request(), cfg)
		var sess Session
		if id != "" {
			if vals, ok := cfg.Store.Get(id); ok {
				sess = Session{ID: id, Values: vals}
			} else {
				sess = Session{ID: id, Values: map[string]any{}, isNew: true}
			}
		} else {
			sess = Session{Values: map[string]any{}, isNew: true}
		}
		c.Set(sessionContextKey, &sess)
		return ctx.None
	}

	hook = func(c *ctx.Context, _ ctx.Result) bool {
		sess := SessionFromCtx(c)
		if !sess.changed && !(sess.isNew && sess.ID != "") {
			return false
		}
		if sess.ID == "" {
			sess.ID = newSessionID()
		}
		if sess.regenerated && sess.oldID != "" {
			_ = cfg.Store.Delete(sess.oldID)
		}
		_ = cfg.Store.Save(sess.ID, sess.Values, cfg.TTL)
		writeSessionID(c, sess.ID, cfg)
		return false
	}
	return mw, hook
}

// SessionFromCtx retrieves the Session loaded by the Sessions middleware.
// Safe to call even without Sessions registered (returns an empty,
// unpersisted Session).
func SessionFromCtx(c *ctx.Context) *Session {
	if v, ok := c.Get(sessionContextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return &Session{Values: make(map[string]any)}
}

func readSessionID(r *http.Request, cfg SessionConfig) string {
	if cfg.HeaderName != "" {
		if hv := r.Header.Get(cfg.HeaderName); hv != "" {
			return hv
		}
	}
	if cfg.CookieName != "" {
		if ck, err := r.Cookie(cfg.CookieName); err == nil && ck.Value != "" {
			return ck.Value
		}
	}
	return ""
}

func writeSessionID(c *ctx.Context, id string, cfg SessionConfig) {
	if cfg.HeaderName != "" {
		c.Header(cfg.HeaderName, id)
	}
	if cfg.CookieName != "" {
		c.SetCookie(&http.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     cfg.CookiePath,
			Domain:   cfg.Domain,
			Secure:   cfg.Secure,
			HttpOnly: cfg.HTTPOnly,
			SameSite: cfg.SameSite,
			Expires:  time.Now().Add(cfg.TTL),
		})
	}
}

// newSessionID returns a 256-bit, URL-safe random session ID.
func newSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("session: failed to read random bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
