// Package session owns the authenticated identity of the front end: it
// hydrates it from durable storage, replaces it on login and profile update,
// clears it on logout or session expiry, and hands the bearer credential to
// the API client.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/pawconnect/internal/apiclient"
	"github.com/tbourn/pawconnect/internal/domain"
)

const (
	// DefaultKey is the durable key of the serialized session.
	DefaultKey = "userInfo"
	// LegacyKey is the key older front ends stored the session under. It is
	// migrated to the current key once and then removed.
	LegacyKey = "userLogin"

	// SignInPath is the backend sign-in endpoint.
	SignInPath = "/api/auth/signin"
)

// Option configures a Cache.
type Option func(*Cache)

// WithKey sets the durable key (default DefaultKey).
func WithKey(key string) Option {
	return func(c *Cache) {
		if k := strings.TrimSpace(key); k != "" {
			c.key = k
		}
	}
}

// WithClock replaces time.Now for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is the single owner of the session. It is safe for concurrent use
// and implements apiclient.TokenSource.
type Cache struct {
	store Storage
	api   *apiclient.Client
	key   string
	now   func() time.Time

	mu       sync.RWMutex
	cur      *domain.Session
	hydrated bool
	subs     []func(*domain.Session)
}

// New returns an empty, not yet hydrated cache. api may be nil when the
// cache is only read (Login then fails).
func New(store Storage, api *apiclient.Client, opts ...Option) *Cache {
	c := &Cache{store: store, api: api, key: DefaultKey, now: time.Now}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// Init hydrates the cache from durable storage. A session found only under
// the legacy key is moved to the current key. Unparseable stored data is
// dropped and the cache starts empty.
func (c *Cache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hydrateLocked(ctx)
}

func (c *Cache) hydrateLocked(ctx context.Context) error {
	c.hydrated = true
	c.cur = nil

	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return err
	}
	if !ok {
		if raw, ok, err = c.migrateLegacy(ctx); err != nil || !ok {
			return err
		}
	}

	s, err := decode(raw)
	if err != nil {
		log.Warn().Err(err).Str("key", c.key).Msg("dropping unreadable session")
		return c.store.Delete(ctx, c.key)
	}
	c.cur = &s
	return nil
}

func (c *Cache) migrateLegacy(ctx context.Context) (string, bool, error) {
	if c.key == LegacyKey {
		return "", false, nil
	}
	raw, ok, err := c.store.Get(ctx, LegacyKey)
	if err != nil || !ok {
		return "", false, err
	}
	if err := c.store.Put(ctx, c.key, raw); err != nil {
		return "", false, err
	}
	if err := c.store.Delete(ctx, LegacyKey); err != nil {
		return "", false, err
	}
	log.Info().Str("from", LegacyKey).Str("to", c.key).Msg("migrated stored session")
	return raw, true, nil
}

func decode(raw string) (domain.Session, error) {
	var s domain.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, err
	}
	if s.ID == 0 {
		return s, errors.New("stored session has no id")
	}
	return s, nil
}

// Current returns the in-memory session.
func (c *Cache) Current() (domain.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return domain.Session{}, false
	}
	return *c.cur, true
}

// Resolve returns the acting identity: the in-memory session, hydrating from
// durable storage first when the cache has not been initialized.
func (c *Cache) Resolve(ctx context.Context) (domain.Session, bool) {
	c.mu.RLock()
	hydrated := c.hydrated
	c.mu.RUnlock()

	if !hydrated {
		c.mu.Lock()
		if !c.hydrated {
			if err := c.hydrateLocked(ctx); err != nil {
				log.Warn().Err(err).Msg("session hydrate failed")
			}
		}
		c.mu.Unlock()
	}
	return c.Current()
}

// Authenticated resolves the identity and fails with an auth-required error
// unless it holds a usable bearer credential.
func (c *Cache) Authenticated(ctx context.Context) (domain.Session, error) {
	s, ok := c.Resolve(ctx)
	if !ok || !TokenUsable(s.Token(), c.now()) {
		return domain.Session{}, apiclient.NewAuthRequiredError()
	}
	return s, nil
}

// Roles returns the role flags of the current session.
func (c *Cache) Roles() Roles {
	s, _ := c.Current()
	return DeriveRoles(s)
}

// Token implements apiclient.TokenSource.
func (c *Cache) Token() string {
	s, ok := c.Current()
	if !ok {
		return ""
	}
	return s.Token()
}

// ExpireToken implements apiclient.TokenSource: the session is cleared only
// if it still holds tok, so concurrent rejections of one token clear once.
func (c *Cache) ExpireToken(ctx context.Context, tok string) bool {
	c.mu.Lock()
	if c.cur == nil || tok == "" || c.cur.Token() != tok {
		c.mu.Unlock()
		return false
	}
	c.cur = nil
	subs := c.subscribers()
	err := c.store.Delete(ctx, c.key)
	c.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Msg("session clear failed")
	}
	publish(subs, nil)
	return true
}

// Login authenticates against the backend. On success the returned identity
// is validated, persisted and becomes current; on failure nothing changes.
// When logins overlap, the last one to resolve wins.
func (c *Cache) Login(ctx context.Context, email, password string) (domain.Session, error) {
	s, err := c.Authenticate(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}
	if err := c.Set(ctx, s); err != nil {
		return domain.Session{}, err
	}
	return s, nil
}

// Authenticate signs in and validates the returned identity without making
// it current. Callers that arbitrate between overlapping logins pass the
// winner to Set.
func (c *Cache) Authenticate(ctx context.Context, email, password string) (domain.Session, error) {
	if c.api == nil {
		return domain.Session{}, errors.New("session: no api client")
	}
	body := domain.Credentials{Email: strings.TrimSpace(email), Password: password}
	s, err := apiclient.Do[domain.Session](ctx, c.api, http.MethodPost, SignInPath, body, apiclient.AuthNone)
	if err != nil {
		return domain.Session{}, err
	}
	if s.ID == 0 {
		return domain.Session{}, apiclient.InvalidResponse(http.StatusOK, errors.New("identity without id"))
	}
	return s, nil
}

// Set replaces the session, in memory and durably.
func (c *Cache) Set(ctx context.Context, s domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if err := c.store.Put(ctx, c.key, string(raw)); err != nil {
		c.mu.Unlock()
		return err
	}
	v := s
	c.cur = &v
	c.hydrated = true
	subs := c.subscribers()
	c.mu.Unlock()

	publish(subs, &v)
	return nil
}

// Logout clears the session in memory and durably. It is idempotent.
func (c *Cache) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.cur = nil
	c.hydrated = true
	subs := c.subscribers()
	err := errors.Join(c.store.Delete(ctx, c.key), c.store.Delete(ctx, LegacyKey))
	c.mu.Unlock()

	publish(subs, nil)
	return err
}

// Subscribe registers fn to be called with the new session (nil when
// cleared) after every change.
func (c *Cache) Subscribe(fn func(*domain.Session)) {
	c.mu.Lock()
	c.subs = append(c.subs, fn)
	c.mu.Unlock()
}

func (c *Cache) subscribers() []func(*domain.Session) {
	out := make([]func(*domain.Session), len(c.subs))
	copy(out, c.subs)
	return out
}

func publish(subs []func(*domain.Session), s *domain.Session) {
	for _, fn := range subs {
		if s == nil {
			fn(nil)
			continue
		}
		v := *s
		fn(&v)
	}
}
