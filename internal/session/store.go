// Package session holds the authenticated identity, persists it and verifies
// it against the server on startup.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/notekeeper/internal/errs"
	"github.com/and161185/notekeeper/internal/model"
	"github.com/and161185/notekeeper/internal/observe"
)

// User-facing fallbacks when the server gives no message.
const (
	LoginFailedMsg    = "Login failed. Please check your credentials and try again."
	RegisterFailedMsg = "Registration failed. Please try again."
)

// Authenticator is the subset of the API client used by the store.
type Authenticator interface {
	Login(ctx context.Context, cr model.Credentials) (model.Session, error)
	Register(ctx context.Context, p model.Profile) (model.Session, error)
	Verify(ctx context.Context, token string) error
}

// Store owns the single active session. Subscribers are notified on every
// identity change: adoption by login, register or restore, and logout.
type Store struct {
	auth    Authenticator
	storage Storage
	log     *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	cur    model.Session
	active bool

	subs observe.Subject[model.Session]
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// WithClock overrides time.Now for expiry checks.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New returns an empty store.
func New(auth Authenticator, storage Storage, opts ...Option) *Store {
	s := &Store{auth: auth, storage: storage, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Restore loads the persisted record and adopts it if the server accepts its
// token. Any failure discards the record. There is no retry.
func (s *Store) Restore(ctx context.Context) bool {
	rec, err := s.storage.Load()
	if errors.Is(err, errs.ErrNoSession) {
		return false
	}
	if err != nil {
		s.log.Warn("session record unreadable, discarding", zap.Error(err))
		s.discard()
		return false
	}

	if expired(rec.Token, s.now()) {
		s.log.Info("stored session expired")
		s.discard()
		return false
	}
	if err := s.auth.Verify(ctx, rec.Token); err != nil {
		s.log.Info("stored session rejected", zap.Error(err))
		s.discard()
		return false
	}

	s.adopt(rec)
	return true
}

// expired reports whether token is a JWT whose exp claim lies in the past.
// Tokens that are not JWTs are left to the server.
func expired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}

func (s *Store) discard() {
	if err := s.storage.Clear(); err != nil {
		s.log.Warn("clear session record", zap.Error(err))
	}
}

// Login posts credentials and adopts the returned session. Errors carry a
// user-facing message (see errs.Message).
func (s *Store) Login(ctx context.Context, cr model.Credentials) (model.Session, error) {
	cr.Email = strings.TrimSpace(cr.Email)
	if cr.Email == "" || cr.Password == "" {
		return model.Session{}, errs.Validation("Please enter your email and password")
	}
	sess, err := s.auth.Login(ctx, cr)
	if err != nil {
		s.log.Debug("login failed", zap.Error(err))
		return model.Session{}, errs.Surface(err, LoginFailedMsg)
	}
	return sess, s.persistAndAdopt(sess)
}

// Register creates an account and adopts its session.
func (s *Store) Register(ctx context.Context, p model.Profile) (model.Session, error) {
	p.Email = strings.TrimSpace(p.Email)
	p.Name = strings.TrimSpace(p.Name)
	if p.Email == "" || p.Password == "" || p.Name == "" {
		return model.Session{}, errs.Validation("Please fill in name, email and password")
	}
	sess, err := s.auth.Register(ctx, p)
	if err != nil {
		s.log.Debug("register failed", zap.Error(err))
		return model.Session{}, errs.Surface(err, RegisterFailedMsg)
	}
	return sess, s.persistAndAdopt(sess)
}

// persistAndAdopt adopts sess even when writing the record fails; the error
// is still returned so callers know the next start will not restore it.
func (s *Store) persistAndAdopt(sess model.Session) error {
	s.adopt(sess)
	if err := s.storage.Save(sess); err != nil {
		s.log.Warn("persist session", zap.Error(err))
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

func (s *Store) adopt(sess model.Session) {
	s.mu.Lock()
	s.cur, s.active = sess, true
	s.mu.Unlock()
	s.log.Debug("session adopted", zap.String("user_id", sess.ID))
	s.subs.Publish(sess)
}

// Logout clears the active session and the persisted record. The server is
// not called.
func (s *Store) Logout() error {
	s.mu.Lock()
	was := s.active
	s.cur, s.active = model.Session{}, false
	s.mu.Unlock()

	err := s.storage.Clear()
	if was {
		s.subs.Publish(model.Session{})
	}
	return err
}

// Current returns the active session.
func (s *Store) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.active
}

// Token returns the bearer token or "" without a session. It makes the store
// an api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Token
}

// UserID returns the current identity or "".
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.ID
}

// Subscribe registers fn for identity changes. After logout fn receives the
// zero Session.
func (s *Store) Subscribe(fn func(model.Session)) (unsubscribe func()) {
	return s.subs.Subscribe(fn)
}
