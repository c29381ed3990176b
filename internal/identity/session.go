// Package identity is the single source of truth for "who is signed in".
// The sign-in handshake itself happens elsewhere; this package only stores
// its outcome and broadcasts changes.
package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"storefront/internal/models"
	"storefront/internal/shoperr"
	"storefront/internal/storage"
)

type EventKind string

const (
	SignedIn  EventKind = "signed-in"
	SignedOut EventKind = "signed-out"
	Expired   EventKind = "expired"
)

type Event struct {
	Kind EventKind
	User models.User
}

type Listener func(Event)

type Session struct {
	mu    sync.RWMutex
	user  *models.User
	token string

	listenersMu sync.RWMutex
	listeners   map[int]Listener
	nextID      int

	store storage.Store
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Load restores the session from storage. A missing or malformed user or
// token leaves the session signed out.
func Load(store storage.Store, log *zap.Logger, opts ...Option) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		store:     store,
		log:       log.Named("identity"),
		listeners: make(map[int]Listener),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	ctx := context.Background()
	var user models.User
	var token string
	userErr := storage.LoadJSON(ctx, store, storage.KeyUser, &user)
	tokenErr := storage.LoadJSON(ctx, store, storage.KeyAuthToken, &token)
	for _, err := range []error{userErr, tokenErr} {
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("discarding stored session", zap.Error(err))
		}
	}
	if userErr == nil && tokenErr == nil && user.ID != "" && strings.TrimSpace(token) != "" {
		s.user = &user
		s.token = token
	}
	return s
}

// Current returns the signed-in user. The user survives an expired token so
// the UI can offer to sign the same person back in.
func (s *Session) Current() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Token returns the bearer token, or "" when not authenticated.
func (s *Session) Token() string {
	if !s.Authenticated() {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated is true when a user and a non-expired token are present.
// Tokens that are not JWTs are treated as opaque and never expire locally.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	user, token := s.user, s.token
	s.mu.RUnlock()
	if user == nil || token == "" {
		return false
	}
	return !tokenExpired(token, s.now())
}

func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

func (s *Session) SignIn(user models.User, token string) error {
	fields := map[string]string{}
	if strings.TrimSpace(user.ID) == "" {
		fields["userId"] = "is required"
	}
	if strings.TrimSpace(token) == "" {
		fields["token"] = "is required"
	}
	if len(fields) > 0 {
		return shoperr.NewValidation(fields)
	}
	ctx := context.Background()
	if err := storage.SaveJSON(ctx, s.store, storage.KeyUser, user); err != nil {
		s.log.Error("persist user failed", zap.Error(err))
	}
	if err := storage.SaveJSON(ctx, s.store, storage.KeyAuthToken, token); err != nil {
		s.log.Error("persist token failed", zap.Error(err))
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()

	s.log.Info("signed in", zap.String("userId", user.ID))
	s.notify(Event{Kind: SignedIn, User: user})
	return nil
}

func (s *Session) SignOut() {
	ctx := context.Background()
	for _, key := range []string{storage.KeyUser, storage.KeyAuthToken} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.log.Error("clear session failed", zap.String("key", key), zap.Error(err))
		}
	}

	s.mu.Lock()
	var user models.User
	if s.user != nil {
		user = *s.user
	}
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	s.log.Info("signed out")
	s.notify(Event{Kind: SignedOut, User: user})
}

// Expire drops the token after the remote service rejected it. The user
// record is kept.
func (s *Session) Expire() {
	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return
	}
	s.token = ""
	var user models.User
	if s.user != nil {
		user = *s.user
	}
	s.mu.Unlock()

	if err := s.store.Delete(context.Background(), storage.KeyAuthToken); err != nil {
		s.log.Error("clear token failed", zap.Error(err))
	}
	s.log.Warn("session expired", zap.String("userId", user.ID))
	s.notify(Event{Kind: Expired, User: user})
}

// Subscribe registers fn for session changes and returns its remover.
func (s *Session) Subscribe(fn Listener) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Session) notify(e Event) {
	s.listenersMu.RLock()
	ids := make([]int, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[id])
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
