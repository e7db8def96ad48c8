// Package session holds the login state of the command-line client: the
// bearer token and user, persisted in a durable Store and exposed read-only
// to the rest of the program.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard-go/internal/model"
)

// Session is an immutable snapshot of the login state.
// Authenticated is true iff Token != "" and User != nil.
type Session struct {
	Authenticated bool
	Token         string
	User          *model.User
}

// Authenticator exchanges credentials for a token and user.
type Authenticator interface {
	Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error)
}

// Navigator is told where to send the user, e.g. the login route after
// logout or a denied guard check.
type Navigator func(route string)

// Options configures a Manager. Zero values take the defaults noted per field.
type Options struct {
	TokenKey   string    // default "authToken"
	UserKey    string    // default "authUser"
	LoginRoute string    // default "/login"
	Navigator  Navigator // default no-op
}

// Manager is the single source of truth for the login state. Mutations go
// through Restore, Login and Logout only; each persists before it publishes,
// so readers never observe a partial update.
type Manager struct {
	store      Store
	auth       Authenticator
	nav        Navigator
	tokenKey   string
	userKey    string
	loginRoute string
	logger     *slog.Logger
	now        func() time.Time

	// opMu serializes Restore, Login and Logout so storage and the
	// published state always describe the same session.
	opMu sync.Mutex

	mu      sync.RWMutex
	state   Session
	subs    map[int]chan Session
	nextSub int
}

// NewManager creates a Manager with an empty session. Call Restore to load
// a persisted one.
func NewManager(store Store, auth Authenticator, opts Options, logger *slog.Logger) *Manager {
	if opts.TokenKey == "" {
		opts.TokenKey = "authToken"
	}
	if opts.UserKey == "" {
		opts.UserKey = "authUser"
	}
	if opts.LoginRoute == "" {
		opts.LoginRoute = "/login"
	}
	if opts.Navigator == nil {
		opts.Navigator = func(string) {}
	}
	return &Manager{
		store:      store,
		auth:       auth,
		nav:        opts.Navigator,
		tokenKey:   opts.TokenKey,
		userKey:    opts.UserKey,
		loginRoute: opts.LoginRoute,
		logger:     logger.With("component", "session"),
		now:        time.Now,
		subs:       make(map[int]chan Session),
	}
}

// Restore loads the persisted token and user. A malformed or expired record
// is logged, both keys are removed and the session stays empty; only
// storage failures are returned.
func (m *Manager) Restore(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	token, err := m.store.Get(ctx, m.tokenKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: read token: %w", err)
	}
	raw, err := m.store.Get(ctx, m.userKey)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session: read user: %w", err)
	}
	if token == "" || raw == "" {
		return nil
	}

	var user *model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil || user == nil {
		if err == nil {
			err = errors.New("user record is null")
		}
		m.logger.Warn("error parsing stored user data", "err", err)
		return m.discard(ctx)
	}
	if m.tokenExpired(token) {
		m.logger.Warn("stored token has expired; discarding session", "user", user.Email)
		return m.discard(ctx)
	}

	m.set(Session{Authenticated: true, Token: token, User: user})
	m.logger.Debug("session restored", "user", user.Email)
	return nil
}

// discard clears the stored record after a failed restore. Delete failures
// are logged, not returned.
func (m *Manager) discard(ctx context.Context) error {
	if err := m.clear(ctx); err != nil {
		m.logger.Error("clearing stored session", "err", err)
	}
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim has passed.
// Opaque tokens never expire client-side; the signature is not checked.
func (m *Manager) tokenExpired(token string) bool {
	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(m.now())
}

// Login authenticates against the backend, persists the token and user and
// publishes the new session. On any failure the current session is left
// untouched and the error is returned; *client.LoginError carries the kind.
func (m *Manager) Login(ctx context.Context, creds model.Credentials) (*model.LoginResponse, error) {
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		m.logger.Error("login error", "email", creds.Email, "err", err)
		return nil, err
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return nil, fmt.Errorf("session: encode user: %w", err)
	}

	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.store.Set(ctx, m.tokenKey, resp.Token); err != nil {
		return nil, fmt.Errorf("session: persist token: %w", err)
	}
	if err := m.store.Set(ctx, m.userKey, string(userJSON)); err != nil {
		// Do not leave a token without its user behind.
		_ = m.store.Delete(ctx, m.tokenKey)
		return nil, fmt.Errorf("session: persist user: %w", err)
	}

	m.set(Session{Authenticated: true, Token: resp.Token, User: resp.User})
	m.logger.Info("logged in", "user", resp.User.Email)
	return resp, nil
}

// Logout removes the stored record, resets the session and navigates to the
// login route. The in-memory session is cleared even if storage fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	err := m.clear(ctx)
	m.opMu.Unlock()

	m.nav(m.loginRoute)
	if err != nil {
		return fmt.Errorf("session: logout: %w", err)
	}
	return nil
}

func (m *Manager) clear(ctx context.Context) error {
	err := errors.Join(
		m.store.Delete(ctx, m.tokenKey),
		m.store.Delete(ctx, m.userKey),
	)
	m.set(Session{})
	return err
}

func (m *Manager) set(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	for _, ch := range m.subs {
		// Latest value wins: drop an unread snapshot rather than block.
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Token returns the bearer token, or "" when logged out.
func (m *Manager) Token() string {
	return m.Snapshot().Token
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().Authenticated
}

// CurrentUser returns the logged-in user, or nil.
func (m *Manager) CurrentUser() *model.User {
	return m.Snapshot().User
}

// LoginRoute is where logout and denied guard checks navigate to.
func (m *Manager) LoginRoute() string {
	return m.loginRoute
}

// Subscribe returns a channel that receives the current session and then
// every later one. A slow reader only ever sees the latest value. cancel
// closes the channel.
func (m *Manager) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state
	m.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			close(ch)
			m.mu.Unlock()
		})
	}
	return ch, cancel
}
