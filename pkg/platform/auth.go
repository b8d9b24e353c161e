package platform

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"anoa.com/isfportal/pkg/logger"
	"github.com/robfig/cron/v3"
)

type User struct {
	ID               string            `json:"id" yaml:"id"`
	Email            string            `json:"email" yaml:"email"`
	Role             string            `json:"role" yaml:"role"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at,omitempty" yaml:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]string `json:"user_metadata" yaml:"user_metadata"`
	CreatedAt        time.Time         `json:"created_at" yaml:"created_at"`
}

type Session struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	TokenType    string `json:"token_type" yaml:"token_type"`
	ExpiresIn    int64  `json:"expires_in" yaml:"expires_in"`
	ExpiresAt    int64  `json:"expires_at" yaml:"expires_at"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	User         User   `json:"user" yaml:"user"`
}

// ExpiresWithin reports whether the access token is expired or will be
// within d of now.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	return time.Unix(s.ExpiresAt, 0).Sub(now) <= d
}

type SignUpResult struct {
	User    User     `json:"user"`
	Session *Session `json:"session"`
}

type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	EventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthChangeFunc receives session changes in the order they happened.
// session is nil when signed out.
type AuthChangeFunc func(event AuthEvent, session *Session)

// Subscription releases a listener. Unsubscribe is idempotent.
type Subscription struct {
	once sync.Once
	stop func()
}

// NewSubscription wraps a release function.
func NewSubscription(stop func()) *Subscription {
	return &Subscription{stop: stop}
}

func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.stop)
}

const refreshMargin = 90 * time.Second

type AuthClient struct {
	client      *Client
	storage     SessionStorage
	refreshSpec string
	now         func() time.Time

	mu        sync.Mutex
	session   *Session
	loaded    bool
	listeners map[int]*authListener
	nextID    int

	cronMu sync.Mutex
	cron   *cron.Cron
}

func newAuthClient(c *Client, storage SessionStorage, refreshSpec string) *AuthClient {
	return &AuthClient{
		client:      c,
		storage:     storage,
		refreshSpec: refreshSpec,
		now:         time.Now,
		listeners:   make(map[int]*authListener),
	}
}

// loadLocked reads the stored session once. Callers hold a.mu.
func (a *AuthClient) loadLocked() {
	if a.loaded {
		return
	}
	a.loaded = true

	s, err := a.storage.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("stored session unreadable, starting signed out")
		return
	}
	a.session = s
}

// Initialize loads the stored session and refreshes it when the access
// token has already expired. It emits nothing.
func (a *AuthClient) Initialize(ctx context.Context) error {
	a.mu.Lock()
	a.loadLocked()
	s := a.session
	a.mu.Unlock()

	if s == nil || !s.ExpiresWithin(a.now(), 0) {
		return nil
	}
	if s.RefreshToken == "" {
		a.replace(nil, "")
		return nil
	}

	fresh, err := a.requestRefresh(ctx, s.RefreshToken)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			a.replace(nil, "")
			return nil
		}
		return err
	}
	a.replace(fresh, "")
	return nil
}

// Session returns a copy of the current session or nil.
func (a *AuthClient) Session() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadLocked()
	if a.session == nil {
		return nil
	}
	s := *a.session
	return &s
}

// OnAuthStateChange registers fn. The current session is delivered first
// as INITIAL_SESSION; every later change follows in order on a dedicated
// goroutine.
func (a *AuthClient) OnAuthStateChange(fn AuthChangeFunc) *Subscription {
	l := &authListener{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	a.mu.Lock()
	a.loadLocked()
	id := a.nextID
	a.nextID++
	a.listeners[id] = l
	l.push(EventInitialSession, a.session)
	a.mu.Unlock()

	go l.run()

	return &Subscription{stop: func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
		close(l.done)
	}}
}

// replace swaps the session, persists it and notifies listeners. An empty
// event replaces silently.
func (a *AuthClient) replace(s *Session, event AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.loaded = true
	a.session = s

	var err error
	if s == nil {
		err = a.storage.Clear()
	} else {
		err = a.storage.Save(s)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to persist session")
	}

	if event == "" {
		return
	}
	for _, l := range a.listeners {
		l.push(event, s)
	}
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string, data map[string]string) (*SignUpResult, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     data,
	}

	var res SignUpResult
	if err := a.client.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, nil, &res); err != nil {
		return nil, err
	}
	if res.Session != nil {
		a.replace(res.Session, EventSignedIn)
	}
	return &res, nil
}

func (a *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	query := url.Values{"grant_type": {"password"}}

	var s Session
	if err := a.client.do(ctx, http.MethodPost, "/auth/v1/token", query, body, nil, &s); err != nil {
		return nil, err
	}
	a.replace(&s, EventSignedIn)
	return &s, nil
}

// SignOut revokes the session server-side and then drops it locally. A
// session the server no longer knows is dropped as well.
func (a *AuthClient) SignOut(ctx context.Context) error {
	if a.Session() != nil {
		err := a.client.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, a.client.authHeader(), nil)
		var apiErr *Error
		if err != nil && !(errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound)) {
			return err
		}
	}
	a.replace(nil, EventSignedOut)
	return nil
}

func (a *AuthClient) GetUser(ctx context.Context) (*User, error) {
	var u User
	if err := a.client.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil, a.client.authHeader(), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// RefreshSession rotates the refresh token. A rejected refresh token
// signs the client out.
func (a *AuthClient) RefreshSession(ctx context.Context) (*Session, error) {
	current := a.Session()
	if current == nil || current.RefreshToken == "" {
		return nil, &Error{Status: http.StatusBadRequest, Message: "Auth session missing!"}
	}

	s, err := a.requestRefresh(ctx, current.RefreshToken)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			a.replace(nil, EventSignedOut)
		}
		return nil, err
	}
	a.replace(s, EventTokenRefreshed)
	return s, nil
}

func (a *AuthClient) requestRefresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	query := url.Values{"grant_type": {"refresh_token"}}

	var s Session
	if err := a.client.do(ctx, http.MethodPost, "/auth/v1/token", query, body, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// StartAutoRefresh checks the session on the configured schedule and
// refreshes it shortly before it expires.
func (a *AuthClient) StartAutoRefresh() error {
	a.cronMu.Lock()
	defer a.cronMu.Unlock()
	if a.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(a.refreshSpec, a.refreshIfDue); err != nil {
		return err
	}
	c.Start()
	a.cron = c
	return nil
}

func (a *AuthClient) StopAutoRefresh() {
	a.cronMu.Lock()
	c := a.cron
	a.cron = nil
	a.cronMu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (a *AuthClient) refreshIfDue() {
	s := a.Session()
	if s == nil || s.RefreshToken == "" || !s.ExpiresWithin(a.now(), refreshMargin) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if _, err := a.RefreshSession(ctx); err != nil {
		logger.Warn().Err(err).Msg("session auto-refresh failed")
	}
}

type authNotice struct {
	event   AuthEvent
	session *Session
}

type authListener struct {
	fn   AuthChangeFunc
	wake chan struct{}
	done chan struct{}

	mu    sync.Mutex
	queue []authNotice
}

func (l *authListener) push(event AuthEvent, s *Session) {
	var cp *Session
	if s != nil {
		v := *s
		cp = &v
	}

	l.mu.Lock()
	l.queue = append(l.queue, authNotice{event: event, session: cp})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *authListener) run() {
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 {
				l.mu.Unlock()
				break
			}
			n := l.queue[0]
			l.queue = l.queue[1:]
			l.mu.Unlock()

			select {
			case <-l.done:
				return
			default:
			}
			l.fn(n.event, n.session)
		}
	}
}
