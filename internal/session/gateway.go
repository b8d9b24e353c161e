package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/platform"
)

// Provider is the identity service the gateway delegates to.
// *platform.AuthClient satisfies it.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*platform.Session, error)
	SignUp(ctx context.Context, email, password string, data map[string]string) (*platform.SignUpResult, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(fn platform.AuthChangeFunc) *platform.Subscription
}

type ProfileFetcher interface {
	FetchProfile(ctx context.Context, id string) (*entity.Profile, error)
}

// AuthError carries the provider's message unmodified for display.
type AuthError struct {
	Op      string
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func authError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	var apiErr *platform.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	return &AuthError{Op: op, Message: msg, Err: err}
}

// Gateway is the only writer of the Store. Login, Register and Logout
// never touch the store; the provider's notification does.
type Gateway struct {
	provider     Provider
	profiles     ProfileFetcher
	store        *Store
	fetchTimeout time.Duration

	handleMu sync.Mutex

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	sub    *platform.Subscription
	closed bool
}

func NewGateway(provider Provider, profiles ProfileFetcher, store *Store) *Gateway {
	return &Gateway{
		provider:     provider,
		profiles:     profiles,
		store:        store,
		fetchTimeout: 10 * time.Second,
	}
}

// Start subscribes to provider notifications until Close or ctx ends.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sub != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.ctx, g.cancel = context.WithCancel(ctx)
	g.closed = false
	g.sub = g.provider.OnAuthStateChange(g.handle)
	return nil
}

func (g *Gateway) Close() {
	g.mu.Lock()
	sub, cancel := g.sub, g.cancel
	g.sub, g.cancel = nil, nil
	g.closed = true
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	sub.Unsubscribe()
}

func (g *Gateway) handle(event platform.AuthEvent, s *platform.Session) {
	g.handleMu.Lock()
	defer g.handleMu.Unlock()

	log := logger.WithField("event", string(event))

	g.mu.Lock()
	base, closed := g.ctx, g.closed
	g.mu.Unlock()
	if closed {
		return
	}

	if s == nil {
		g.store.replace(nil)
		return
	}
	if base == nil {
		base = context.Background()
	}

	ctx, cancel := context.WithTimeout(base, g.fetchTimeout)
	defer cancel()

	profile, err := g.profiles.FetchProfile(ctx, s.User.ID)
	if g.isClosed() {
		// Shutting down; the fetch was cancelled with the gateway.
		return
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", s.User.ID).Msg("failed to load profile")
		g.store.replace(nil)
		return
	}
	g.store.replace(profile)
}

func (g *Gateway) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Gateway) Login(ctx context.Context, email, password string) error {
	_, err := g.provider.SignInWithPassword(ctx, email, password)
	return authError("login", err)
}

// Register creates a pending identity. Whether a session follows is up to
// the provider's confirmation policy.
func (g *Gateway) Register(ctx context.Context, name, studentID, email, password string) error {
	_, err := g.provider.SignUp(ctx, email, password, map[string]string{
		"name":       name,
		"student_id": studentID,
	})
	return authError("register", err)
}

func (g *Gateway) Logout(ctx context.Context) error {
	return authError("logout", g.provider.SignOut(ctx))
}

type platformProfiles struct {
	client *platform.Client
}

func NewProfileFetcher(client *platform.Client) ProfileFetcher {
	return &platformProfiles{client: client}
}

func (p *platformProfiles) FetchProfile(ctx context.Context, id string) (*entity.Profile, error) {
	var rows []entity.Profile
	err := p.client.From("profiles").
		Select("*").
		Eq("id", id).
		Limit(1).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("profile %s not found", id)
	}
	return &rows[0], nil
}
