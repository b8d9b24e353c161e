package session

import (
	"context"
	"errors"
	"testing"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/platform"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProvider struct {
	mock.Mock
	notify platform.AuthChangeFunc
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*platform.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.Session), args.Error(1)
}

func (m *MockProvider) SignUp(ctx context.Context, email, password string, data map[string]string) (*platform.SignUpResult, error) {
	args := m.Called(ctx, email, password, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*platform.SignUpResult), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockProvider) OnAuthStateChange(fn platform.AuthChangeFunc) *platform.Subscription {
	m.notify = fn
	return m.Called().Get(0).(*platform.Subscription)
}

type MockProfileFetcher struct {
	mock.Mock
}

func (m *MockProfileFetcher) FetchProfile(ctx context.Context, id string) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

var (
	janeID = uuid.MustParse("0b6f6c9e-2a52-4f4e-9a43-0d7a5f0f6a11")
	jane   = &entity.Profile{ID: janeID, Name: "Jane Doe", StudentID: "BK2023C07", Email: "jane@x.edu", Role: entity.RoleMember}
	admin  = &entity.Profile{ID: janeID, Name: "Jane Doe", StudentID: "BK2023C07", Email: "jane@x.edu", Role: entity.RoleAdmin}
)

func janeSession() *platform.Session {
	return &platform.Session{AccessToken: "tok", User: platform.User{ID: janeID.String(), Email: "jane@x.edu"}}
}

func startGateway(t *testing.T) (*Gateway, *Store, *MockProvider, *MockProfileFetcher, *bool) {
	t.Helper()
	provider := new(MockProvider)
	profiles := new(MockProfileFetcher)
	released := false
	provider.On("OnAuthStateChange").Return(platform.NewSubscription(func() { released = true })).Once()

	store := NewStore()
	gw := NewGateway(provider, profiles, store)
	require.NoError(t, gw.Start(context.Background()))
	require.NotNil(t, provider.notify)
	return gw, store, provider, profiles, &released
}

func TestStoreStartsLoading(t *testing.T) {
	store := NewStore()
	s := store.Session()
	assert.True(t, s.Loading)
	assert.Nil(t, s.Identity)
	assert.Equal(t, access.Pending, access.Decide(s, entity.RoleAdmin))
	assert.Equal(t, uint64(0), store.Version())
}

func TestInitialSessionResolvesIdentity(t *testing.T) {
	tcases := []struct {
		name     string
		session  *platform.Session
		profile  *entity.Profile
		fetchErr error
		want     *entity.Profile
		decision access.Decision
	}{
		{name: "no stored session", session: nil, want: nil, decision: access.Deny},
		{name: "admin session", session: janeSession(), profile: admin, want: admin, decision: access.Allow},
		{name: "member session", session: janeSession(), profile: jane, want: jane, decision: access.Deny},
		{name: "profile fetch fails", session: janeSession(), fetchErr: errors.New("connection refused"), want: nil, decision: access.Deny},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			gw, store, provider, profiles, _ := startGateway(t)
			defer gw.Close()

			if tc.session != nil {
				if tc.fetchErr != nil {
					profiles.On("FetchProfile", mock.Anything, janeID.String()).Return(nil, tc.fetchErr).Once()
				} else {
					profiles.On("FetchProfile", mock.Anything, janeID.String()).Return(tc.profile, nil).Once()
				}
			}

			provider.notify(platform.EventInitialSession, tc.session)

			s := store.Session()
			assert.False(t, s.Loading)
			assert.Equal(t, tc.want, s.Identity)
			assert.Equal(t, tc.decision, access.Decide(s, entity.RoleAdmin))
			assert.Equal(t, uint64(1), store.Version())
			profiles.AssertExpectations(t)
		})
	}
}

func TestLogoutClearsIdentityExactlyOnce(t *testing.T) {
	gw, store, provider, profiles, _ := startGateway(t)
	defer gw.Close()

	profiles.On("FetchProfile", mock.Anything, janeID.String()).Return(jane, nil)
	provider.notify(platform.EventInitialSession, janeSession())
	require.NotNil(t, store.Session().Identity)

	provider.On("SignOut", mock.Anything).Return(nil).Once()
	require.NoError(t, gw.Logout(context.Background()))

	// Logout itself never writes the store.
	assert.NotNil(t, store.Session().Identity)
	before := store.Version()

	var writes int
	unwatch := store.Watch(func(Session) { writes++ })
	defer unwatch()

	provider.notify(platform.EventSignedOut, nil)
	provider.notify(platform.EventSignedOut, nil)

	assert.Nil(t, store.Session().Identity)
	assert.Equal(t, before+1, store.Version())
	assert.Equal(t, 1, writes)
}

func TestTokenRefreshWithSameProfileIsNotAWrite(t *testing.T) {
	gw, store, provider, profiles, _ := startGateway(t)
	defer gw.Close()

	profiles.On("FetchProfile", mock.Anything, janeID.String()).Return(jane, nil)
	provider.notify(platform.EventSignedIn, janeSession())
	provider.notify(platform.EventTokenRefreshed, janeSession())

	assert.Equal(t, uint64(1), store.Version())
}

func TestLoginDoesNotWriteStore(t *testing.T) {
	gw, store, provider, _, _ := startGateway(t)
	defer gw.Close()

	provider.On("SignInWithPassword", mock.Anything, "jane@x.edu", "Secret123").Return(janeSession(), nil).Once()

	require.NoError(t, gw.Login(context.Background(), "jane@x.edu", "Secret123"))
	assert.True(t, store.Session().Loading)
	assert.Equal(t, uint64(0), store.Version())
}

func TestGatewayErrorsKeepProviderMessage(t *testing.T) {
	gw, _, provider, _, _ := startGateway(t)
	defer gw.Close()

	provider.On("SignInWithPassword", mock.Anything, "jane@x.edu", "nope").
		Return(nil, &platform.Error{Status: 400, Message: "Invalid login credentials"}).Once()
	provider.On("SignUp", mock.Anything, "jane@x.edu", "Secret123", map[string]string{"name": "Jane Doe", "student_id": "BK2023C07"}).
		Return(nil, &platform.Error{Status: 422, Message: "User already registered"}).Once()

	err := gw.Login(context.Background(), "jane@x.edu", "nope")
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid login credentials", authErr.Message)
	assert.Equal(t, "login", authErr.Op)

	err = gw.Register(context.Background(), "Jane Doe", "BK2023C07", "jane@x.edu", "Secret123")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "User already registered", err.Error())
}

func TestCloseReleasesSubscription(t *testing.T) {
	gw, _, provider, _, released := startGateway(t)

	require.NoError(t, gw.Start(context.Background()))
	gw.Close()
	gw.Close()

	assert.True(t, *released)
	provider.AssertNumberOfCalls(t, "OnAuthStateChange", 1)
}

func TestCloseDuringProfileFetchLeavesStoreAlone(t *testing.T) {
	gw, store, provider, profiles, _ := startGateway(t)

	fetching := make(chan struct{})
	profiles.On("FetchProfile", mock.Anything, janeID.String()).
		Run(func(args mock.Arguments) {
			close(fetching)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	handled := make(chan struct{})
	go func() {
		provider.notify(platform.EventInitialSession, janeSession())
		close(handled)
	}()

	<-fetching
	before := store.Version()
	gw.Close()
	<-handled

	assert.Equal(t, before, store.Version())
	assert.True(t, store.Session().Loading)

	// Notifications that arrive after Close are ignored too.
	provider.notify(platform.EventSignedOut, nil)
	assert.Equal(t, before, store.Version())
}
