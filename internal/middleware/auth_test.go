package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) CreateWithProfile(ctx context.Context, a *entity.Account, p *entity.Profile) error {
	return m.Called(ctx, a, p).Error(0)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*entity.Account, error) {
	args := m.Called(ctx, email)
	a, _ := args.Get(0).(*entity.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*entity.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) FindProfile(ctx context.Context, id uuid.UUID) (*entity.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*entity.Profile)
	return p, args.Error(1)
}

func (m *MockAccountRepository) Confirm(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) SaveRefresh(ctx context.Context, token string, id uuid.UUID, ttl time.Duration) error {
	return m.Called(ctx, token, id, ttl).Error(0)
}

func (m *MockTokenStore) ConsumeRefresh(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTokenStore) RevokeAll(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTokenStore) DenyAccess(ctx context.Context, jti string, ttl time.Duration) error {
	return m.Called(ctx, jti, ttl).Error(0)
}

func (m *MockTokenStore) IsDenied(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}

func issue(t *testing.T, subject uuid.UUID, jti string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": subject.String(),
		"jti": jti,
		"aud": "authenticated",
		"exp": exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	tcases := []struct {
		name       string
		header     string
		denied     bool
		wantStatus int
	}{
		{name: "missing token", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + issue(t, userID, "j1", time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized},
		{name: "denied token", header: "Bearer " + issue(t, userID, "j2", time.Now().Add(time.Hour)), denied: true, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + issue(t, userID, "j3", time.Now().Add(time.Hour)), wantStatus: http.StatusOK},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			tokens := new(MockTokenStore)
			tokens.On("IsDenied", mock.Anything, mock.Anything).Return(tc.denied, nil)
			m := NewAuthMiddleware(new(MockAccountRepository), tokens, secret)

			r := gin.New()
			r.GET("/", m.RequireAuth(), func(c *gin.Context) {
				assert.Equal(t, userID.String(), c.GetString("user_id"))
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := new(MockTokenStore)
	tokens.On("IsDenied", mock.Anything, "j1").Return(false, nil)
	m := NewAuthMiddleware(new(MockAccountRepository), tokens, secret)

	r := gin.New()
	r.GET("/ws", m.RequireAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+issue(t, uuid.New(), "j1", time.Now().Add(time.Hour)), nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	tcases := []struct {
		name       string
		profile    *entity.Profile
		findErr    error
		required   string
		wantStatus int
	}{
		{"admin allowed", &entity.Profile{ID: userID, Role: entity.RoleAdmin}, nil, entity.RoleAdmin, http.StatusOK},
		{"member forbidden", &entity.Profile{ID: userID, Role: entity.RoleMember}, nil, entity.RoleAdmin, http.StatusForbidden},
		{"member on any member", &entity.Profile{ID: userID, Role: entity.RoleMember}, nil, access.RoleAnyMember, http.StatusOK},
		{"missing profile", nil, apperror.ErrNotFound, entity.RoleAdmin, http.StatusUnauthorized},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockAccountRepository)
			repo.On("FindProfile", mock.Anything, userID).Return(tc.profile, tc.findErr)
			tokens := new(MockTokenStore)
			tokens.On("IsDenied", mock.Anything, mock.Anything).Return(false, nil)
			m := NewAuthMiddleware(repo, tokens, secret)

			r := gin.New()
			r.GET("/", m.RequireAuth(), m.RequireRole(tc.required), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, userID, "j", time.Now().Add(time.Hour)))
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()
	repo := new(MockAccountRepository)
	repo.On("FindProfile", mock.Anything, userID).Return(&entity.Profile{ID: userID, Role: entity.RoleAdmin}, nil)
	tokens := new(MockTokenStore)
	tokens.On("IsDenied", mock.Anything, mock.Anything).Return(false, nil)
	m := NewAuthMiddleware(repo, tokens, secret)

	var got access.Decision
	r := gin.New()
	r.GET("/", m.OptionalAuth(), func(c *gin.Context) {
		got = access.Decide(Subject(c), entity.RoleAdmin)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.Deny, got)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issue(t, userID, "j", time.Now().Add(time.Hour)))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, access.Allow, got)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAdminRejectsOtherRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	userID := uuid.New()

	tcases := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"admin", entity.RoleAdmin, http.StatusOK},
		{"executive", entity.RoleExecutive, http.StatusForbidden},
		{"member", entity.RoleMember, http.StatusForbidden},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockAccountRepository)
			repo.On("FindProfile", mock.Anything, userID).Return(&entity.Profile{ID: userID, Role: tc.role}, nil)
			tokens := new(MockTokenStore)
			tokens.On("IsDenied", mock.Anything, mock.Anything).Return(false, nil)
			m := NewAuthMiddleware(repo, tokens, secret)

			r := gin.New()
			r.POST("/storage/v1/object/:bucket/*path", m.RequireAuth(), m.RequireAdmin(), func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/storage/v1/object/event-images/poster.png", nil)
			req.Header.Set("Authorization", "Bearer "+issue(t, userID, "j", time.Now().Add(time.Hour)))
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}
