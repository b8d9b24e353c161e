package service

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"anoa.com/isfportal/internal/entity"
	"anoa.com/isfportal/internal/modules/identity/dto"
	"anoa.com/isfportal/internal/modules/identity/repository"
	"anoa.com/isfportal/pkg/apperror"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/ratelimit"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Messages below are shown to users verbatim by the portal.
var (
	ErrUserAlreadyRegistered = apperror.New(http.StatusUnprocessableEntity, "User already registered", apperror.ErrAlreadyExists)
	ErrInvalidCredentials    = apperror.New(http.StatusBadRequest, "Invalid login credentials", apperror.ErrBadRequest)
	ErrEmailNotConfirmed     = apperror.New(http.StatusBadRequest, "Email not confirmed", apperror.ErrBadRequest)
	ErrInvalidRefreshToken   = apperror.New(http.StatusBadRequest, "Invalid Refresh Token: Refresh Token Not Found", apperror.ErrBadRequest)
	ErrInvalidConfirmation   = apperror.New(http.StatusBadRequest, "Email link is invalid or has expired", apperror.ErrBadRequest)
	ErrSignInRateLimited     = apperror.New(http.StatusTooManyRequests, "For security purposes, you can only request this after a moment", apperror.ErrRateLimitExceeded)
)

type AuthService interface {
	SignUp(ctx context.Context, input dto.SignUpInput) (*dto.SignUpResponse, error)
	SignInWithPassword(ctx context.Context, input dto.PasswordGrantInput) (*dto.SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.SessionResponse, error)
	Logout(ctx context.Context, claims *AccessClaims) error
	GetUser(ctx context.Context, accountID uuid.UUID) (*dto.UserResponse, error)
	Verify(ctx context.Context, token string) error
}

type Options struct {
	Secret              string
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	RequireConfirmation bool
	PublicURL           string
	SignInWindow        time.Duration
}

type authService struct {
	repo    repository.AccountRepository
	tokens  repository.TokenStore
	limiter ratelimit.Limiter
	opts    Options
	now     func() time.Time
}

func NewAuthService(repo repository.AccountRepository, tokens repository.TokenStore, limiter ratelimit.Limiter, opts Options) AuthService {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 30 * 24 * time.Hour
	}
	return &authService{
		repo:    repo,
		tokens:  tokens,
		limiter: limiter,
		opts:    opts,
		now:     time.Now,
	}
}

func (s *authService) SignUp(ctx context.Context, input dto.SignUpInput) (*dto.SignUpResponse, error) {
	email := normalizeEmail(input.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyRegistered
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &entity.Account{
		Email:        email,
		PasswordHash: string(hash),
	}
	if !s.opts.RequireConfirmation {
		now := s.now().UTC()
		account.ConfirmedAt = &now
	}

	profile := &entity.Profile{
		Name:      strings.TrimSpace(input.Data.Name),
		StudentID: strings.TrimSpace(input.Data.StudentID),
		Email:     email,
		Role:      entity.RoleMember,
	}

	if err := s.repo.CreateWithProfile(ctx, account, profile); err != nil {
		if errors.Is(err, apperror.ErrAlreadyExists) {
			return nil, ErrUserAlreadyRegistered
		}
		return nil, err
	}

	resp := &dto.SignUpResponse{User: toUserResponse(account)}
	if !account.Confirmed() {
		s.sendConfirmation(account)
		return resp, nil
	}

	session, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, err
	}
	resp.Session = session
	return resp, nil
}

func (s *authService) SignInWithPassword(ctx context.Context, input dto.PasswordGrantInput) (*dto.SessionResponse, error) {
	email := normalizeEmail(input.Email)

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, "sign_in", email, s.opts.SignInWindow)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, ErrSignInRateLimited
		}
	}

	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !account.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}

	return s.issueSession(ctx, account)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.SessionResponse, error) {
	accountID, err := s.tokens.ConsumeRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	return s.issueSession(ctx, account)
}

func (s *authService) Logout(ctx context.Context, claims *AccessClaims) error {
	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return apperror.ErrUnauthorized
	}

	if err := s.tokens.RevokeAll(ctx, accountID); err != nil {
		return err
	}

	if claims.ExpiresAt != nil && claims.ID != "" {
		if err := s.tokens.DenyAccess(ctx, claims.ID, claims.ExpiresAt.Sub(s.now())); err != nil {
			return err
		}
	}

	return nil
}

func (s *authService) GetUser(ctx context.Context, accountID uuid.UUID) (*dto.UserResponse, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.New(http.StatusNotFound, "User not found", apperror.ErrNotFound)
		}
		return nil, err
	}

	user := toUserResponse(account)
	return &user, nil
}

func (s *authService) Verify(ctx context.Context, token string) error {
	accountID, err := parseConfirmationToken(s.opts.Secret, token)
	if err != nil {
		return ErrInvalidConfirmation
	}

	if _, err := s.repo.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return ErrInvalidConfirmation
		}
		return err
	}

	return s.repo.Confirm(ctx, accountID, s.now().UTC())
}

func (s *authService) issueSession(ctx context.Context, account *entity.Account) (*dto.SessionResponse, error) {
	now := s.now()

	accessToken, claims, err := signAccessToken(s.opts.Secret, account.ID, account.Email, now, s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	if err := s.tokens.SaveRefresh(ctx, refreshToken, account.ID, s.opts.RefreshTTL); err != nil {
		return nil, err
	}

	return &dto.SessionResponse{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.opts.AccessTTL / time.Second),
		ExpiresAt:    claims.ExpiresAt.Unix(),
		RefreshToken: refreshToken,
		User:         toUserResponse(account),
	}, nil
}

// sendConfirmation logs the link; there is no mail transport.
func (s *authService) sendConfirmation(account *entity.Account) {
	token, err := signConfirmationToken(s.opts.Secret, account.ID, s.now())
	if err != nil {
		logger.Error().Err(err).Str("email", account.Email).Msg("failed to sign confirmation token")
		return
	}

	link := s.opts.PublicURL + "/auth/v1/verify?token=" + url.QueryEscape(token)
	logger.Info().Str("email", account.Email).Str("link", link).Msg("confirmation link issued")
}

func toUserResponse(account *entity.Account) dto.UserResponse {
	meta := map[string]string{}
	if account.Profile != nil {
		meta["name"] = account.Profile.Name
		meta["student_id"] = account.Profile.StudentID
	}
	return dto.UserResponse{
		ID:               account.ID,
		Email:            account.Email,
		Role:             "authenticated",
		EmailConfirmedAt: account.ConfirmedAt,
		UserMetadata:     meta,
		CreatedAt:        account.CreatedAt,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
