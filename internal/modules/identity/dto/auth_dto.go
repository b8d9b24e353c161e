package dto

import (
	"time"

	"github.com/google/uuid"
)

type SignUpMetadata struct {
	Name      string `json:"name" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
}

type SignUpInput struct {
	Email    string         `json:"email" binding:"required,email"`
	Password string         `json:"password" binding:"required,min=6"`
	Data     SignUpMetadata `json:"data" binding:"required"`
}

type PasswordGrantInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshGrantInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type UserResponse struct {
	ID               uuid.UUID         `json:"id"`
	Email            string            `json:"email"`
	Role             string            `json:"role"`
	EmailConfirmedAt *time.Time        `json:"email_confirmed_at,omitempty"`
	UserMetadata     map[string]string `json:"user_metadata"`
	CreatedAt        time.Time         `json:"created_at"`
}

type SessionResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

type SignUpResponse struct {
	User    UserResponse     `json:"user"`
	Session *SessionResponse `json:"session"`
}
