package views

import (
	"context"

	"anoa.com/isfportal/pkg/validator"
)

const (
	AllFieldsRequired = "All fields are required."
	RegisterSuccess   = "Registration successful! Please check your email to verify your account."
)

// Authenticator is the part of the auth gateway the forms use.
type Authenticator interface {
	Login(ctx context.Context, email, password string) error
	Register(ctx context.Context, name, studentID, email, password string) error
}

type RegisterForm struct {
	Name      string `validate:"required"`
	StudentID string `validate:"required"`
	Email     string `validate:"required"`
	Password  string `validate:"required"`
}

type RegisterPage struct {
	auth Authenticator
}

func NewRegisterPage(auth Authenticator) *RegisterPage {
	return &RegisterPage{auth: auth}
}

// Submit returns the success message to show. Provider errors come back
// unmodified. A successful registration does not mean a session exists.
func (p *RegisterPage) Submit(ctx context.Context, form RegisterForm) (string, error) {
	if err := validator.Struct(form); err != nil {
		return "", &FormError{Message: AllFieldsRequired}
	}
	if err := p.auth.Register(ctx, form.Name, form.StudentID, form.Email, form.Password); err != nil {
		return "", err
	}
	return RegisterSuccess, nil
}

type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type LoginPage struct {
	auth Authenticator
}

func NewLoginPage(auth Authenticator) *LoginPage {
	return &LoginPage{auth: auth}
}

func (p *LoginPage) Submit(ctx context.Context, form LoginForm) error {
	if err := validator.Struct(form); err != nil {
		return &FormError{Message: AllFieldsRequired}
	}
	return p.auth.Login(ctx, form.Email, form.Password)
}
