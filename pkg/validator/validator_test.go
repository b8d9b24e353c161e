package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventForm struct {
	Title string `validate:"required"`
	Date  string `validate:"required,datetime=2006-01-02"`
	Email string `validate:"omitempty,email"`
}

func TestFormatValidationError(t *testing.T) {
	err := Struct(eventForm{Date: "yesterday", Email: "nope"})
	require.Error(t, err)

	msg := FormatValidationError(err)
	assert.Contains(t, msg, "Title is required")
	assert.Contains(t, msg, "Date must be a date (2006-01-02)")
	assert.Contains(t, msg, "Email must be a valid email")
}

func TestFormatValidationError_PlainError(t *testing.T) {
	assert.Equal(t, "boom", FormatValidationError(errors.New("boom")))
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(eventForm{Title: "Innovate-a-Thon", Date: "2025-03-01"}))
}
