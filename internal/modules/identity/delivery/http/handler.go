package handler

import (
	"net/http"

	"anoa.com/isfportal/internal/modules/identity/dto"
	"anoa.com/isfportal/internal/modules/identity/service"
	"anoa.com/isfportal/pkg/apperror"
	"anoa.com/isfportal/pkg/response"
	"anoa.com/isfportal/pkg/validator"
	"github.com/gin-gonic/gin"
)

// ClaimsKey is where the auth middleware stores the verified access claims.
const ClaimsKey = "token_claims"

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(service service.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var input dto.SignUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	resp, err := h.service.SignUp(c.Request.Context(), input)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Token(c *gin.Context) {
	switch c.Query("grant_type") {
	case "password":
		var input dto.PasswordGrantInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
			return
		}

		session, err := h.service.SignInWithPassword(c.Request.Context(), input)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)

	case "refresh_token":
		var input dto.RefreshGrantInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
			return
		}

		session, err := h.service.Refresh(c.Request.Context(), input.RefreshToken)
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported grant_type"})
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := c.MustGet(ClaimsKey).(*service.AccessClaims)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) GetUser(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	user, err := h.service.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	if err := h.service.Verify(c.Request.Context(), token); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email confirmed. You can now sign in."})
}
