package handler

import (
	"errors"
	"net/http"
	"time"

	"anoa.com/isfportal/internal/modules/chat/dto"
	"anoa.com/isfportal/internal/modules/chat/service"
	"anoa.com/isfportal/pkg/logger"
	"anoa.com/isfportal/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	service service.ChatService
	limiter ratelimit.Limiter
	window  time.Duration
}

func NewChatHandler(service service.ChatService, limiter ratelimit.Limiter, window time.Duration) *ChatHandler {
	return &ChatHandler{service: service, limiter: limiter, window: window}
}

// Chat serves every method so that non-POST requests get a JSON 405.
func (h *ChatHandler) Chat(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.Request.Context(), "chat", c.ClientIP(), h.window)
		if err != nil {
			logger.Error().Err(err).Msg("chat rate limit check failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
	}

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
		return
	}

	switch {
	case req.Prompt != "":
		h.stream(c, req.Prompt)
	case req.Message != "":
		h.reply(c, req.Message)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "No message provided"})
	}
}

func (h *ChatHandler) reply(c *gin.Context, message string) {
	text, err := h.service.Reply(c.Request.Context(), message)
	if err != nil {
		logger.Error().Err(err).Msg("chat reply failed")
		if errors.Is(err, service.ErrNoResponse) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "No response from Gemini API"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, dto.ChatReply{Reply: text})
}

func (h *ChatHandler) stream(c *gin.Context, prompt string) {
	started := false
	err := h.service.Stream(c.Request.Context(), prompt, func(fragment string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Content-Type-Options", "nosniff")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(fragment); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})

	if err == nil {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Status(http.StatusOK)
		}
		return
	}

	logger.Error().Err(err).Msg("chat stream failed")
	if !started {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get response from AI"})
		return
	}
	abortStream(c)
}

// abortStream drops the connection so the client sees a truncated body
// instead of a clean end of stream.
func abortStream(c *gin.Context) {
	// gin panics when the underlying writer is not a Hijacker.
	defer func() { _ = recover() }()

	conn, _, err := c.Writer.Hijack()
	if err != nil {
		return
	}
	conn.Close()
}
