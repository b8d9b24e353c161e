package handler

import (
	"net/http"
	"strconv"

	"anoa.com/isfportal/internal/modules/search/service"
	"anoa.com/isfportal/pkg/response"
	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

type SearchHandler struct {
	service service.SearchService
}

func NewSearchHandler(service service.SearchService) *SearchHandler {
	return &SearchHandler{service: service}
}

func (h *SearchHandler) Search(c *gin.Context) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLimit)
	}

	resp, err := h.service.Search(c.Query("q"), limit)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
