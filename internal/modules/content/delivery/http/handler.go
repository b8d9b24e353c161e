package handler

import (
	"io"
	"net/http"

	"anoa.com/isfportal/internal/middleware"
	"anoa.com/isfportal/internal/modules/content/dto"
	"anoa.com/isfportal/internal/modules/content/service"
	"anoa.com/isfportal/pkg/apperror"
	"anoa.com/isfportal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type ContentHandler struct {
	service service.ContentService
}

func NewContentHandler(service service.ContentService) *ContentHandler {
	return &ContentHandler{service: service}
}

func caller(c *gin.Context) service.Caller {
	id, err := response.GetUserID(c)
	if err != nil {
		id = uuid.Nil
	}
	return service.Caller{ID: id, Subject: middleware.Subject(c)}
}

func parseQuery(c *gin.Context) (dto.Query, bool) {
	q, err := dto.ParseQuery(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return q, false
	}
	return q, true
}

func (h *ContentHandler) List(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}

	rows, err := h.service.List(c.Request.Context(), c.Param("table"), q, caller(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

func (h *ContentHandler) Insert(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		response.ResponseError(c, apperror.ErrBadRequest)
		return
	}

	rows, err := h.service.Insert(c.Request.Context(), c.Param("table"), body, caller(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rows)
}

func (h *ContentHandler) Delete(c *gin.Context) {
	q, ok := parseQuery(c)
	if !ok {
		return
	}

	rows, err := h.service.Delete(c.Request.Context(), c.Param("table"), q, caller(c))
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}
