package handler

import (
	"net/http"

	"anoa.com/isfportal/internal/modules/asset/service"
	"anoa.com/isfportal/pkg/response"
	"github.com/gin-gonic/gin"
)

type AssetHandler struct {
	service service.AssetService
}

func NewAssetHandler(service service.AssetService) *AssetHandler {
	return &AssetHandler{service: service}
}

func (h *AssetHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer f.Close()

	resp, err := h.service.Upload(c.Request.Context(), userID, c.Param("bucket"), c.Param("path"), f)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
