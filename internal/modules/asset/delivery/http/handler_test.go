package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/isfportal/internal/modules/asset/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) Upload(ctx context.Context, ownerID uuid.UUID, bucket, objectPath string, r io.Reader) (*dto.UploadResponse, error) {
	args := m.Called(ctx, ownerID, bucket, objectPath, r)
	resp, _ := args.Get(0).(*dto.UploadResponse)
	return resp, args.Error(1)
}

func (m *MockAssetService) CleanupOrphans(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newRouter(svc *MockAssetService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/storage/v1/object/:bucket/*path", func(c *gin.Context) {
		c.Set("user_id", userID.String())
	}, NewAssetHandler(svc).Upload)
	return r
}

func TestUploadHandler(t *testing.T) {
	userID := uuid.New()
	svc := new(MockAssetService)
	svc.On("Upload", mock.Anything, userID, "event-images", "/123_poster.png", mock.Anything).
		Return(&dto.UploadResponse{Key: "event-images/123_poster.png", PublicURL: "https://cdn/x.webp"}, nil)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "poster.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/storage/v1/object/event-images/123_poster.png", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	newRouter(svc, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"Key":"event-images/123_poster.png","public_url":"https://cdn/x.webp"}`, w.Body.String())
}

func TestUploadHandlerRequiresFile(t *testing.T) {
	svc := new(MockAssetService)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/storage/v1/object/event-images/a.png", nil)
	newRouter(svc, uuid.New()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
