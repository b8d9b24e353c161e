package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/isfportal/internal/modules/search/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) IndexRecords(table string, records []map[string]interface{}) error {
	return m.Called(table, records).Error(0)
}

func (m *MockSearchService) RemoveRecords(table string, ids []uint) error {
	return m.Called(table, ids).Error(0)
}

func (m *MockSearchService) Search(query string, limit int) (*dto.SearchResponse, error) {
	args := m.Called(query, limit)
	r, _ := args.Get(0).(*dto.SearchResponse)
	return r, args.Error(1)
}

func TestSearchHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tcases := []struct {
		name       string
		url        string
		setup      func(m *MockSearchService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "default limit",
			url:  "/api/search?q=robotics",
			setup: func(m *MockSearchService) {
				m.On("Search", "robotics", 20).Return(&dto.SearchResponse{Query: "robotics", Hits: []dto.SearchHit{{Kind: "events", RecordID: 1, Title: "Robotics Fair"}}}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   "Robotics Fair",
		},
		{
			name: "limit capped",
			url:  "/api/search?q=x&limit=500",
			setup: func(m *MockSearchService) {
				m.On("Search", "x", 50).Return(&dto.SearchResponse{Query: "x"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "bad limit",
			url:        "/api/search?q=x&limit=zero",
			setup:      func(m *MockSearchService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "backend failure",
			url:  "/api/search?q=x",
			setup: func(m *MockSearchService) {
				m.On("Search", "x", 20).Return(nil, assert.AnError)
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Internal server error",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(MockSearchService)
			tc.setup(svc)
			r := gin.New()
			r.GET("/api/search", NewSearchHandler(svc).Search)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
			svc.AssertExpectations(t)
		})
	}
}
