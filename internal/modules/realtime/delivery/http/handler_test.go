package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"anoa.com/isfportal/internal/entity"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Publish(ctx context.Context, change entity.ChangeEvent) error {
	return m.Called(ctx, change).Error(0)
}

func (m *MockBroker) Subscribe(ctx context.Context, table string) (*redis.PubSub, error) {
	args := m.Called(ctx, table)
	p, _ := args.Get(0).(*redis.PubSub)
	return p, args.Error(1)
}

func TestSubscribeRejectsUnknownTables(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := new(MockBroker)
	r := gin.New()
	r.GET("/realtime/v1/:table", NewRealtimeHandler(broker).Subscribe)

	for _, table := range []string{"profiles", "accounts", "nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/realtime/v1/"+table, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, table)
	}
	broker.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything)
}

func TestSubscribeReportsBrokerFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := new(MockBroker)
	broker.On("Subscribe", mock.Anything, "threads").Return(nil, assert.AnError)
	r := gin.New()
	r.GET("/realtime/v1/:table", NewRealtimeHandler(broker).Subscribe)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/realtime/v1/threads", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
