package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"concert-tickets/config"
	"concert-tickets/internal/handler"
	"concert-tickets/internal/middleware"
	"concert-tickets/internal/mocks"
	"concert-tickets/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	InvalidJSON = `{"invalid": json}`
	secret      = []byte(config.LoadTestConfig().Auth.JWTSecret)
)

type testServer struct {
	router    *gin.Engine
	events    *mocks.EventServiceMock
	tickets   *mocks.TicketServiceMock
	purchases *mocks.PurchaseServiceMock
}

func setupTestRouter() *testServer {
	gin.SetMode(gin.TestMode)
	s := &testServer{
		router:    newRouter(),
		events:    mocks.NewEventServiceMock(),
		tickets:   mocks.NewTicketServiceMock(),
		purchases: mocks.NewPurchaseServiceMock(),
	}
	handler.NewEventHandler(s.events, s.tickets).RegisterRoutes(s.router)
	handler.NewTicketHandler(s.tickets, s.purchases).RegisterRoutes(s.router)
	return s
}

// newRouter 與 main 相同：請求取消會傳到 service
func newRouter() *gin.Engine {
	router := gin.New()
	router.ContextWithFallback = true
	router.Use(middleware.Identity(secret))
	return router
}

// create JSON request body
func createJSONRequest(data interface{}) *bytes.Buffer {
	if raw, ok := data.(string); ok {
		return bytes.NewBufferString(raw)
	}
	jsonData, err := json.Marshal(data)
	if err != nil {
		return bytes.NewBuffer([]byte(""))
	}
	return bytes.NewBuffer(jsonData)
}

// create HTTP request with JSON body
func createJSONHTTPRequest(method, url string, data interface{}) *http.Request {
	req, err := http.NewRequest(method, url, createJSONRequest(data))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}

func withUser(t *testing.T, req *http.Request, userID uuid.UUID) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, secret, userID, false))
	return req
}

func withAdmin(t *testing.T, req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testutil.Token(t, secret, uuid.New(), true))
	return req
}
