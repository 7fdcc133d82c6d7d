package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"carmatch/internal/catalog"
	"carmatch/internal/config"
	"carmatch/internal/model"
	"carmatch/internal/service"
)

type recordedFeedback struct {
	sessionID, vehicleID, action string
}

type fakeFeedback struct {
	got []recordedFeedback
	err error
}

func (f *fakeFeedback) LogFeedback(_ context.Context, sessionID, vehicleID, action string) error {
	if f.err != nil {
		return f.err
	}
	f.got = append(f.got, recordedFeedback{sessionID, vehicleID, action})
	return nil
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]model.Vehicle{
		{ID: "1", Name: "Toyota Yaris Ativ", Make: "Toyota", Price: 549000, Fuel: "petrol", Gearbox: "CVT", Body: "sedan"},
		{ID: "2", Name: "Honda City", Make: "Honda", Price: 609000, Fuel: "petrol", Gearbox: "CVT", Body: "sedan"},
	}, nil)
}

func newRouter(t *testing.T, feedback FeedbackLogger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cat := testCatalog()
	questions, err := service.LoadQuestionBank()
	require.NoError(t, err)
	ai := service.NewOpenAIClient(&config.OpenAIConfig{}, zap.NewNop())
	dialogue := service.NewDialogue(cat, ai, service.NewMemorySessionStore(0), questions,
		config.RankingConfig{TopN: 3}, config.DialogueConfig{Seed: 1}, zap.NewNop())

	chat := NewChatHandler(dialogue, zap.NewNop())
	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/chat", chat.Chat)
	api.POST("/chat/reset", chat.Reset)
	api.GET("/vehicles/:id", NewVehicleHandler(cat).GetVehicle)
	api.POST("/feedback", NewFeedbackHandler(feedback).Submit)
	return r
}

func do(r http.Handler, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) model.ChatResponse {
	t.Helper()
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestChat_NewSessionGetsID(t *testing.T) {
	r := newRouter(t, &fakeFeedback{})

	w := do(r, http.MethodPost, "/api/v1/chat", model.ChatRequest{Message: "สวัสดี"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	_, err := uuid.Parse(resp.SessionID)
	assert.NoError(t, err)
	assert.Equal(t, resp.SessionID, w.Header().Get(SessionHeader))
	assert.Equal(t, model.ModeAsk, resp.Mode)
	assert.NotEmpty(t, resp.Reply)
}

func TestChat_SessionFromHeader(t *testing.T) {
	r := newRouter(t, &fakeFeedback{})

	w := do(r, http.MethodPost, "/api/v1/chat", model.ChatRequest{Message: "สวัสดี"}, map[string]string{SessionHeader: "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", decode(t, w).SessionID)

	w = do(r, http.MethodPost, "/api/v1/chat", model.ChatRequest{SessionID: "body-wins", Message: "สวัสดี"}, map[string]string{SessionHeader: "abc"})
	assert.Equal(t, "body-wins", decode(t, w).SessionID)
}

func TestChat_InvalidBody(t *testing.T) {
	r := newRouter(t, &fakeFeedback{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_Reset(t *testing.T) {
	r := newRouter(t, &fakeFeedback{})

	w := do(r, http.MethodPost, "/api/v1/chat/reset", model.ResetRequest{SessionID: "s1"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, model.ModeIntro, resp.Mode)
	assert.Equal(t, "s1", resp.SessionID)
	assert.NotEmpty(t, resp.Next)

	w = do(r, http.MethodPost, "/api/v1/chat/reset", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVehicle_Get(t *testing.T) {
	r := newRouter(t, &fakeFeedback{})

	w := do(r, http.MethodGet, "/api/v1/vehicles/2", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var v model.Vehicle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, "Honda City", v.Name)

	w = do(r, http.MethodGet, "/api/v1/vehicles/99", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedback_Submit(t *testing.T) {
	fb := &fakeFeedback{}
	r := newRouter(t, fb)

	w := do(r, http.MethodPost, "/api/v1/feedback", model.FeedbackRequest{SessionID: "s1", VehicleID: "2", Action: "contact"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []recordedFeedback{{"s1", "2", "contact"}}, fb.got)

	w = do(r, http.MethodPost, "/api/v1/feedback", model.FeedbackRequest{SessionID: "s1", VehicleID: "2", Action: "like"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, fb.got, 1)
}

func TestFeedback_StoreError(t *testing.T) {
	r := newRouter(t, &fakeFeedback{err: errors.New("db down")})

	w := do(r, http.MethodPost, "/api/v1/feedback", model.FeedbackRequest{SessionID: "s1", VehicleID: "2", Action: "click"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "db down")
}
