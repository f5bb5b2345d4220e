package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"medi-chat-go/internal/model"
	"medi-chat-go/internal/service"
	"medi-chat-go/pkg/llm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatService 返回预设的结果或错误。
type fakeChatService struct {
	result     *service.SendResult
	sendErr    error
	sessionErr error
}

func (f *fakeChatService) SendMessage(_ context.Context, _ *model.User, _ string, _ *uint) (*service.SendResult, error) {
	return f.result, f.sendErr
}

func (f *fakeChatService) GetSessions(_ uint) ([]model.ChatSession, error) {
	return []model.ChatSession{}, nil
}

func (f *fakeChatService) GetSessionWithMessages(_, _ uint) (*model.ChatSession, []model.ChatMessage, error) {
	if f.sessionErr != nil {
		return nil, nil, f.sessionErr
	}
	return &model.ChatSession{ID: 1, UserID: 1}, []model.ChatMessage{}, nil
}

func (f *fakeChatService) DeleteSession(_, _ uint) error {
	return f.sessionErr
}

func newChatRouter(svc service.ChatService) *gin.Engine {
	r := gin.New()
	h := NewChatHandler(svc)
	group := r.Group("/api/chat", testAuthStub())
	group.POST("/send", h.SendMessage)
	group.GET("/sessions", h.GetSessions)
	group.GET("/sessions/:id", h.GetSession)
	group.DELETE("/sessions/:id", h.DeleteSession)
	return r
}

func postSend(r *gin.Engine, payload string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/send", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSendMessage_Success(t *testing.T) {
	fake := &fakeChatService{result: &service.SendResult{Response: "Take rest.", SessionID: 5}}
	r := newChatRouter(fake)

	w := postSend(r, `{"message": "I feel tired"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Take rest.", body["response"])
	assert.Equal(t, float64(5), body["session_id"])
	// 非兜底回答不携带降级标记
	assert.NotContains(t, body, "is_fallback")
	assert.NotContains(t, body, "error_type")
}

func TestSendMessage_FallbackFlags(t *testing.T) {
	fake := &fakeChatService{result: &service.SendResult{
		Response:   "fallback answer",
		SessionID:  5,
		IsFallback: true,
		ErrorType:  service.ErrorTypeQuotaExceeded,
	}}
	r := newChatRouter(fake)

	w := postSend(r, `{"message": "hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["is_fallback"])
	assert.Equal(t, service.ErrorTypeQuotaExceeded, body["error_type"])
}

func TestSendMessage_MissingMessage(t *testing.T) {
	r := newChatRouter(&fakeChatService{})
	w := postSend(r, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessage_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"session not found", service.ErrSessionNotFound, http.StatusNotFound},
		{"api key not configured", service.ErrAPIKeyNotConfigured, http.StatusInternalServerError},
		{"authentication rejected", fmt.Errorf("%w: bad key", llm.ErrAuthentication), http.StatusUnauthorized},
		{"upstream failure", &llm.APIError{StatusCode: 502, Body: "bad gateway"}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newChatRouter(&fakeChatService{sendErr: tc.err})
			w := postSend(r, `{"message": "hello"}`)
			assert.Equal(t, tc.wantCode, w.Code)
		})
	}
}

func TestGetSession_NotFound(t *testing.T) {
	r := newChatRouter(&fakeChatService{sessionErr: service.ErrSessionNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions/42", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSession_InvalidID(t *testing.T) {
	r := newChatRouter(&fakeChatService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/chat/sessions/abc", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession_NotFound(t *testing.T) {
	r := newChatRouter(&fakeChatService{sessionErr: service.ErrSessionNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/chat/sessions/42", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
