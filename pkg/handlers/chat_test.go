package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datachat-inc/datachat-engine/pkg/models"
	"github.com/datachat-inc/datachat-engine/pkg/services"
)

type mockChatService struct {
	ProcessFunc  func(ctx context.Context, req *services.ChatRequest) (*models.Response, error)
	ProcessCalls int
}

func (m *mockChatService) Process(ctx context.Context, req *services.ChatRequest) (*models.Response, error) {
	m.ProcessCalls++
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, req)
	}
	return &models.Response{Kind: models.ResponseText, Text: "ok"}, nil
}

func TestChatHandlerSuccess(t *testing.T) {
	mock := &mockChatService{
		ProcessFunc: func(ctx context.Context, req *services.ChatRequest) (*models.Response, error) {
			assert.Equal(t, "how many employees", req.Question)
			return &models.Response{
				Kind: models.ResponseCard,
				Cards: []models.MetricCard{
					{Title: "Employee Count", Value: "42"},
				},
				SQL: "SELECT COUNT(*) FROM hr_employees",
			}, nil
		},
	}
	h := NewChatHandler(mock, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"question":"how many employees"}`))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"card"`)
	assert.Contains(t, rec.Body.String(), "Employee Count")
	assert.Equal(t, 1, mock.ProcessCalls)
}

func TestChatHandlerRejectsBadBody(t *testing.T) {
	mock := &mockChatService{}
	h := NewChatHandler(mock, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mock.ProcessCalls)
}

func TestChatHandlerRejectsEmptyQuestion(t *testing.T) {
	mock := &mockChatService{}
	h := NewChatHandler(mock, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question":""}`))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, mock.ProcessCalls)
}

func TestChatHandlerServiceError(t *testing.T) {
	mock := &mockChatService{
		ProcessFunc: func(ctx context.Context, req *services.ChatRequest) (*models.Response, error) {
			return nil, errors.New("boom")
		},
	}
	h := NewChatHandler(mock, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"question":"q"}`))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "chat_failed")
}
