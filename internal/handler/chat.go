package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"carmatch/internal/model"
	"carmatch/internal/service"
)

// SessionHeader carries the conversation id when the body omits it.
const SessionHeader = "X-Session-ID"

// ChatHandler handles conversation HTTP requests
type ChatHandler struct {
	dialogue *service.Dialogue
	log      *zap.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(dialogue *service.Dialogue, log *zap.Logger) *ChatHandler {
	return &ChatHandler{
		dialogue: dialogue,
		log:      log.Named("chat"),
	}
}

// sessionID picks the id from the body, then the header, and otherwise
// starts a new conversation.
func sessionID(c *gin.Context, fromBody string) string {
	if id := strings.TrimSpace(fromBody); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader(SessionHeader)); id != "" {
		return id
	}
	return uuid.NewString()
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	req.SessionID = sessionID(c, req.SessionID)

	resp, err := h.dialogue.Handle(c.Request.Context(), req)
	if err != nil {
		h.log.Error("chat turn failed", zap.String("session_id", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat failed: " + err.Error()})
		return
	}

	c.Header(SessionHeader, resp.SessionID)
	c.JSON(http.StatusOK, resp)
}

// Reset handles POST /api/v1/chat/reset
func (h *ChatHandler) Reset(c *gin.Context) {
	var req model.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.dialogue.Reset(c.Request.Context(), req.SessionID)
	if err != nil {
		h.log.Error("reset failed", zap.String("session_id", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Reset failed: " + err.Error()})
		return
	}

	c.Header(SessionHeader, resp.SessionID)
	c.JSON(http.StatusOK, resp)
}
