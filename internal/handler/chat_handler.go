// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"medi-chat-go/internal/model"
	"medi-chat-go/internal/service"
	"medi-chat-go/pkg/llm"
	"medi-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责处理聊天与会话管理相关的 API 请求。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler 实例。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// SendMessageRequest 定义了发送消息 API 的请求体结构。
// SessionID 为空表示开启一个新会话。
type SendMessageRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID *uint  `json:"session_id"`
}

// currentUser 从上下文中取出由 AuthMiddleware 注入的 User 对象。
func currentUser(c *gin.Context) *model.User {
	userValue := c.MustGet("user")
	return userValue.(*model.User)
}

// SendMessage 处理一次聊天消息的发送。
// 限流/配额导致的降级回答仍返回 200，由 is_fallback 字段标识。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No message provided!"})
		return
	}

	user := currentUser(c)

	result, err := h.chatService.SendMessage(c.Request.Context(), user, req.Message, req.SessionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Invalid session ID!"})
		case errors.Is(err, service.ErrAPIKeyNotConfigured):
			log.Errorf("SendMessage: invalid completion service configuration: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "AI service is not configured!"})
		case errors.Is(err, llm.ErrAuthentication):
			log.Errorf("SendMessage: completion service rejected credentials: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid AI service credentials!"})
		default:
			log.Errorf("SendMessage: failed for user %d, error: %v", user.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error processing chat request!"})
		}
		return
	}

	resp := gin.H{
		"message":    "Message sent successfully!",
		"response":   result.Response,
		"session_id": result.SessionID,
	}
	// 降级回答需要让前端能够与正常回答区分开
	if result.IsFallback {
		resp["is_fallback"] = true
		resp["error_type"] = result.ErrorType
	}
	c.JSON(http.StatusOK, resp)
}

// GetSessions 返回当前用户的全部会话，按最近更新时间倒序。
func (h *ChatHandler) GetSessions(c *gin.Context) {
	user := currentUser(c)

	sessions, err := h.chatService.GetSessions(user.ID)
	if err != nil {
		log.Errorf("GetSessions: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve sessions!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// parseIDParam 解析路径中的数字 ID 参数。
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// GetSession 返回指定会话及其全部消息（按时间升序）。
func (h *ChatHandler) GetSession(c *gin.Context) {
	user := currentUser(c)

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found!"})
		return
	}

	session, messages, err := h.chatService.GetSessionWithMessages(sessionID, user.ID)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Session not found!"})
			return
		}
		log.Errorf("GetSession: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to retrieve session!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":  session,
		"messages": messages,
	})
}

// DeleteSession 删除指定会话，并级联删除其全部消息。
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	user := currentUser(c)

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found!"})
		return
	}

	if err := h.chatService.DeleteSession(sessionID, user.ID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Session not found!"})
			return
		}
		log.Errorf("DeleteSession: failed for user %d, error: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete session!"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session deleted successfully!"})
}
