package handler

import (
	"errors"
	"net/http"

	"whispr-go/internal/middleware"
	"whispr-go/internal/model"
	"whispr-go/internal/service"
	"whispr-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// ChatHandler 负责 AI 支持聊天。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// ChatRequest 定义了聊天请求体结构。history 仅为兼容旧客户端而接收。
type ChatRequest struct {
	Message   string              `json:"message"`
	SessionID string              `json:"sessionId"`
	History   []model.ChatMessage `json:"history"`
}

// Send 处理一轮聊天。AI 不可用时仍返回 200 和兜底回复。
func (h *ChatHandler) Send(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Send: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	reply, err := h.chatService.Send(c.Request.Context(), service.ChatRequest{
		UserID:    c.GetString(middleware.ContextUserID),
		Message:   req.Message,
		SessionID: req.SessionID,
		History:   req.History,
	})
	if errors.Is(err, service.ErrEmptyMessage) {
		respondError(c, http.StatusBadRequest, "Message cannot be empty.")
		return
	}
	if err != nil {
		log.Error("Send: 聊天处理失败", err)
		respondError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}
	respondOK(c, "success", reply)
}

// Session 返回当前用户的聊天会话，没有会话时 data 为 null。
func (h *ChatHandler) Session(c *gin.Context) {
	session, err := h.chatService.Session(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		log.Error("Session: 获取聊天会话失败", err)
		respondError(c, http.StatusInternalServerError, "Could not load your conversation.")
		return
	}
	respondOK(c, "success", session)
}
