package handler

import (
	"errors"
	"net/http"

	"whispr-go/internal/middleware"
	"whispr-go/internal/service"
	"whispr-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// WhisperHandler 负责 whisper 的提交与公开 feed。
type WhisperHandler struct {
	whisperService service.WhisperService
}

// NewWhisperHandler 创建一个新的 WhisperHandler 实例。
func NewWhisperHandler(whisperService service.WhisperService) *WhisperHandler {
	return &WhisperHandler{whisperService: whisperService}
}

// SubmitRequest 定义了提交 whisper 的请求体结构。
type SubmitRequest struct {
	Content string `json:"content"`
}

// Submit 处理 whisper 提交。
// AI 反馈在后台生成，只通过 /live/feed/:token 推送给提交者且不落库；
// 客户端需保持该连接才能收到反馈，未连接时反馈会被丢弃。
func (h *WhisperHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Submit: Invalid request payload, error: %v", err)
		respondError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	result, err := h.whisperService.Submit(c.Request.Context(), c.GetString(middleware.ContextUserID), req.Content)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrContentTooShort):
		respondError(c, http.StatusBadRequest, "Whisper must be at least 5 characters long.")
		return
	case errors.Is(err, service.ErrServiceBusy):
		respondError(c, http.StatusServiceUnavailable, "The AI is a bit overloaded right now. Please try sharing your whisper again in a moment.")
		return
	default:
		respondError(c, http.StatusInternalServerError, "Could not post your whisper. Please try again.")
		return
	}

	if result.Duplicate {
		respondOK(c, result.Message, result)
		return
	}
	respondOK(c, "Your whisper has been shared.", result)
}

// List 返回公开 feed。
func (h *WhisperHandler) List(c *gin.Context) {
	posts, err := h.whisperService.ListVisible(c.Request.Context())
	if err != nil {
		log.Error("List: 获取公开 feed 失败", err)
		respondError(c, http.StatusInternalServerError, "Could not load whispers.")
		return
	}
	respondOK(c, "success", posts)
}
