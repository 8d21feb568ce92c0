// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 各业务流程对外暴露的错误，handler 通过 errors.Is 映射为 HTTP 响应。
var (
	ErrContentTooShort    = errors.New("whisper content too short")
	ErrServiceBusy        = errors.New("ai classification unavailable")
	ErrSubmitFailed       = errors.New("whisper submission failed")
	ErrEmptyMessage       = errors.New("chat message is empty")
	ErrInvalidLabel       = errors.New("invalid ai label")
	ErrPostNotFound       = errors.New("post not found")
	ErrAIUnavailable      = errors.New("ai reply unavailable")
	ErrAuditLogFailed     = errors.New("admin action log append failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSearchUnavailable  = errors.New("search is not enabled")
	ErrExportUnavailable  = errors.New("export is not enabled")
)

// 面向用户的提示文案。
const (
	MsgDuplicateWhisper = "You've already shared this whisper."
	FallbackChatReply   = "I'm having a little trouble connecting right now. Please try again in a moment."
)
