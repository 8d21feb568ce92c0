package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whispr-go/internal/ai"
	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/log"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRequest 是一次支持聊天请求。History 仅为兼容客户端而接收，不会传给模型。
type ChatRequest struct {
	UserID    string
	Message   string
	SessionID string
	History   []model.ChatMessage
}

// ChatReply 是返回给用户的 AI 回复。
type ChatReply struct {
	Response  string `json:"response"`
	Escalate  bool   `json:"escalate"`
	SessionID string `json:"sessionId,omitempty"`
}

// ChatService 定义了 AI 支持聊天的业务操作。
type ChatService interface {
	Send(ctx context.Context, req ChatRequest) (*ChatReply, error)
	Session(ctx context.Context, userID string) (*model.ChatSession, error)
}

type chatService struct {
	sessionRepo repository.ChatSessionRepository
	guardian    ai.Guardian
	notifier    ErrorNotifier
	feed        repository.ChangeFeed
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(sessionRepo repository.ChatSessionRepository, guardian ai.Guardian, notifier ErrorNotifier, feed repository.ChangeFeed) ChatService {
	return &chatService{
		sessionRepo: sessionRepo,
		guardian:    guardian,
		notifier:    notifier,
		feed:        feed,
	}
}

// Send 处理一轮对话。AI 失败时返回兜底回复且不落库；
// 落库失败时仍返回 AI 回复，并通过旁路通知用户。
func (s *chatService) Send(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.History) > 0 {
		log.Infof("[ChatService] 忽略客户端传入的 %d 条历史消息, userId: %s", len(req.History), req.UserID)
		req.History = nil
	}
	sentAt := time.Now()

	turn, err := s.guardian.SupportChat(ctx, req.Message)
	if err != nil {
		log.Warnf("[ChatService] AI 支持聊天失败, 返回兜底回复, userId: %s, error: %v", req.UserID, err)
		return &ChatReply{Response: FallbackChatReply, Escalate: false, SessionID: req.SessionID}, nil
	}

	reply := &ChatReply{Response: turn.Response, Escalate: turn.Escalate, SessionID: req.SessionID}
	session, err := s.persist(ctx, req, turn, sentAt)
	if err != nil {
		s.notifier.NotifyError(ctx, req.UserID, "We couldn't save this conversation.", err)
		return reply, nil
	}
	reply.SessionID = session.ID
	publishChange(ctx, s.feed, repository.ChatTopic(req.UserID), map[string]string{"sessionId": session.ID})
	if session.Escalated {
		log.Infow("[ChatService] 会话已升级", "sessionId", session.ID, "userId", req.UserID)
	}
	return reply, nil
}

// persist 追加本轮两条消息并合并写回。escalated 只能由 false 变为 true。
// 新会话用 Create 插入，并发首轮对话中落败的一方写入失败，不会覆盖已有会话。
func (s *chatService) persist(ctx context.Context, req ChatRequest, turn *ai.ChatTurn, sentAt time.Time) (*model.ChatSession, error) {
	session, err := s.loadSession(ctx, req)
	if err != nil {
		return nil, err
	}
	save := s.sessionRepo.Upsert
	if session == nil {
		session = &model.ChatSession{ID: uuid.NewString(), UserID: req.UserID}
		save = s.sessionRepo.Create
	}
	now := time.Now()
	session.Messages = append(session.Messages,
		model.ChatMessage{Sender: model.SenderUser, Text: req.Message, Timestamp: model.FormatISO(sentAt)},
		model.ChatMessage{Sender: model.SenderAI, Text: turn.Response, Timestamp: model.FormatISO(now)},
	)
	session.Escalated = session.Escalated || turn.Escalate
	session.LastUpdatedAt = now.UTC()
	if err := save(ctx, session); err != nil {
		return nil, fmt.Errorf("save chat session: %w", err)
	}
	return session, nil
}

// loadSession 优先按 sessionId 查找，且会话必须属于当前用户；否则按用户查找。
func (s *chatService) loadSession(ctx context.Context, req ChatRequest) (*model.ChatSession, error) {
	if req.SessionID != "" {
		session, err := s.sessionRepo.FindByID(ctx, req.SessionID)
		switch {
		case err == nil && session.UserID == req.UserID:
			return session, nil
		case err == nil:
			log.Warnf("[ChatService] sessionId 不属于当前用户, 按用户查找, userId: %s", req.UserID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("find chat session: %w", err)
		}
	}
	return s.Session(ctx, req.UserID)
}

// Session 返回用户的会话，不存在时返回 nil。
func (s *chatService) Session(ctx context.Context, userID string) (*model.ChatSession, error) {
	session, err := s.sessionRepo.FindByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find chat session by user: %w", err)
	}
	return session, nil
}
