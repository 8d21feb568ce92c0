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

// ActionView 是带可读描述的审计条目，用于管理后台展示。
type ActionView struct {
	model.AdminAction
	Description string `json:"description"`
}

// NewActionViews 为审计条目附加描述。
func NewActionViews(actions []model.AdminAction) []ActionView {
	views := make([]ActionView, 0, len(actions))
	for i := range actions {
		views = append(views, ActionView{AdminAction: actions[i], Description: actions[i].Description()})
	}
	return views
}

// ModerationService 接口定义了所有管理员审核相关的业务操作。
type ModerationService interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
	ListActions(ctx context.Context, limit int) ([]ActionView, error)
	Relabel(ctx context.Context, adminID, postID string, label model.AILabel) (*model.Post, error)
	ToggleVisibility(ctx context.Context, adminID, postID string) (*model.Post, error)
	GenerateReply(ctx context.Context, adminID, postID string) (*model.Post, error)
}

// moderationService 是 ModerationService 接口的实现。
// 每个操作都是“先修改、再追加审计日志”，两步之间没有事务。
type moderationService struct {
	postRepo   repository.PostRepository
	actionRepo repository.AdminActionRepository
	guardian   ai.Guardian
	feed       repository.ChangeFeed
	indexer    PostIndexer
}

// NewModerationService 创建一个新的 ModerationService 实例。indexer 可以为 nil。
func NewModerationService(postRepo repository.PostRepository, actionRepo repository.AdminActionRepository, guardian ai.Guardian, feed repository.ChangeFeed, indexer PostIndexer) ModerationService {
	return &moderationService{
		postRepo:   postRepo,
		actionRepo: actionRepo,
		guardian:   guardian,
		feed:       feed,
		indexer:    indexer,
	}
}

// ListPosts 返回全部 whisper（包括已隐藏的），按时间倒序。
func (s *moderationService) ListPosts(ctx context.Context) ([]model.Post, error) {
	posts, err := s.postRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListActions 返回最近的审计条目，按时间倒序。
func (s *moderationService) ListActions(ctx context.Context, limit int) ([]ActionView, error) {
	actions, err := s.actionRepo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list admin actions: %w", err)
	}
	return NewActionViews(actions), nil
}

// Relabel 修改 whisper 的 AI 标签，并记录 {from, to}。
func (s *moderationService) Relabel(ctx context.Context, adminID, postID string, label model.AILabel) (*model.Post, error) {
	if !label.Valid() {
		return nil, ErrInvalidLabel
	}
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.UpdateLabel(ctx, postID, label); err != nil {
		return nil, fmt.Errorf("update label: %w", err)
	}
	return s.record(ctx, adminID, postID, model.RelabelDetails{From: post.AILabel, To: label})
}

// ToggleVisibility 翻转 whisper 的 hidden 状态，并记录翻转前的值。
func (s *moderationService) ToggleVisibility(ctx context.Context, adminID, postID string) (*model.Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.SetHidden(ctx, postID, !post.Hidden); err != nil {
		return nil, fmt.Errorf("update visibility: %w", err)
	}
	return s.record(ctx, adminID, postID, model.VisibilityDetails{WasHidden: post.Hidden})
}

// GenerateReply 让 AI 基于 whisper 内容生成回复并写入。AI 失败或回复为空时不做任何修改。
func (s *moderationService) GenerateReply(ctx context.Context, adminID, postID string) (*model.Post, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	fb, err := s.guardian.FeedbackReply(ctx, post.Content)
	if err != nil {
		log.Warnf("[ModerationService] AI 生成回复失败, postId: %s, error: %v", postID, err)
		return nil, fmt.Errorf("%w: %w", ErrAIUnavailable, err)
	}
	if strings.TrimSpace(fb.Reply) == "" {
		log.Warnf("[ModerationService] AI 返回空回复, postId: %s", postID)
		return nil, fmt.Errorf("%w: empty reply", ErrAIUnavailable)
	}
	if err := s.postRepo.SetReply(ctx, postID, fb.Reply); err != nil {
		return nil, fmt.Errorf("update reply: %w", err)
	}
	return s.record(ctx, adminID, postID, model.ReplyDetails{GeneratedReply: fb.Reply})
}

func (s *moderationService) findPost(ctx context.Context, postID string) (*model.Post, error) {
	post, err := s.postRepo.FindByID(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	return post, nil
}

// record 在修改成功后追加审计日志、发布通知并重新读取 whisper。
// 日志追加失败时修改依然生效，返回 ErrAuditLogFailed。
func (s *moderationService) record(ctx context.Context, adminID, postID string, details model.ActionDetails) (*model.Post, error) {
	var logErr error
	action, err := model.NewAdminAction(uuid.NewString(), adminID, postID, details, time.Now().UTC())
	if err == nil {
		err = s.actionRepo.Create(ctx, action)
	}
	if err != nil {
		log.Errorf("[ModerationService] 追加审计日志失败, 修改已生效, postId: %s, type: %s, error: %v", postID, details.ActionType(), err)
		logErr = fmt.Errorf("%w: %w", ErrAuditLogFailed, err)
	} else {
		log.Infow("[ModerationService] 管理员操作", "adminId", adminID, "postId", postID, "type", action.Type)
		publishChange(ctx, s.feed, repository.TopicAdminActions, map[string]string{"actionId": action.ID})
	}
	publishChange(ctx, s.feed, repository.TopicPosts, map[string]string{"postId": postID})

	updated, err := s.postRepo.FindByID(ctx, postID)
	if err != nil {
		if logErr != nil {
			return nil, logErr
		}
		return nil, fmt.Errorf("reload post: %w", err)
	}
	indexPostAsync(s.indexer, updated)
	if logErr != nil {
		return nil, logErr
	}
	return updated, nil
}
