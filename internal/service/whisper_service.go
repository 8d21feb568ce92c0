package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"whispr-go/internal/ai"
	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/log"
	"whispr-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MinWhisperLength 是 trim 后内容的最小字符数。
const MinWhisperLength = 5

// FeedbackDispatcher 投递反馈任务。实现不得阻塞调用方。
type FeedbackDispatcher interface {
	Dispatch(ctx context.Context, task tasks.FeedbackTask) error
}

// SubmitResult 是一次提交的结果。Duplicate 为 true 时没有写入任何数据。
type SubmitResult struct {
	Post      *model.Post `json:"post,omitempty"`
	Duplicate bool        `json:"duplicate"`
	Message   string      `json:"message,omitempty"`
}

// WhisperService 定义了 whisper 提交与公开列表的业务操作。
type WhisperService interface {
	Submit(ctx context.Context, userID, content string) (*SubmitResult, error)
	ListVisible(ctx context.Context) ([]model.Post, error)
}

type whisperService struct {
	postRepo   repository.PostRepository
	guardian   ai.Guardian
	dispatcher FeedbackDispatcher
	feed       repository.ChangeFeed
	indexer    PostIndexer
}

// NewWhisperService 创建一个新的 WhisperService 实例。indexer 可以为 nil。
func NewWhisperService(postRepo repository.PostRepository, guardian ai.Guardian, dispatcher FeedbackDispatcher, feed repository.ChangeFeed, indexer PostIndexer) WhisperService {
	return &whisperService{
		postRepo:   postRepo,
		guardian:   guardian,
		dispatcher: dispatcher,
		feed:       feed,
		indexer:    indexer,
	}
}

// Submit 校验、去重、分类并保存一条 whisper，随后在后台请求 AI 反馈。
func (s *whisperService) Submit(ctx context.Context, userID, content string) (*SubmitResult, error) {
	// 1. 长度校验只看 trim 后的内容，存储和去重使用原文
	if utf8.RuneCountInString(strings.TrimSpace(content)) < MinWhisperLength {
		return nil, ErrContentTooShort
	}

	// 2. 同一用户内容完全相同视为重复
	_, err := s.postRepo.FindByUserAndContent(ctx, userID, content)
	if err == nil {
		log.Infof("[WhisperService] 重复的 whisper, userId: %s", userID)
		return &SubmitResult{Duplicate: true, Message: MsgDuplicateWhisper}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorf("[WhisperService] 查询重复 whisper 失败, userId: %s, error: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	// 3. AI 分类，失败时不写入任何数据
	cls, err := s.guardian.Classify(ctx, content)
	if err != nil {
		log.Warnf("[WhisperService] AI 分类失败, userId: %s, error: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrServiceBusy, err)
	}

	// 4. 保存
	post := &model.Post{
		ID:            uuid.NewString(),
		UserID:        userID,
		Content:       content,
		ContentDigest: model.ContentDigest(content),
		CreatedAt:     time.Now().UTC(),
		AILabel:       cls.Label,
		AIConfidence:  cls.Confidence,
		Hidden:        false,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		// 并发提交相同内容时由唯一索引兜底
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Infof("[WhisperService] 并发提交触发唯一索引, 按重复处理, userId: %s", userID)
			return &SubmitResult{Duplicate: true, Message: MsgDuplicateWhisper}, nil
		}
		log.Errorf("[WhisperService] 保存 whisper 失败, userId: %s, error: %v", userID, err)
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	log.Infow("[WhisperService] whisper 已保存", "postId", post.ID, "userId", userID, "aiLabel", post.AILabel, "aiConfidence", post.AIConfidence)

	publishChange(ctx, s.feed, repository.TopicPosts, map[string]string{"postId": post.ID})
	indexPostAsync(s.indexer, post)

	// 5. 反馈只推送给提交者，失败不影响本次提交
	task := tasks.FeedbackTask{
		TaskID:      uuid.NewString(),
		UserID:      userID,
		Message:     content,
		SubmittedAt: model.FormatISO(post.CreatedAt),
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		log.Errorf("[WhisperService] 投递反馈任务失败, postId: %s, error: %v", post.ID, err)
	}

	return &SubmitResult{Post: post}, nil
}

// ListVisible 返回公开 feed：未隐藏的 whisper，按时间倒序。
func (s *whisperService) ListVisible(ctx context.Context) ([]model.Post, error) {
	posts, err := s.postRepo.ListVisible(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visible posts: %w", err)
	}
	return posts, nil
}
