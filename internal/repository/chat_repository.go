package repository

import (
	"context"

	"whispr-go/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatSessionRepository 定义了 AI 会话的数据操作接口。
type ChatSessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.ChatSession, error)
	FindByUser(ctx context.Context, userID string) (*model.ChatSession, error)
	Create(ctx context.Context, session *model.ChatSession) error
	Upsert(ctx context.Context, session *model.ChatSession) error
}

type chatSessionRepository struct {
	db *gorm.DB
}

// NewChatSessionRepository 创建一个新的 ChatSessionRepository 实例。
func NewChatSessionRepository(db *gorm.DB) ChatSessionRepository {
	return &chatSessionRepository{db: db}
}

func (r *chatSessionRepository) FindByID(ctx context.Context, id string) (*model.ChatSession, error) {
	var s model.ChatSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByUser 按用户查询会话，只取一条。
func (r *chatSessionRepository) FindByUser(ctx context.Context, userID string) (*model.ChatSession, error) {
	var s model.ChatSession
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Create 插入新会话。user_id 上有唯一索引，并发的首轮对话中后到者返回 gorm.ErrDuplicatedKey。
func (r *chatSessionRepository) Create(ctx context.Context, session *model.ChatSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// Upsert 以合并语义写回已有会话：冲突时只更新本次写入涉及的列，created_at 保持不变。
// MySQL 的 ON DUPLICATE KEY UPDATE 对任意唯一键冲突都会触发，
// 因此 escalated 在 SQL 中取旧值与新值的 OR，任何写入都不会把它改回 false。
// 新会话必须走 Create。
func (r *chatSessionRepository) Upsert(ctx context.Context, session *model.ChatSession) error {
	updates := append(clause.AssignmentColumns([]string{"user_id", "messages", "last_updated_at"}),
		clause.Assignment{Column: clause.Column{Name: "escalated"}, Value: gorm.Expr("`escalated` OR VALUES(`escalated`)")},
	)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: updates,
	}).Create(session).Error
}
