package repository

import (
	"context"

	"whispr-go/internal/model"

	"gorm.io/gorm"
)

// AdminActionRepository 定义了审计日志的数据操作接口。只追加，不修改。
type AdminActionRepository interface {
	Create(ctx context.Context, action *model.AdminAction) error
	List(ctx context.Context, limit int) ([]model.AdminAction, error)
	ListByTarget(ctx context.Context, postID string) ([]model.AdminAction, error)
}

type adminActionRepository struct {
	db *gorm.DB
}

// NewAdminActionRepository 创建一个新的 AdminActionRepository 实例。
func NewAdminActionRepository(db *gorm.DB) AdminActionRepository {
	return &adminActionRepository{db: db}
}

func (r *adminActionRepository) Create(ctx context.Context, action *model.AdminAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

// List 按时间倒序返回最近的审计条目，limit <= 0 时返回全部。
func (r *adminActionRepository) List(ctx context.Context, limit int) ([]model.AdminAction, error) {
	var actions []model.AdminAction
	q := r.db.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&actions).Error
	return actions, err
}

// ListByTarget 返回某条 whisper 的全部审计条目。
func (r *adminActionRepository) ListByTarget(ctx context.Context, postID string) ([]model.AdminAction, error) {
	var actions []model.AdminAction
	err := r.db.WithContext(ctx).Where("target_id = ?", postID).Order("timestamp desc").Find(&actions).Error
	return actions, err
}
