// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"whispr-go/internal/model"

	"gorm.io/gorm"
)

// PostRepository 定义了 whisper 的数据操作接口。
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	FindByUserAndContent(ctx context.Context, userID, content string) (*model.Post, error)
	ListVisible(ctx context.Context) ([]model.Post, error)
	ListAll(ctx context.Context) ([]model.Post, error)
	UpdateLabel(ctx context.Context, id string, label model.AILabel) error
	SetHidden(ctx context.Context, id string, hidden bool) error
	SetReply(ctx context.Context, id string, reply string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建一个新的 PostRepository 实例。
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// Create 插入一条新的 whisper 记录。
func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	if post.ContentDigest == "" {
		post.ContentDigest = model.ContentDigest(post.Content)
	}
	return r.db.WithContext(ctx).Create(post).Error
}

// FindByID 根据 ID 查找 whisper，不存在时返回 gorm.ErrRecordNotFound。
func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// FindByUserAndContent 查找同一用户内容完全相同的 whisper。
// 摘要列用于走索引，再比较原文以排除摘要碰撞。
func (r *postRepository) FindByUserAndContent(ctx context.Context, userID, content string) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_digest = ? AND content = ?", userID, model.ContentDigest(content), content).
		First(&post).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListVisible 返回未隐藏的 whisper，按创建时间倒序。
func (r *postRepository) ListVisible(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).Where("hidden = ?", false).Order("created_at desc").Find(&posts).Error
	return posts, err
}

// ListAll 返回全部 whisper（包括已隐藏），按创建时间倒序。
func (r *postRepository) ListAll(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).Order("created_at desc").Find(&posts).Error
	return posts, err
}

// 以下更新均为单列写入。

func (r *postRepository) UpdateLabel(ctx context.Context, id string, label model.AILabel) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Update("ai_label", label).Error
}

func (r *postRepository) SetHidden(ctx context.Context, id string, hidden bool) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Update("hidden", hidden).Error
}

func (r *postRepository) SetReply(ctx context.Context, id string, reply string) error {
	return r.db.WithContext(ctx).Model(&model.Post{}).Where("id = ?", id).Update("reply", reply).Error
}
