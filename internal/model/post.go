// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AILabel 是 AI Guardian 为 whisper 打上的情绪标签。
type AILabel string

const (
	LabelNormal   AILabel = "normal"
	LabelStressed AILabel = "stressed"
	LabelNeedHelp AILabel = "need_help"
)

// AILabels 列出全部合法标签。
var AILabels = []AILabel{LabelNormal, LabelStressed, LabelNeedHelp}

// Valid 判断标签是否为三个枚举值之一。
func (l AILabel) Valid() bool {
	switch l {
	case LabelNormal, LabelStressed, LabelNeedHelp:
		return true
	}
	return false
}

// Post 对应于数据库中的 'posts' 表，即一条匿名 whisper。
type Post struct {
	ID     string `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID string `gorm:"type:varchar(64);not null;index;uniqueIndex:idx_posts_user_digest,priority:1" json:"userId"`
	// Content 保存用户提交的原文，不做 trim。
	Content string `gorm:"type:text;not null" json:"content"`
	// ContentDigest 是 Content 的 SHA-256，用于 (user_id, content) 去重。
	ContentDigest string    `gorm:"type:char(64);not null;uniqueIndex:idx_posts_user_digest,priority:2" json:"-"`
	CreatedAt     time.Time `gorm:"not null;index" json:"createdAt"`
	AILabel       AILabel   `gorm:"type:varchar(16);not null" json:"aiLabel"`
	AIConfidence  float64   `gorm:"not null" json:"aiConfidence"`
	Hidden        bool      `gorm:"not null;default:false" json:"hidden"`
	Reply         *string   `gorm:"type:text" json:"reply,omitempty"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Post) TableName() string {
	return "posts"
}

// ContentDigest 计算内容摘要。
func ContentDigest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
