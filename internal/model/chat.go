package model

import (
	"time"

	"gorm.io/datatypes"
)

// Sender 标识聊天消息的发送方。
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage 是 AI 会话中的一条消息。
// Timestamp 同时作为客户端重试时关联消息的标识。
type ChatMessage struct {
	Sender    Sender `json:"sender"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// ChatSession 对应于 'ai_chats' 表。每个匿名用户至多一个会话。
type ChatSession struct {
	ID            string                           `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID        string                           `gorm:"type:varchar(64);not null;uniqueIndex" json:"userId"`
	Messages      datatypes.JSONSlice[ChatMessage] `gorm:"type:json;not null" json:"messages"`
	Escalated     bool                             `gorm:"not null;default:false" json:"escalated"`
	LastUpdatedAt time.Time                        `gorm:"not null" json:"lastUpdatedAt"`
	CreatedAt     time.Time                        `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatSession) TableName() string {
	return "ai_chats"
}
