package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// ActionType 是管理员操作的类型。
type ActionType string

const (
	ActionRelabel ActionType = "re-label"
	ActionHide    ActionType = "hide"
	ActionUnhide  ActionType = "unhide"
	ActionReply   ActionType = "reply"
)

// ActionDetails 是按操作类型区分的详情载荷。
// 每个实现对应一种或一组 ActionType。
type ActionDetails interface {
	ActionType() ActionType
	Describe() string
}

// RelabelDetails 记录标签变更。
type RelabelDetails struct {
	From AILabel `json:"from"`
	To   AILabel `json:"to"`
}

func (RelabelDetails) ActionType() ActionType { return ActionRelabel }

func (d RelabelDetails) Describe() string {
	return fmt.Sprintf("Changed label from %q to %q.", d.From, d.To)
}

// VisibilityDetails 记录切换前的可见状态。WasHidden 为 false 时本次操作是隐藏。
type VisibilityDetails struct {
	WasHidden bool `json:"wasHidden"`
}

func (d VisibilityDetails) ActionType() ActionType {
	if d.WasHidden {
		return ActionUnhide
	}
	return ActionHide
}

func (d VisibilityDetails) Describe() string {
	if d.WasHidden {
		return "Made the post public again."
	}
	return "Hid the post from public view."
}

// ReplyDetails 记录生成的回复。
type ReplyDetails struct {
	GeneratedReply string `json:"generatedReply"`
}

func (ReplyDetails) ActionType() ActionType { return ActionReply }

func (ReplyDetails) Describe() string { return "Generated an AI reply." }

// AdminAction 对应于 'admin_actions' 表，是不可变的审计日志条目。
type AdminAction struct {
	ID        string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	AdminID   string         `gorm:"type:varchar(64);not null" json:"adminId"`
	TargetID  string         `gorm:"type:varchar(36);not null;index" json:"targetId"`
	Type      ActionType     `gorm:"type:varchar(16);not null" json:"type"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	Details   datatypes.JSON `gorm:"type:json;not null" json:"details"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (AdminAction) TableName() string {
	return "admin_actions"
}

// NewAdminAction 根据详情构造审计条目，Type 由详情决定。
func NewAdminAction(id, adminID, targetID string, details ActionDetails, at time.Time) (*AdminAction, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action details: %w", err)
	}
	return &AdminAction{
		ID:        id,
		AdminID:   adminID,
		TargetID:  targetID,
		Type:      details.ActionType(),
		Timestamp: at,
		Details:   datatypes.JSON(raw),
	}, nil
}

// DecodeDetails 按 Type 将 Details 解析为对应的强类型载荷。
func (a *AdminAction) DecodeDetails() (ActionDetails, error) {
	switch a.Type {
	case ActionRelabel:
		var d RelabelDetails
		if err := json.Unmarshal(a.Details, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", a.Type, err)
		}
		return d, nil
	case ActionHide, ActionUnhide:
		var d VisibilityDetails
		if err := json.Unmarshal(a.Details, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", a.Type, err)
		}
		return d, nil
	case ActionReply:
		var d ReplyDetails
		if err := json.Unmarshal(a.Details, &d); err != nil {
			return nil, fmt.Errorf("decode %s details: %w", a.Type, err)
		}
		return d, nil
	}
	return nil, fmt.Errorf("unknown action type %q", a.Type)
}

// Description 返回审计条目的可读描述。
func (a *AdminAction) Description() string {
	d, err := a.DecodeDetails()
	if err != nil {
		return "Performed an action."
	}
	return d.Describe()
}
