package service

import (
	"context"
	"time"

	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/log"
)

// ErrorEvent 是推送给用户的后台失败通知。
type ErrorEvent struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ErrorNotifier 把不影响主流程的失败通过旁路告知用户。
type ErrorNotifier interface {
	NotifyError(ctx context.Context, userID, message string, cause error)
}

type feedErrorNotifier struct {
	feed repository.ChangeFeed
}

// NewErrorNotifier 创建基于变更通知通道的 ErrorNotifier。
func NewErrorNotifier(feed repository.ChangeFeed) ErrorNotifier {
	return &feedErrorNotifier{feed: feed}
}

func (n *feedErrorNotifier) NotifyError(ctx context.Context, userID, message string, cause error) {
	log.Errorw("[ErrorNotifier] 后台操作失败", "userId", userID, "message", message, "error", cause)
	ev := ErrorEvent{Message: message, Timestamp: model.FormatISO(time.Now())}
	if err := n.feed.Publish(ctx, repository.ErrorTopic(userID), ev); err != nil {
		log.Errorf("[ErrorNotifier] 推送错误通知失败, userId: %s, error: %v", userID, err)
	}
}

// publishChange 发布变更通知，失败只记录日志。
func publishChange(ctx context.Context, feed repository.ChangeFeed, topic string, payload interface{}) {
	if feed == nil {
		return
	}
	if err := feed.Publish(ctx, topic, payload); err != nil {
		log.Warnf("发布变更通知失败, topic: %s, error: %v", topic, err)
	}
}
