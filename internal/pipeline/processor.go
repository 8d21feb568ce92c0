// Package pipeline 定义了 whisper 提交后的 AI 反馈流程。
package pipeline

import (
	"context"
	"fmt"
	"time"

	"whispr-go/internal/ai"
	"whispr-go/internal/model"
	"whispr-go/internal/repository"
	"whispr-go/pkg/log"
	"whispr-go/pkg/tasks"
)

// FeedbackEvent 是推送给提交者的 AI 反馈。
type FeedbackEvent struct {
	TaskID    string `json:"taskId"`
	Reply     string `json:"reply"`
	Timestamp string `json:"timestamp"`
}

// Processor 封装了反馈生成的依赖和逻辑。
type Processor struct {
	guardian ai.Guardian
	feed     repository.ChangeFeed
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(guardian ai.Guardian, feed repository.ChangeFeed) *Processor {
	return &Processor{guardian: guardian, feed: feed}
}

// Process 为一条 whisper 生成 AI 反馈并只推送给提交者，结果不落库。
func (p *Processor) Process(ctx context.Context, task tasks.FeedbackTask) error {
	log.Infof("[Processor] 开始生成反馈, TaskID: %s, UserID: %s", task.TaskID, task.UserID)

	fb, err := p.guardian.FeedbackReply(ctx, task.Message)
	if err != nil {
		log.Warnf("[Processor] AI 生成反馈失败, TaskID: %s, error: %v", task.TaskID, err)
		return fmt.Errorf("generate feedback: %w", err)
	}

	ev := FeedbackEvent{TaskID: task.TaskID, Reply: fb.Reply, Timestamp: model.FormatISO(time.Now())}
	if err := p.feed.Publish(ctx, repository.FeedbackTopic(task.UserID), ev); err != nil {
		log.Errorf("[Processor] 推送反馈失败, TaskID: %s, error: %v", task.TaskID, err)
		return fmt.Errorf("publish feedback: %w", err)
	}
	log.Infof("[Processor] 反馈已推送, TaskID: %s", task.TaskID)
	return nil
}
