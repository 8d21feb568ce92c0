// Package tasks 定义了通过 Kafka 投递的任务结构。
package tasks

// FeedbackTask 表示一次“请求 AI 反馈”任务。结果只推送给提交者，不落库。
type FeedbackTask struct {
	TaskID      string `json:"task_id"`
	UserID      string `json:"user_id"`
	Message     string `json:"message"`
	SubmittedAt string `json:"submitted_at"`
}
