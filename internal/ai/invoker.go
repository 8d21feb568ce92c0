// Package ai 将提示词模板提交给模型提供方，并校验返回的结构化结果。
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"whispr-go/internal/model"
	"whispr-go/internal/prompt"
	"whispr-go/pkg/llm"
	"whispr-go/pkg/log"

	"github.com/go-playground/validator/v10"
)

// InvocationError 表示一次模型调用失败：上游出错，或返回内容无法满足 schema。
type InvocationError struct {
	Template prompt.Name
	Stage    string // render, provider, decode, validate
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("ai invocation %s failed at %s: %v", e.Template, e.Stage, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Guardian 是工作流使用的三个模型调用。
type Guardian interface {
	Classify(ctx context.Context, content string) (*Classification, error)
	FeedbackReply(ctx context.Context, message string) (*Feedback, error)
	SupportChat(ctx context.Context, message string) (*ChatTurn, error)
}

// Classification 是分类模板的输出。
type Classification struct {
	Label      model.AILabel `json:"aiLabel"`
	Confidence float64       `json:"aiConfidence"`
}

// Feedback 是反馈回复模板的输出。
type Feedback struct {
	Reply string `json:"reply"`
}

// ChatTurn 是支持聊天模板的输出。
type ChatTurn struct {
	Response string `json:"response"`
	Escalate bool   `json:"escalate"`
}

// 以下线上结构与模板 schema 一一对应，指针字段用于区分缺失与零值。
type classifyOutput struct {
	AILabel      string   `json:"aiLabel" validate:"required,oneof=normal stressed need_help"`
	AIConfidence *float64 `json:"aiConfidence" validate:"required,gte=0,lte=1"`
}

type feedbackOutput struct {
	Reply string `json:"reply" validate:"required"`
}

type supportChatOutput struct {
	Response string `json:"response" validate:"required"`
	Escalate *bool  `json:"escalate" validate:"required"`
}

// Invoker 实现 Guardian。不做重试，也不做缓存。
type Invoker struct {
	client   llm.Client
	validate *validator.Validate
	timeout  time.Duration
}

// NewInvoker 创建一个新的 Invoker。timeout 为 0 时不额外限制单次调用时长。
func NewInvoker(client llm.Client, timeout time.Duration) *Invoker {
	return &Invoker{
		client:   client,
		validate: validator.New(),
		timeout:  timeout,
	}
}

// Invoke 渲染模板、调用模型，并把校验通过的结果写入 out。
func (i *Invoker) Invoke(ctx context.Context, name prompt.Name, inputs prompt.Inputs, out interface{}) error {
	rendered, err := prompt.Render(name, inputs)
	if err != nil {
		return &InvocationError{Template: name, Stage: "render", Err: err}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := i.client.Generate(ctx, rendered.Request())
	if err != nil {
		log.Errorw("AI 调用失败", "template", name, "latency", time.Since(start).String(), "error", err)
		return &InvocationError{Template: name, Stage: "provider", Err: err}
	}

	if err := json.Unmarshal([]byte(stripCodeFence(raw)), out); err != nil {
		log.Warnw("AI 输出无法解析为 JSON", "template", name, "error", err)
		return &InvocationError{Template: name, Stage: "decode", Err: err}
	}
	if err := i.validate.Struct(out); err != nil {
		log.Warnw("AI 输出不符合 schema", "template", name, "error", err)
		return &InvocationError{Template: name, Stage: "validate", Err: err}
	}

	log.Infow("AI 调用成功", "template", name, "latency", time.Since(start).String())
	return nil
}

// Classify 调用分类模板。
func (i *Invoker) Classify(ctx context.Context, content string) (*Classification, error) {
	var out classifyOutput
	if err := i.Invoke(ctx, prompt.Classify, prompt.Inputs{"content": content}, &out); err != nil {
		return nil, err
	}
	return &Classification{Label: model.AILabel(out.AILabel), Confidence: *out.AIConfidence}, nil
}

// FeedbackReply 调用反馈回复模板。
func (i *Invoker) FeedbackReply(ctx context.Context, message string) (*Feedback, error) {
	var out feedbackOutput
	if err := i.Invoke(ctx, prompt.FeedbackReply, prompt.Inputs{"message": message}, &out); err != nil {
		return nil, err
	}
	return &Feedback{Reply: out.Reply}, nil
}

// SupportChat 调用支持聊天模板，只传入当前消息。
func (i *Invoker) SupportChat(ctx context.Context, message string) (*ChatTurn, error) {
	var out supportChatOutput
	if err := i.Invoke(ctx, prompt.SupportChat, prompt.Inputs{"message": message}, &out); err != nil {
		return nil, err
	}
	return &ChatTurn{Response: out.Response, Escalate: *out.Escalate}, nil
}

// stripCodeFence 去掉部分模型习惯包裹在 JSON 外的 markdown 代码块。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
