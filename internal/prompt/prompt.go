// Package prompt 定义了三个固定的提示词模板及其输出 schema。
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"text/template"

	"whispr-go/pkg/llm"
)

// Name 是模板名称。
type Name string

const (
	Classify      Name = "classifyWhisperPrompt"
	FeedbackReply Name = "generateAdminReplyPrompt"
	SupportChat   Name = "provideAISupportChatPrompt"
)

// Inputs 是模板的命名输入。
type Inputs map[string]string

// Rendered 是一次渲染的结果：替换后的指令文本与期望的输出 schema。
type Rendered struct {
	Name   Name
	Text   string
	Schema llm.Schema
}

// Request 转为提交给模型提供方的请求。
func (r Rendered) Request() llm.Request {
	return llm.Request{TemplateName: string(r.Name), Prompt: r.Text, Schema: r.Schema}
}

var ErrUnknownTemplate = errors.New("unknown prompt template")

type definition struct {
	inputs []string
	tmpl   *template.Template
	schema llm.Schema
}

var definitions = map[Name]definition{
	Classify: {
		inputs: []string{"content"},
		tmpl:   mustParse(Classify, classifyText),
		schema: llm.Schema{Fields: []llm.Field{
			{Name: "aiLabel", Type: llm.TypeString, Enum: []string{"normal", "stressed", "need_help"}, Description: "The AI-assigned label for the message."},
			{Name: "aiConfidence", Type: llm.TypeNumber, Description: "The confidence level of the AI label, between 0 and 1."},
		}},
	},
	FeedbackReply: {
		inputs: []string{"message"},
		tmpl:   mustParse(FeedbackReply, feedbackReplyText),
		schema: llm.Schema{Fields: []llm.Field{
			{Name: "reply", Type: llm.TypeString, Description: "The AI-generated reply to the user message."},
		}},
	},
	SupportChat: {
		inputs: []string{"message"},
		tmpl:   mustParse(SupportChat, supportChatText),
		schema: llm.Schema{Fields: []llm.Field{
			{Name: "response", Type: llm.TypeString, Description: "The AI response to the user message."},
			{Name: "escalate", Type: llm.TypeBoolean, Description: "Whether the conversation should be escalated to crisis resources."},
		}},
	},
}

func mustParse(name Name, text string) *template.Template {
	return template.Must(template.New(string(name)).Option("missingkey=error").Parse(text))
}

// Render 将输入代入指定模板。缺少必需输入时返回错误。
func Render(name Name, inputs Inputs) (Rendered, error) {
	def, ok := definitions[name]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	for _, key := range def.inputs {
		if _, ok := inputs[key]; !ok {
			return Rendered{}, fmt.Errorf("template %s: missing input %q", name, key)
		}
	}

	var sb strings.Builder
	if err := def.tmpl.Execute(&sb, map[string]string(inputs)); err != nil {
		return Rendered{}, fmt.Errorf("template %s: %w", name, err)
	}
	return Rendered{Name: name, Text: sb.String(), Schema: def.schema}, nil
}

// SchemaOf 返回模板声明的输出 schema。
func SchemaOf(name Name) (llm.Schema, bool) {
	def, ok := definitions[name]
	return def.schema, ok
}
