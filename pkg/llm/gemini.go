package llm

import (
	"context"
	"fmt"
	"strings"

	"whispr-go/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiClient struct {
	client *genai.Client
	cfg    config.LLMConfig
}

// NewGeminiClient 创建 Gemini 客户端，输出由 ResponseSchema 约束为 JSON。
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &geminiClient{client: client, cfg: cfg}, nil
}

func (c *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.client.GenerativeModel(c.cfg.Model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(req.Schema)
	if c.cfg.Generation.Temperature != 0 {
		model.SetTemperature(float32(c.cfg.Generation.Temperature))
	}
	if c.cfg.Generation.TopP != 0 {
		model.SetTopP(float32(c.cfg.Generation.TopP))
	}
	if c.cfg.Generation.MaxTokens != 0 {
		model.SetMaxOutputTokens(int32(c.cfg.Generation.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response has no text parts")
	}
	return sb.String(), nil
}

func toGenaiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		p := &genai.Schema{Description: f.Description}
		switch f.Type {
		case TypeNumber:
			p.Type = genai.TypeNumber
		case TypeBoolean:
			p.Type = genai.TypeBoolean
		default:
			p.Type = genai.TypeString
			if len(f.Enum) > 0 {
				p.Format = "enum"
				p.Enum = f.Enum
			}
		}
		out.Properties[f.Name] = p
		out.Required = append(out.Required, f.Name)
	}
	return out
}
