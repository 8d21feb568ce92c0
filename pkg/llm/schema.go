package llm

// FieldType 是输出字段的基础类型。
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field 描述输出对象中的一个字段。Enum 非空时字段只能取其中之一。
type Field struct {
	Name        string
	Type        FieldType
	Enum        []string
	Description string
}

// Schema 描述模型必须返回的 JSON 对象，所有字段均为必填。
type Schema struct {
	Fields []Field
}

// Request 是提交给模型提供方的一次结构化调用。
type Request struct {
	TemplateName string
	Prompt       string
	Schema       Schema
}

// jsonSchema 将 Schema 转为 JSON Schema 片段，用于提示词和 OpenAI 兼容接口。
func (s Schema) jsonSchema() map[string]interface{} {
	props := make(map[string]interface{}, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		p := map[string]interface{}{"type": string(f.Type)}
		if len(f.Enum) > 0 {
			p["enum"] = f.Enum
		}
		if f.Description != "" {
			p["description"] = f.Description
		}
		props[f.Name] = p
		required = append(required, f.Name)
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
