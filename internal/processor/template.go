package processor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// FieldKind 模板字段的值类型
type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldNumber FieldKind = "number"
	FieldObject FieldKind = "object"
	FieldList   FieldKind = "list" // 对象列表，元素结构由 Fields 描述；Fields 为空时为字符串列表
)

// FieldSpec 模板中的一个字段
type FieldSpec struct {
	Name        string
	Kind        FieldKind
	Fields      []FieldSpec // object 的子字段或 list 元素的字段
	Description string      // 写入 JSON Schema 的说明
}

// Template 以数据描述的结构化输出模板
// 同一份描述既生成提示词中的JSON示例，也生成校验用的JSON Schema
type Template struct {
	Name   string
	Fields []FieldSpec

	once     sync.Once
	compiled *jsonschema.Schema
	compErr  error
}

// NewTemplate 创建模板并检查字段定义
func NewTemplate(name string, fields []FieldSpec) (*Template, error) {
	if len(fields) == 0 {
		return nil, NewConfigurationError("template", "模板至少需要一个字段")
	}
	if err := checkFields("", fields); err != nil {
		return nil, err
	}
	return &Template{Name: name, Fields: fields}, nil
}

func checkFields(prefix string, fields []FieldSpec) error {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		path := prefix + f.Name
		if f.Name == "" {
			return NewConfigurationError("template", fmt.Sprintf("%s 下存在空字段名", prefix))
		}
		if seen[f.Name] {
			return NewConfigurationError("template", "字段重复: "+path)
		}
		seen[f.Name] = true
		switch f.Kind {
		case FieldString, FieldNumber:
		case FieldObject:
			if len(f.Fields) == 0 {
				return NewConfigurationError("template", "对象字段缺少子字段: "+path)
			}
			if err := checkFields(path+".", f.Fields); err != nil {
				return err
			}
		case FieldList:
			if err := checkFields(path+"[].", f.Fields); err != nil {
				return err
			}
		default:
			return NewConfigurationError("template", fmt.Sprintf("字段 %s 的类型 %q 不受支持", path, f.Kind))
		}
	}
	return nil
}

// ResumeTemplate 简历自动填充的默认模板
func ResumeTemplate() *Template {
	skill := []FieldSpec{
		{Name: "name", Kind: FieldString},
		{Name: "level", Kind: FieldString, Description: "e.g. Beginner, Intermediate, Advanced"},
	}
	return &Template{
		Name: "resume",
		Fields: []FieldSpec{
			{Name: "personal_information", Kind: FieldObject, Fields: []FieldSpec{
				{Name: "name", Kind: FieldString},
				{Name: "email", Kind: FieldString},
				{Name: "phone", Kind: FieldString},
				{Name: "location", Kind: FieldString},
			}},
			{Name: "education", Kind: FieldObject, Fields: []FieldSpec{
				{Name: "current_level", Kind: FieldString},
				{Name: "institution", Kind: FieldString},
				{Name: "field", Kind: FieldString},
				{Name: "graduation_year", Kind: FieldString},
				{Name: "cgpa", Kind: FieldString},
			}},
			{Name: "technical_skills", Kind: FieldList, Fields: skill},
			{Name: "soft_skills", Kind: FieldList, Fields: skill},
			{Name: "languages", Kind: FieldList, Fields: []FieldSpec{
				{Name: "name", Kind: FieldString},
				{Name: "proficiency", Kind: FieldString},
			}},
		},
	}
}

// RecommendationTemplate 课程推荐的输出模板
// recommended 按主题分组，trending 和 new 直接列出课程
func RecommendationTemplate() *Template {
	course := []FieldSpec{
		{Name: "id", Kind: FieldString},
		{Name: "title", Kind: FieldString},
		{Name: "platform", Kind: FieldString, Description: "e.g. Coursera, edX, Udemy"},
		{Name: "level", Kind: FieldString},
		{Name: "duration", Kind: FieldString},
		{Name: "progress", Kind: FieldNumber},
		{Name: "xp", Kind: FieldNumber},
		{Name: "outcomes", Kind: FieldList},
		{Name: "prerequisites", Kind: FieldList},
	}
	return &Template{
		Name: "recommendations",
		Fields: []FieldSpec{
			{Name: "recommended", Kind: FieldList, Fields: []FieldSpec{
				{Name: "topic", Kind: FieldString},
				{Name: "courses", Kind: FieldList, Fields: course},
			}},
			{Name: "trending", Kind: FieldList, Fields: course},
			{Name: "new", Kind: FieldList, Fields: course},
		},
	}
}

// Keys 返回顶层字段名，顺序与定义一致
func (t *Template) Keys() []string {
	keys := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		keys[i] = f.Name
	}
	return keys
}

// Example 生成写入提示词的JSON示例，字段顺序与定义一致
// 字符串为空串，列表包含一个示例元素
func (t *Template) Example() string {
	var b strings.Builder
	writeObject(&b, t.Fields, 0)
	return b.String()
}

func writeObject(b *strings.Builder, fields []FieldSpec, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString("{\n")
	for i, f := range fields {
		b.WriteString(indent + "  ")
		name, _ := json.Marshal(f.Name)
		b.Write(name)
		b.WriteString(": ")
		writeValue(b, f, depth+1)
		if i < len(fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(indent + "}")
}

func writeValue(b *strings.Builder, f FieldSpec, depth int) {
	switch f.Kind {
	case FieldObject:
		writeObject(b, f.Fields, depth)
	case FieldList:
		if len(f.Fields) == 0 {
			b.WriteString(`[""]`)
			return
		}
		b.WriteString("[")
		writeObject(b, f.Fields, depth)
		b.WriteString("]")
	case FieldNumber:
		b.WriteString("0")
	default:
		b.WriteString(`""`)
	}
}

// JSONSchema 生成校验用的 JSON Schema：所有字段必填，顶层不允许多余字段
func (t *Template) JSONSchema() map[string]any {
	schema := objectSchema(t.Fields)
	schema["additionalProperties"] = false
	if t.Name != "" {
		schema["title"] = t.Name
	}
	return schema
}

func objectSchema(fields []FieldSpec) map[string]any {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
		required = append(required, f.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func fieldSchema(f FieldSpec) map[string]any {
	var s map[string]any
	switch f.Kind {
	case FieldObject:
		s = objectSchema(f.Fields)
	case FieldList:
		items := map[string]any{"type": "string"}
		if len(f.Fields) > 0 {
			items = objectSchema(f.Fields)
		}
		s = map[string]any{"type": "array", "items": items}
	case FieldNumber:
		s = map[string]any{"type": "number"}
	default:
		s = map[string]any{"type": "string"}
	}
	if f.Description != "" {
		s["description"] = f.Description
	}
	return s
}

// Validate 检查解析后的JSON值是否符合模板
func (t *Template) Validate(v any) error {
	schema, err := t.schema()
	if err != nil {
		return NewConfigurationError("template", err.Error())
	}
	if err := schema.Validate(v); err != nil {
		return NewSchemaValidationError(describeValidation(err), err)
	}
	return nil
}

func (t *Template) schema() (*jsonschema.Schema, error) {
	t.once.Do(func() {
		raw, err := json.Marshal(t.JSONSchema())
		if err != nil {
			t.compErr = fmt.Errorf("序列化JSON Schema失败: %w", err)
			return
		}
		url := t.Name + ".schema.json"
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			t.compErr = fmt.Errorf("加载JSON Schema失败: %w", err)
			return
		}
		t.compiled, t.compErr = compiler.Compile(url)
	})
	return t.compiled, t.compErr
}

// describeValidation 取最底层的校验失败原因，便于日志和接口返回
func describeValidation(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
