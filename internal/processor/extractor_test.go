package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-autofill/internal/types"
)

func newTestExtractor(t *testing.T, completer TextCompleter, opts ...ExtractorOption) *StructuredExtractor {
	t.Helper()
	e, err := NewStructuredExtractor(completer, nil, opts...)
	require.NoError(t, err)
	return e
}

func parsedResume(t *testing.T) types.Record {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(validResumeJSON), &v))
	return types.Record(v)
}

func TestParseResponseRoundTrip(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})

	record, err := e.ParseResponse(validResumeJSON)
	require.NoError(t, err)
	assert.Equal(t, parsedResume(t), record)
	assert.Equal(t, "Jane Doe", record.Object("personal_information")["name"])
	assert.Len(t, record.List("technical_skills"), 2)
}

func TestParseResponseCodeFence(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})
	want := parsedResume(t)

	for _, raw := range []string{
		"```json\n" + validResumeJSON + "\n```",
		"```JSON\n" + validResumeJSON + "```",
		"```\n" + validResumeJSON + "\n```\n",
		"\ufeff" + validResumeJSON,
		"  \n" + validResumeJSON + "\n\n",
	} {
		record, err := e.ParseResponse(raw)
		require.NoError(t, err, raw[:min(len(raw), 12)])
		assert.Equal(t, want, record)
	}
}

func TestParseResponseMissingEducation(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})

	v := map[string]any(parsedResume(t))
	delete(v, "education")
	raw, err := json.Marshal(v)
	require.NoError(t, err)

	_, err = e.ParseResponse(string(raw))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaValidation))
	assert.Contains(t, err.Error(), "education")
}

func TestParseResponseSchemaViolations(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"多余的顶层字段", func(v map[string]any) { v["hobbies"] = []any{"chess"} }},
		{"字段类型错误", func(v map[string]any) { v["technical_skills"] = "Go, Python" }},
		{"嵌套字段缺失", func(v map[string]any) {
			delete(v["personal_information"].(map[string]any), "email")
		}},
		{"列表元素缺少字段", func(v map[string]any) {
			v["languages"] = []any{map[string]any{"name": "English"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := map[string]any(parsedResume(t))
			tt.mutate(v)
			raw, err := json.Marshal(v)
			require.NoError(t, err)

			_, err = e.ParseResponse(string(raw))
			assert.True(t, errors.Is(err, ErrSchemaValidation), "%v", err)
		})
	}
}

func TestParseResponseEmptyListsAndStrings(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})
	raw := `{"personal_information":{"name":"","email":"","phone":"","location":""},
"education":{"current_level":"","institution":"","field":"","graduation_year":"","cgpa":""},
"technical_skills":[],"soft_skills":[],"languages":[]}`

	record, err := e.ParseResponse(raw)
	require.NoError(t, err, "缺失信息以空串和空列表填充是合法的")
	assert.Empty(t, record.List("languages"))
}

func TestParseResponseInvalidJSON(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})

	for _, raw := range []string{
		"",
		"```json\n```",
		"Here is the resume: {",
		`{"personal_information": }`,
		validResumeJSON + "\nHope this helps!",
	} {
		_, err := e.ParseResponse(raw)
		assert.True(t, errors.Is(err, ErrParse), "%q: %v", raw, err)
	}

	_, err := e.ParseResponse(`["not", "an", "object"]`)
	assert.True(t, errors.Is(err, ErrSchemaValidation))
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`{"a":1}`))
	assert.Equal(t, "", StripCodeFence("   "))
}

func TestBuildPrompt(t *testing.T) {
	e := newTestExtractor(t, &MockCompleter{})
	prompt := e.BuildPrompt("Jane Doe\nSkills: Go")

	assert.Contains(t, prompt.System, "strict JSON")
	assert.Contains(t, prompt.User, "Jane Doe\nSkills: Go")
	for _, key := range e.Template().Keys() {
		assert.Contains(t, prompt.User, `"`+key+`"`)
	}
	idx := strings.Index(prompt.User, "Template:")
	assert.Less(t, idx, strings.Index(prompt.User, "Retrieved resume context:"), "模板在检索上下文之前")

	// 要求模型不输出代码围栏和额外说明
	assert.Contains(t, prompt.System, "no surrounding prose or markdown fencing")
	assert.Contains(t, prompt.User, "Do not include any markdown formatting, triple backticks, or extra commentary")
	assert.Contains(t, prompt.User, "If a field is not found, leave it as an empty string")
}

func TestExtract(t *testing.T) {
	completer := &MockCompleter{replies: []string{"```json\n" + validResumeJSON + "\n```"}}
	e := newTestExtractor(t, completer)

	record, err := e.Extract(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, parsedResume(t), record)
	require.Len(t, completer.prompts, 1, "默认只调用一次")
	assert.Equal(t, DefaultCompletionOptions, completer.options[0])
}

func TestExtractGenerationError(t *testing.T) {
	cause := errors.New("401 invalid api key")
	completer := &MockCompleter{errs: []error{cause}}
	e := newTestExtractor(t, completer)

	record, err := e.Extract(context.Background(), "Jane Doe")
	assert.Nil(t, record, "失败时不返回部分结果")
	assert.True(t, errors.Is(err, ErrGeneration))
	assert.True(t, errors.Is(err, cause))
}

func TestExtractWithRetry(t *testing.T) {
	completer := &MockCompleter{
		errs:    []error{errors.New("429 Too Many Requests"), errors.New("connection reset by peer")},
		replies: []string{"", "", validResumeJSON},
	}
	e := newTestExtractor(t, completer,
		WithRetryPolicy(NewRetryPolicy(3, time.Millisecond)),
		WithCompletionOptions(CompletionOptions{Temperature: 0.5, MaxTokens: 100}),
	)

	record, err := e.Extract(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.NotEmpty(t, record)
	assert.Len(t, completer.prompts, 3)
	assert.Equal(t, CompletionOptions{Temperature: 0.5, MaxTokens: 100}, completer.options[2])
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestExtractor(t, &MockCompleter{replies: []string{validResumeJSON}})
	_, err := e.Extract(ctx, "Jane Doe")
	assert.Equal(t, KindCanceled, KindOf(err))
}

func TestTemplateExampleAndSchema(t *testing.T) {
	tpl := ResumeTemplate()
	assert.Equal(t, []string{"personal_information", "education", "technical_skills", "soft_skills", "languages"}, tpl.Keys())

	var example map[string]any
	require.NoError(t, json.Unmarshal([]byte(tpl.Example()), &example), "示例必须是合法JSON")
	require.NoError(t, tpl.Validate(example), "示例本身应通过校验")

	schema := tpl.JSONSchema()
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, tpl.Keys(), schema["required"])
}

func TestNewTemplateValidation(t *testing.T) {
	_, err := NewTemplate("empty", nil)
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewTemplate("dup", []FieldSpec{{Name: "a", Kind: FieldString}, {Name: "a", Kind: FieldString}})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewTemplate("obj", []FieldSpec{{Name: "a", Kind: FieldObject}})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewTemplate("kind", []FieldSpec{{Name: "a", Kind: "date"}})
	assert.True(t, errors.Is(err, ErrConfiguration))

	tpl, err := NewTemplate("job", []FieldSpec{
		{Name: "title", Kind: FieldString},
		{Name: "tags", Kind: FieldList},
	})
	require.NoError(t, err)
	assert.NoError(t, tpl.Validate(map[string]any{"title": "Engineer", "tags": []any{"go"}}))
	assert.Error(t, tpl.Validate(map[string]any{"title": "Engineer", "tags": []any{1}}))
}

func TestTemplateNumberField(t *testing.T) {
	tpl, err := NewTemplate("score", []FieldSpec{
		{Name: "label", Kind: FieldString},
		{Name: "value", Kind: FieldNumber},
	})
	require.NoError(t, err)
	assert.Contains(t, tpl.Example(), `"value": 0`)

	assert.NoError(t, tpl.Validate(map[string]any{"label": "xp", "value": 100.0}))
	assert.NoError(t, tpl.Validate(map[string]any{"label": "xp", "value": 12.5}))
	assert.Error(t, tpl.Validate(map[string]any{"label": "xp", "value": "100"}))
}
