package processor

import (
	"context"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"
)

// MockParser 模拟PDF逐页解析器
type MockParser struct {
	pages []string
	err   error
	calls int
}

func (m *MockParser) ParsePages(ctx context.Context, data []byte) ([]string, error) {
	m.calls++
	return m.pages, m.err
}

// MockEmbedder 按关键词生成确定性的向量，记录每次请求的批次
type MockEmbedder struct {
	mu       sync.Mutex
	keywords []string // 每个关键词对应向量中的一维
	batches  [][]string
	err      error
	// vectorFn 不为nil时覆盖关键词规则
	vectorFn func(text string) []float64
}

func (m *MockEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	m.mu.Lock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		if m.vectorFn != nil {
			out[i] = m.vectorFn(text)
			continue
		}
		// 最后一维为常量，避免零向量
		v := make([]float64, len(m.keywords)+1)
		lower := strings.ToLower(text)
		for j, kw := range m.keywords {
			v[j] = float64(strings.Count(lower, kw))
		}
		v[len(m.keywords)] = 0.1
		out[i] = v
	}
	return out, nil
}

func (m *MockEmbedder) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches
}

// MockCompleter 依次返回预设的回复或错误
type MockCompleter struct {
	replies []string
	errs    []error
	prompts []Prompt
	options []CompletionOptions
}

func (m *MockCompleter) Complete(ctx context.Context, prompt Prompt, opts CompletionOptions) (string, error) {
	i := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.options = append(m.options, opts)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	if len(m.replies) > 0 {
		return m.replies[len(m.replies)-1], nil
	}
	return "", nil
}

const validResumeJSON = `{
  "personal_information": {"name": "Jane Doe", "email": "jane@example.com", "phone": "+1 555 0100", "location": "Berlin"},
  "education": {"current_level": "Bachelor", "institution": "TU Berlin", "field": "Computer Science", "graduation_year": "2024", "cgpa": "3.8"},
  "technical_skills": [{"name": "Go", "level": "Advanced"}, {"name": "Python", "level": "Intermediate"}],
  "soft_skills": [{"name": "Communication", "level": "Advanced"}],
  "languages": [{"name": "English", "proficiency": "Fluent"}]
}`
