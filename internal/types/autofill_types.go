package types

import "strings"

// Chunk 简历文本的一个词窗口
type Chunk struct {
	Index int      `json:"index"` // 分块序号，从0开始
	Start int      `json:"start"` // 第一个词在全文词序列中的位置
	Words []string `json:"-"`
	Text  string   `json:"text"` // Words 以单个空格连接
}

// NewChunk 根据词窗口构造分块
func NewChunk(index, start int, words []string) Chunk {
	return Chunk{
		Index: index,
		Start: start,
		Words: words,
		Text:  strings.Join(words, " "),
	}
}

// End 返回最后一个词之后的位置
func (c Chunk) End() int {
	return c.Start + len(c.Words)
}

// ScoredChunk 带相似度分数的检索结果
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Record 按模板解析出的结构化简历记录
type Record map[string]any

// Object 返回指定的对象字段，不存在或类型不符时返回nil
func (r Record) Object(key string) map[string]any {
	v, _ := r[key].(map[string]any)
	return v
}

// List 返回指定的列表字段，不存在或类型不符时返回nil
func (r Record) List(key string) []any {
	v, _ := r[key].([]any)
	return v
}

// Report 上传的学习报告解析结果
type Report struct {
	Text     string // 去除标签后的纯文本，空白已压缩
	Markdown string // 保留标题、列表和表格结构，写入提示词
}
