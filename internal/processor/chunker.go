package processor

import (
	"context"
	"fmt"
	"strings"

	"resume-autofill/internal/types"
)

// ExtractText 解析文档并把各页文本以换行连接、去除首尾空白
// 空输入、无法解析或解析后没有文字都返回 ExtractionError
func ExtractText(ctx context.Context, parser DocumentParser, data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewExtractionError("extract", "文档内容为空", nil)
	}
	if parser == nil {
		return "", NewConfigurationError("extract", "未配置文档解析器")
	}

	pages, err := parser.ParsePages(ctx, data)
	if err != nil {
		if ctx.Err() != nil {
			return "", newCanceledError("extract", err)
		}
		return "", NewExtractionError("extract", "无法解析PDF", err)
	}

	text := strings.TrimSpace(strings.Join(pages, "\n"))
	if text == "" {
		return "", NewExtractionError("extract", "PDF中没有可提取的文字", nil)
	}
	return text, nil
}

// ChunkWords 按空白切词后以固定大小的窗口分块，相邻窗口重叠 overlap 个词
// 步长为 size-overlap，窗口覆盖到最后一个词即停止；最后一个窗口可能不满
func ChunkWords(text string, size, overlap int) ([]types.Chunk, error) {
	if size <= 0 {
		return nil, NewConfigurationError("chunk", fmt.Sprintf("分块大小必须为正数，当前为 %d", size))
	}
	if overlap < 0 || overlap >= size {
		return nil, NewConfigurationError("chunk", fmt.Sprintf("重叠词数必须在 [0, %d) 之间，当前为 %d", size, overlap))
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []types.Chunk{}, nil
	}

	stride := size - overlap
	chunks := make([]types.Chunk, 0, (len(words)+stride-1)/stride)
	for start := 0; start < len(words); start += stride {
		end := min(start+size, len(words))
		chunks = append(chunks, types.NewChunk(len(chunks), start, words[start:end]))
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
