package parser

import (
	"context"
	"fmt"

	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"

	"resume-autofill/internal/config"
)

// documentEmbedder langchaingo 向量接口中用到的部分
type documentEmbedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaEmbedder 通过 langchaingo 调用本地 Ollama 向量模型，实现 eino Embedder 接口
type OllamaEmbedder struct {
	embedder documentEmbedder
	model    string
}

var _ einoEmbedding.Embedder = (*OllamaEmbedder)(nil)

// NewOllamaEmbedder 创建本地向量模型客户端，例如 all-minilm、nomic-embed-text
func NewOllamaEmbedder(serverURL, model string) (*OllamaEmbedder, error) {
	if serverURL == "" {
		serverURL = config.DefaultOllamaURL
	}
	if model == "" {
		model = config.DefaultOllamaModel
	}

	llm, err := ollama.New(ollama.WithServerURL(serverURL), ollama.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("创建Ollama客户端失败: %w", err)
	}
	emb, err := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("创建Ollama向量模型失败: %w", err)
	}
	return &OllamaEmbedder{embedder: emb, model: model}, nil
}

// EmbedStrings 实现 eino Embedder 接口，float32 结果转换为 float64
func (o *OllamaEmbedder) EmbedStrings(ctx context.Context, texts []string, _ ...einoEmbedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	vectors, err := o.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama(%s) 向量化失败: %w", o.model, err)
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		row := make([]float64, len(v))
		for j, x := range v {
			row[j] = float64(x)
		}
		out[i] = row
	}
	return out, nil
}
