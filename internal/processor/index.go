package processor

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"resume-autofill/internal/logger"
	"resume-autofill/internal/types"
)

// EmbeddingIndex 为单次请求的分块计算向量并按余弦相似度检索
// 不在请求之间保留任何状态
type EmbeddingIndex struct {
	embedder    embedding.Embedder
	batchSize   int // <=0 表示一次请求全部分块
	concurrency int // 并发的批次数
	logger      *zerolog.Logger
}

// IndexOption 配置 EmbeddingIndex 的选项
type IndexOption func(*EmbeddingIndex)

// WithBatchSize 每次向量请求包含的分块数
func WithBatchSize(n int) IndexOption {
	return func(x *EmbeddingIndex) { x.batchSize = n }
}

// WithConcurrency 同时进行的向量请求数
func WithConcurrency(n int) IndexOption {
	return func(x *EmbeddingIndex) {
		if n > 0 {
			x.concurrency = n
		}
	}
}

// WithIndexLogger 设置日志记录器
func WithIndexLogger(l *zerolog.Logger) IndexOption {
	return func(x *EmbeddingIndex) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewEmbeddingIndex 创建向量索引
func NewEmbeddingIndex(embedder embedding.Embedder, opts ...IndexOption) (*EmbeddingIndex, error) {
	if embedder == nil {
		return nil, NewConfigurationError("embed", "embedder 不能为空")
	}
	x := &EmbeddingIndex{
		embedder:    embedder,
		concurrency: 1,
		logger:      &logger.Logger,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x, nil
}

// Embed 为每个分块计算向量，返回顺序与分块顺序一致
// 分批并发时结果按批次位置写回，与完成顺序无关
func (x *EmbeddingIndex) Embed(ctx context.Context, chunks []types.Chunk) ([][]float64, error) {
	if len(chunks) == 0 {
		return [][]float64{}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch := x.batchSize
	if batch <= 0 || batch > len(texts) {
		batch = len(texts)
	}

	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.concurrency)
	for start := 0; start < len(texts); start += batch {
		start, end := start, min(start+batch, len(texts))
		g.Go(func() error {
			out, err := x.embedder.EmbedStrings(gctx, texts[start:end])
			if err != nil {
				return wrapModelError(ctx, "embed", fmt.Sprintf("分块 %d-%d 向量化失败", start, end-1), err)
			}
			if len(out) != end-start {
				return NewGenerationError("embed",
					fmt.Sprintf("向量数量不匹配: 期望 %d, 实际 %d", end-start, len(out)), nil)
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := checkDimensions(vectors); err != nil {
		return nil, err
	}
	x.logger.Debug().
		Int("chunks", len(chunks)).
		Int("batch_size", batch).
		Int("dimensions", len(vectors[0])).
		Msg("分块向量化完成")
	return vectors, nil
}

// Retrieve 计算查询向量与各分块的余弦相似度，返回前 k 个结果
// k 大于分块数时返回全部分块
func (x *EmbeddingIndex) Retrieve(ctx context.Context, query string, chunks []types.Chunk, embeddings [][]float64, k int) ([]types.ScoredChunk, error) {
	if err := validateRetrieval(chunks, embeddings, k); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []types.ScoredChunk{}, nil
	}

	out, err := x.embedder.EmbedStrings(ctx, []string{query})
	if err != nil {
		return nil, wrapModelError(ctx, "retrieve", "查询向量化失败", err)
	}
	if len(out) != 1 {
		return nil, NewGenerationError("retrieve", fmt.Sprintf("查询应返回 1 个向量，实际 %d", len(out)), nil)
	}
	return RankBySimilarity(out[0], chunks, embeddings, k)
}

// RankBySimilarity 按与查询向量的余弦相似度降序排列分块，相同分数保持原分块顺序
func RankBySimilarity(query []float64, chunks []types.Chunk, embeddings [][]float64, k int) ([]types.ScoredChunk, error) {
	if err := validateRetrieval(chunks, embeddings, k); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []types.ScoredChunk{}, nil
	}
	if err := checkDimensions(embeddings); err != nil {
		return nil, err
	}
	if len(query) != len(embeddings[0]) {
		return nil, NewGenerationError("retrieve",
			fmt.Sprintf("查询向量维度 %d 与分块向量维度 %d 不一致", len(query), len(embeddings[0])), nil)
	}

	scored := make([]types.ScoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = types.ScoredChunk{Chunk: chunks[i], Score: CosineSimilarity(query, embeddings[i])}
	}
	slices.SortStableFunc(scored, func(a, b types.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	return scored[:min(k, len(scored))], nil
}

// JoinContext 将检索结果按排名顺序拼接为提示词上下文
func JoinContext(results []types.ScoredChunk) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Text
	}
	return strings.Join(texts, "\n\n")
}

// CosineSimilarity dot(a,b)/(|a|*|b|)，任一向量模为0或长度不同时返回0
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func validateRetrieval(chunks []types.Chunk, embeddings [][]float64, k int) error {
	if k <= 0 {
		return NewConfigurationError("retrieve", fmt.Sprintf("k 必须为正整数，当前为 %d", k))
	}
	if len(chunks) != len(embeddings) {
		return NewConfigurationError("retrieve",
			fmt.Sprintf("分块数 %d 与向量数 %d 不一致", len(chunks), len(embeddings)))
	}
	return nil
}

// checkDimensions 同一请求内所有向量维度必须一致且非空
func checkDimensions(vectors [][]float64) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return NewGenerationError("embed", "模型返回了空向量", nil)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return NewGenerationError("embed", fmt.Sprintf("第 %d 个向量维度为 %d，期望 %d", i, len(v), dim), nil)
		}
	}
	return nil
}
