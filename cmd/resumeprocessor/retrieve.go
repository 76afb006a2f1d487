package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"resume-autofill/internal/processor"
)

func createRetrieveCommand() *cobra.Command {
	var maxLen int

	cmd := &cobra.Command{
		Use:   "retrieve <resume.pdf>",
		Short: "分块并向量化，输出与查询最相关的分块",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			data, err := readPDF(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			parser, err := processor.CreatePDFParser(ctx, cfg)
			if err != nil {
				return err
			}
			index, err := processor.CreateEmbeddingIndex(ctx, cfg)
			if err != nil {
				return err
			}

			text, err := processor.ExtractText(ctx, parser, data)
			if err != nil {
				return fmt.Errorf("提取PDF文本失败: %w", err)
			}
			chunks, err := processor.ChunkWords(text, cfg.Autofill.ChunkSize, cfg.Autofill.ChunkOverlap)
			if err != nil {
				return err
			}

			startTime := time.Now()
			embeddings, err := index.Embed(ctx, chunks)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "向量化完成! %d 块，耗时: %v\n", len(chunks), time.Since(startTime))

			results, err := index.Retrieve(ctx, cfg.Autofill.Query, chunks, embeddings, cfg.Autofill.TopK)
			if err != nil {
				return err
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "查询: %q，返回 %d 块\n", cfg.Autofill.Query, len(results))
			for rank, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. 分块 #%d  相似度 %.4f\n   %s\n", rank+1, r.Chunk.Index, r.Score, truncate(r.Chunk.Text, maxLen))
			}
			return nil
		},
	}

	addChunkFlags(cmd)
	cmd.Flags().IntP("top-k", "k", 5, "返回的分块数")
	cmd.Flags().StringP("query", "q", "", "检索查询，默认使用配置中的固定查询")
	cmd.Flags().IntVar(&maxLen, "maxlen", 200, "每块显示的最大长度，-1显示全部")
	return cmd
}
