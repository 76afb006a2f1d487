package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resume-autofill/internal/processor"
)

func createChunkCommand() *cobra.Command {
	var maxLen int

	cmd := &cobra.Command{
		Use:   "chunk <resume.pdf>",
		Short: "提取文本并按词窗口分块",
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
			text, err := processor.ExtractText(ctx, parser, data)
			if err != nil {
				return fmt.Errorf("提取PDF文本失败: %w", err)
			}

			chunks, err := processor.ChunkWords(text, cfg.Autofill.ChunkSize, cfg.Autofill.ChunkOverlap)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "分块完成，共 %d 块 (chunk_size=%d, overlap=%d)\n",
				len(chunks), cfg.Autofill.ChunkSize, cfg.Autofill.ChunkOverlap)

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), chunks)
			}
			for _, c := range chunks {
				fmt.Fprintf(cmd.OutOrStdout(), "--- 分块 #%d [词 %d-%d] ---\n%s\n", c.Index, c.Start, c.End(), truncate(c.Text, maxLen))
			}
			return nil
		},
	}

	addChunkFlags(cmd)
	cmd.Flags().IntVar(&maxLen, "maxlen", 300, "每块显示的最大长度，-1显示全部")
	return cmd
}
