package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"resume-autofill/internal/parser"
	"resume-autofill/internal/processor"
)

func createFillCommand() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "fill <resume.pdf>",
		Short: "运行完整流水线，输出结构化简历记录",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("配置校验失败: %w", err)
			}
			data, err := readPDF(cmd.ErrOrStderr(), args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()

			chat, err := parser.NewChatModel(ctx, cfg.LLM)
			if err != nil {
				return err
			}
			proc, err := processor.CreateAutofillProcessor(ctx, cfg, chat)
			if err != nil {
				return err
			}

			startTime := time.Now()
			record, err := proc.AutoFillFromResume(ctx, data)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "自动填充失败 (%s)\n", processor.KindOf(err))
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "自动填充完成! 耗时: %v\n", time.Since(startTime))

			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("创建输出文件失败: %w", err)
				}
				defer f.Close()
				if err := writeJSON(f, record); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "结果已保存到: %s\n", outputFile)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	addChunkFlags(cmd)
	cmd.Flags().IntP("top-k", "k", 5, "送入模型的分块数")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "输出结果到JSON文件")
	return cmd
}
