package main

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"resume-autofill/internal/processor"
)

func createExtractCommand() *cobra.Command {
	var (
		maxLen   int
		saveFile string
	)

	cmd := &cobra.Command{
		Use:   "extract <resume.pdf>",
		Short: "从PDF中提取纯文本",
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

			startTime := time.Now()
			text, err := processor.ExtractText(ctx, parser, data)
			if err != nil {
				return fmt.Errorf("提取PDF文本失败: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "提取完成! 耗时: %v，提取了 %d 字符文本\n",
				time.Since(startTime), utf8.RuneCountInString(text))

			if saveFile != "" {
				if err := os.WriteFile(saveFile, []byte(text), 0o644); err != nil {
					return fmt.Errorf("保存文本失败: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "文本已保存到: %s\n", saveFile)
			}

			if outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"text": text, "length": len(text)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), truncate(text, maxLen))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxLen, "maxlen", -1, "显示的文本最大长度，-1显示全部")
	cmd.Flags().StringVarP(&saveFile, "save", "o", "", "保存提取内容到文件")
	return cmd
}
