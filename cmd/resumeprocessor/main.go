package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"resume-autofill/internal/config"
	appCoreLogger "resume-autofill/internal/logger"
)

// 全局参数
var (
	configPath string
	timeout    time.Duration
	outputJSON bool
	logLevel   string
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand 组装根命令和全部子命令
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resumeprocessor",
		Short: "简历自动填充流水线的命令行工具",
		Long:  "逐阶段运行简历自动填充流水线：extract 提取文本，chunk 分块，retrieve 向量检索，fill 输出结构化记录。",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			appCoreLogger.Init(appCoreLogger.Config{Level: logLevel, Format: "pretty", TimeFormat: "15:04:05"})
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径，留空时在常见位置查找")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "整个命令的超时时间")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "以JSON格式输出结果")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "日志级别: debug, info, warn, error")

	rootCmd.AddCommand(createExtractCommand())
	rootCmd.AddCommand(createChunkCommand())
	rootCmd.AddCommand(createRetrieveCommand())
	rootCmd.AddCommand(createFillCommand())
	return rootCmd
}

// loadConfig 加载配置，命令行上显式给出的分块参数覆盖配置文件
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("chunk-size") {
		cfg.Autofill.ChunkSize, _ = flags.GetInt("chunk-size")
	}
	if flags.Changed("overlap") {
		cfg.Autofill.ChunkOverlap, _ = flags.GetInt("overlap")
	}
	if flags.Changed("top-k") {
		cfg.Autofill.TopK, _ = flags.GetInt("top-k")
	}
	if flags.Changed("query") {
		cfg.Autofill.Query, _ = flags.GetString("query")
	}
	return cfg, nil
}

// addChunkFlags 分块相关参数，默认值仅用于帮助信息，未显式设置时以配置文件为准
func addChunkFlags(cmd *cobra.Command) {
	cmd.Flags().Int("chunk-size", 500, "每个分块的词数")
	cmd.Flags().Int("overlap", 50, "相邻分块重叠的词数")
}

// readPDF 读取命令行给出的PDF文件，进度信息写入 w
func readPDF(w io.Writer, path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("无法获取文件的绝对路径: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", absPath, err)
	}
	fmt.Fprintf(w, "准备处理PDF文件: %s (%d 字节)\n", absPath, len(data))
	return data, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// truncate 按字符截断用于终端预览
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen < 0 || len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
