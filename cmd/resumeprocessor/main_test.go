package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-autofill/internal/testutil"
	"resume-autofill/internal/types"
)

const testConfigPath = "../../internal/config/config.yaml"

// writeTestPDF 在临时目录写入生成的PDF并返回路径
func writeTestPDF(t *testing.T, pages ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.pdf")
	require.NoError(t, os.WriteFile(path, testutil.BuildPDF(pages...), 0o644))
	return path
}

// runCommand 执行根命令，返回标准输出和标准错误
func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	configPath = ""
	t.Setenv("HOME", t.TempDir())

	cmd := createRetrieveCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--chunk-size", "8", "--overlap", "2", "-k", "3", "-q", "skills"}))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Autofill.ChunkSize)
	assert.Equal(t, 2, cfg.Autofill.ChunkOverlap)
	assert.Equal(t, 3, cfg.Autofill.TopK)
	assert.Equal(t, "skills", cfg.Autofill.Query)
}

func TestLoadConfigKeepsUnsetFlags(t *testing.T) {
	configPath = ""
	cmd := createChunkCommand()
	require.NoError(t, cmd.Flags().Parse(nil))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Positive(t, cfg.Autofill.ChunkSize)
	assert.NotEmpty(t, cfg.Autofill.Query)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abc", 2))
	assert.Equal(t, "abc", truncate("abc", -1))
	assert.Equal(t, "简历...", truncate("简历文本", 2))
}

func TestReadPDFMissingFile(t *testing.T) {
	var progress bytes.Buffer
	_, err := readPDF(&progress, "does-not-exist.pdf")
	assert.Error(t, err)
	assert.Empty(t, progress.String())
}

func TestChunkCommandJSON(t *testing.T) {
	path := writeTestPDF(t, "Jane Doe Go developer", "Berlin Germany open source")

	stdout, stderr, err := runCommand(t, "chunk", path, "-c", testConfigPath,
		"--chunk-size", "4", "--overlap", "1", "--json")
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "分块完成")

	var chunks []types.Chunk
	require.NoError(t, json.Unmarshal([]byte(stdout), &chunks), stdout)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, i*3, c.Start, "步长为 chunk_size-overlap")
		assert.LessOrEqual(t, len(strings.Fields(c.Text)), 4)
	}
	assert.Contains(t, chunks[0].Text, "Jane")
	assert.Contains(t, chunks[len(chunks)-1].Text, "source")
}

func TestChunkCommandText(t *testing.T) {
	path := writeTestPDF(t, "Jane Doe Go developer")

	stdout, _, err := runCommand(t, "chunk", path, "-c", testConfigPath, "--chunk-size", "2", "--overlap", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "--- 分块 #0 [词 0-")
	assert.Contains(t, stdout, "Jane")
}

func TestExtractCommandJSON(t *testing.T) {
	path := writeTestPDF(t, "Jane Doe Software Engineer")
	saved := filepath.Join(t.TempDir(), "resume.txt")

	stdout, stderr, err := runCommand(t, "extract", path, "-c", testConfigPath, "--json", "-o", saved)
	require.NoError(t, err, stderr)

	var out struct {
		Text   string `json:"text"`
		Length int    `json:"length"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), stdout)
	assert.Contains(t, out.Text, "Engineer")
	assert.Equal(t, len(out.Text), out.Length)

	content, err := os.ReadFile(saved)
	require.NoError(t, err)
	assert.Equal(t, out.Text, string(content))
}

func TestChunkCommandMissingFile(t *testing.T) {
	_, _, err := runCommand(t, "chunk", filepath.Join(t.TempDir(), "missing.pdf"), "-c", testConfigPath)
	assert.Error(t, err)
}
