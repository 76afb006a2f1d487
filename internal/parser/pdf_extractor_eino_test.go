package parser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-autofill/internal/testutil"
)

func TestNewEinoPDFPageParser(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewEinoPDFPageParser(ctx)
	require.NoError(t, err, "创建PDF解析器不应返回错误")
	require.NotNil(t, p.parser, "内部parser不应为nil")
	require.NotNil(t, p.logger, "应该有默认的logger")
	assert.Equal(t, 30*time.Second, p.timeout)

	custom := zerolog.Nop()
	p2, err := NewEinoPDFPageParser(ctx, WithEinoLogger(&custom), WithParseTimeout(time.Second))
	require.NoError(t, err)
	assert.Same(t, &custom, p2.logger, "应该使用提供的logger")
	assert.Equal(t, time.Second, p2.timeout)
}

func TestParsePagesGeneratedPDF(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p, err := NewEinoPDFPageParser(ctx)
	require.NoError(t, err)

	pages, err := p.ParsePages(ctx, testutil.BuildPDF("Jane Doe Software Engineer", "Skills Go Python"))
	require.NoError(t, err, "合法PDF应能解析")
	require.Len(t, pages, 2, "每页应对应一个文本")
	assert.Contains(t, pages[0], "Jane")
	assert.Contains(t, pages[1], "Python")
}

func TestParsePagesInvalidInput(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := NewEinoPDFPageParser(ctx)
	require.NoError(t, err)

	_, err = p.ParsePages(ctx, nil)
	require.Error(t, err, "空内容应返回错误")

	_, err = p.ParsePages(ctx, []byte("%PDF-1.5\nThis is not a real PDF file\n"))
	require.Error(t, err, "损坏的PDF应返回错误")
}

// TestParsePagesFromTestdata 使用 testdata 目录中的真实简历（如存在）
func TestParsePagesFromTestdata(t *testing.T) {
	var files []string
	for _, dir := range []string{"testdata", "../testdata", "../../testdata"} {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.pdf"))
		files = append(files, matches...)
	}
	if len(files) == 0 {
		t.Skip("testdata 中没有PDF文件，跳过")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p, err := NewEinoPDFPageParser(ctx)
	require.NoError(t, err)

	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		pages, err := p.ParsePages(ctx, data)
		require.NoError(t, err, "解析 %s 失败", f)
		assert.NotEmpty(t, pages)
		t.Logf("%s: %d 页", f, len(pages))
	}
}
