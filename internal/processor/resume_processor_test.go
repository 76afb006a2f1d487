package processor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const sampleResumeText = `Jane Doe jane@example.com +1 555 0100 Berlin
Education Bachelor of Computer Science TU Berlin graduation 2024 cgpa 3.8
Technical skills Go Python Kubernetes PostgreSQL
Soft skills communication teamwork leadership
Languages English fluent German intermediate
Hobbies hiking chess photography travel`

type pipelineFixture struct {
	parser    *MockParser
	embedder  *MockEmbedder
	completer *MockCompleter
	recorder  *tracetest.SpanRecorder
	processor *AutofillProcessor
}

func newPipelineFixture(t *testing.T, opts ...SettingOpt) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		parser:    &MockParser{pages: strings.Split(sampleResumeText, "\n")},
		embedder:  &MockEmbedder{keywords: []string{"skills", "education", "languages", "hobbies"}},
		completer: &MockCompleter{replies: []string{"```json\n" + validResumeJSON + "\n```"}},
		recorder:  tracetest.NewSpanRecorder(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(f.recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	index, err := NewEmbeddingIndex(f.embedder, WithBatchSize(2), WithConcurrency(2))
	require.NoError(t, err)
	extractor, err := NewStructuredExtractor(f.completer, nil)
	require.NoError(t, err)

	nop := zerolog.Nop()
	opts = append([]SettingOpt{WithTracer(tp.Tracer("test")), WithLogger(&nop)}, opts...)
	f.processor, err = NewAutofillProcessor(&Components{
		Parser:    f.parser,
		Index:     index,
		Extractor: extractor,
	}, opts...)
	require.NoError(t, err)
	return f
}

func (f *pipelineFixture) spanNames() []string {
	var names []string
	for _, s := range f.recorder.Ended() {
		names = append(names, s.Name())
	}
	return names
}

func TestAutoFillFromResume(t *testing.T) {
	f := newPipelineFixture(t, WithChunking(8, 2), WithTopK(3))

	record, err := f.processor.AutoFillFromResume(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", record.Object("personal_information")["name"])
	assert.Equal(t, "TU Berlin", record.Object("education")["institution"])

	// 提示词只包含检索出的 top-k 分块
	require.Len(t, f.completer.prompts, 1)
	user := f.completer.prompts[0].User
	assert.Contains(t, user, "Retrieved resume context:")
	chunks, err := ChunkWords(sampleResumeText, 8, 2)
	require.NoError(t, err)
	included := 0
	for _, c := range chunks {
		if strings.Contains(user, c.Text) {
			included++
		}
	}
	assert.Equal(t, 3, included)

	assert.ElementsMatch(t,
		[]string{"autofill.extract", "autofill.embed", "autofill.retrieve", "autofill.generate", "autofill.pipeline"},
		f.spanNames())
	for _, s := range f.recorder.Ended() {
		assert.NotEqual(t, codes.Error, s.Status().Code, s.Name())
	}
}

func TestAutoFillFromResumeStageErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *pipelineFixture)
		data     []byte
		sentinel error
		failed   string
	}{
		{"空文档", func(f *pipelineFixture) {}, nil, ErrExtraction, "autofill.extract"},
		{"解析失败", func(f *pipelineFixture) { f.parser.err = errors.New("bad xref") }, []byte("x"), ErrExtraction, "autofill.extract"},
		{"向量化失败", func(f *pipelineFixture) { f.embedder.err = errors.New("401") }, []byte("x"), ErrGeneration, "autofill.embed"},
		{"生成失败", func(f *pipelineFixture) { f.completer.errs = []error{errors.New("500")} }, []byte("x"), ErrGeneration, "autofill.generate"},
		{"非法JSON", func(f *pipelineFixture) { f.completer.replies = []string{"Sorry, I can't."} }, []byte("x"), ErrParse, "autofill.generate"},
		{"缺少字段", func(f *pipelineFixture) { f.completer.replies = []string{`{"personal_information":{}}`} }, []byte("x"), ErrSchemaValidation, "autofill.generate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPipelineFixture(t)
			tt.setup(f)

			record, err := f.processor.AutoFillFromResume(context.Background(), tt.data)
			assert.Nil(t, record)
			assert.True(t, errors.Is(err, tt.sentinel), "%v", err)

			var failed []string
			for _, s := range f.recorder.Ended() {
				if s.Status().Code == codes.Error {
					failed = append(failed, s.Name())
				}
			}
			assert.ElementsMatch(t, []string{tt.failed, "autofill.pipeline"}, failed)
		})
	}
}

func TestAutoFillFromResumeStopsAfterFailure(t *testing.T) {
	f := newPipelineFixture(t)
	f.parser.pages = []string{"   "}

	_, err := f.processor.AutoFillFromResume(context.Background(), []byte("x"))
	assert.True(t, errors.Is(err, ErrExtraction))
	assert.Empty(t, f.embedder.Batches(), "文本提取失败后不应调用向量模型")
	assert.Empty(t, f.completer.prompts, "不应调用生成模型")
}

func TestAutoFillFromResumeCanceled(t *testing.T) {
	f := newPipelineFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.processor.AutoFillFromResume(ctx, []byte("x"))
	assert.Equal(t, KindCanceled, KindOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, f.parser.calls)
}

func TestNewAutofillProcessorValidation(t *testing.T) {
	index, _ := NewEmbeddingIndex(&MockEmbedder{})
	extractor, _ := NewStructuredExtractor(&MockCompleter{}, nil)
	components := &Components{Parser: &MockParser{}, Index: index, Extractor: extractor}

	_, err := NewAutofillProcessor(nil)
	assert.True(t, errors.Is(err, ErrConfiguration))
	_, err = NewAutofillProcessor(&Components{Parser: &MockParser{}})
	assert.True(t, errors.Is(err, ErrConfiguration))

	for _, opt := range []SettingOpt{WithChunking(4, 4), WithChunking(0, 0), WithTopK(0)} {
		_, err = NewAutofillProcessor(components, opt)
		assert.True(t, errors.Is(err, ErrConfiguration))
	}

	p, err := NewAutofillProcessor(components, WithQuery(""), WithTopK(2))
	require.NoError(t, err)
	s := p.Settings()
	assert.Equal(t, DefaultQuery, s.Query, "空查询保留默认值")
	assert.Equal(t, 2, s.TopK)
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.ChunkOverlap)
}

func TestAutofillErrorFormatting(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewGenerationError("generate", "补全调用失败", cause)

	assert.Contains(t, err.Error(), "generate")
	assert.Contains(t, err.Error(), "connection reset")
	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrParse)
	assert.Equal(t, KindGeneration, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}
