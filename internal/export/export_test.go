package export

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func chineseDoc(opts domain.ExportOptions) Document {
	genID := uuid.New()
	exercises := domain.NewExercises(genID, []domain.ExerciseDraft{
		{QuestionType: "calculation", QuestionText: "12 + 30 = ?", CorrectAnswer: "42", Analysis: "个位相加，十位相加。"},
		{QuestionType: "choice", QuestionText: "下列哪个数最大？\nA. 3  B. 9", CorrectAnswer: "B"},
	}, generatedAt)
	return Document{
		Title:           "三年级数学练习",
		Subject:         "数学",
		Grade:           "三年级",
		DifficultyLevel: domain.DifficultySame,
		Exercises:       exercises,
		Options:         opts,
		GeneratedAt:     generatedAt,
	}
}

func latinDoc(opts domain.ExportOptions) Document {
	doc := chineseDoc(opts)
	doc.Title = "Grade 3 Math"
	doc.Subject = "Math"
	doc.Grade = "Grade 3"
	doc.Exercises[0].Analysis = "Add ones, then tens."
	doc.Exercises[1].QuestionText = "Which is larger? A. 3  B. 9 (6 × 2 ÷ 4)"
	return doc
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	r := NewDefaultRegistry("")
	for _, f := range domain.ExportFormats {
		rr, err := r.Get(f)
		require.NoError(t, err)
		assert.Equal(t, f, rr.Format())
	}
	_, err := r.Get("xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFileName(t *testing.T) {
	t.Parallel()
	doc := chineseDoc(domain.ExportOptions{Format: domain.ExportFormatText})
	assert.Equal(t, "三年级数学练习_20250310_093000.txt", FileName(doc, TextRenderer{}))

	doc.Title = ` a/b:c?. `
	assert.Equal(t, "a_b_c__20250310_093000.docx", FileName(doc, DocxRenderer{}))

	doc.Title = "..."
	assert.Equal(t, "exercises_20250310_093000.pdf", FileName(doc, NewPDFRenderer("")))
}

func TestTextRenderer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	doc := chineseDoc(domain.ExportOptions{Format: domain.ExportFormatText, IncludeAnswers: true, IncludeAnalysis: true, HeaderText: "期中复习"})
	require.NoError(t, TextRenderer{}.Render(context.Background(), doc, &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "期中复习\n"))
	assert.Contains(t, out, "科目：数学")
	assert.Contains(t, out, "1. 12 + 30 = ?")
	assert.Contains(t, out, "2. 下列哪个数最大？")
	assert.Contains(t, out, "参考答案")
	assert.Contains(t, out, "1. 答案：42  解析：个位相加，十位相加。")
	assert.Contains(t, out, "2. 答案：B")
	assert.Less(t, strings.Index(out, "1. 12"), strings.Index(out, "2. 下列"))

	buf.Reset()
	doc.Options = domain.ExportOptions{Format: domain.ExportFormatText}
	require.NoError(t, TextRenderer{}.Render(context.Background(), doc, &buf))
	assert.NotContains(t, buf.String(), "参考答案")
	assert.NotContains(t, buf.String(), "42")
}

func TestTextRendererHonoursCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := TextRenderer{}.Render(ctx, chineseDoc(domain.ExportOptions{}), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDocxRenderer(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	doc := chineseDoc(domain.ExportOptions{Format: domain.ExportFormatWord, IncludeAnswers: true, PaperSize: domain.PaperLetter})
	doc.Exercises[0].QuestionText = "1 < 2 & 3 > 2?"
	require.NoError(t, DocxRenderer{}.Render(context.Background(), doc, &buf))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		files[f.Name] = string(data)
	}
	require.Contains(t, files, "[Content_Types].xml")
	require.Contains(t, files, "_rels/.rels")
	body := files["word/document.xml"]
	assert.Contains(t, body, "三年级数学练习")
	assert.Contains(t, body, "1 &lt; 2 &amp; 3 &gt; 2?")
	assert.Contains(t, body, "答案：42")
	assert.Contains(t, body, `w:w="12240" w:h="15840"`)
	assert.Contains(t, body, "<w:br/>", "newlines become line breaks")
}

func TestPDFRendererLatinWithoutFont(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	doc := latinDoc(domain.ExportOptions{Format: domain.ExportFormatPDF, IncludeAnswers: true, PaperSize: domain.PaperA5, HeaderText: "Midterm"})
	require.NoError(t, NewPDFRenderer("").Render(context.Background(), doc, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFRendererRequiresFontForCJK(t *testing.T) {
	t.Parallel()
	err := NewPDFRenderer("").Render(context.Background(), chineseDoc(domain.ExportOptions{Format: domain.ExportFormatPDF}), io.Discard)
	assert.ErrorIs(t, err, ErrFontRequired)
}

func TestPDFRendererMissingFontFile(t *testing.T) {
	t.Parallel()
	err := NewPDFRenderer("/nonexistent/font.ttf").Render(context.Background(), chineseDoc(domain.ExportOptions{Format: domain.ExportFormatPDF}), io.Discard)
	assert.ErrorIs(t, err, ErrRenderFailed)
}

func TestAnswerLine(t *testing.T) {
	t.Parallel()
	doc := chineseDoc(domain.ExportOptions{IncludeAnalysis: true})
	assert.Equal(t, "1. 解析：个位相加，十位相加。", doc.AnswerLine(ChineseLabels, doc.Exercises[0]))
	assert.True(t, doc.ShowAnswerSection())
	assert.Equal(t, "Subject: 数学    Grade: 三年级    Difficulty: same    Questions: 2", doc.MetaLine(LatinLabels))
}
