package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phrazzld/exercise-api/internal/domain"
)

// ErrUnsupportedFormat is returned by Registry.Get for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrRenderFailed wraps failures inside a renderer.
var ErrRenderFailed = errors.New("render failed")

// Document is the input to every renderer.
type Document struct {
	Title           string
	Subject         string
	Grade           string
	DifficultyLevel domain.DifficultyLevel
	Exercises       []*domain.Exercise
	Options         domain.ExportOptions
	GeneratedAt     time.Time
}

// NewDocument assembles a Document from a completed job and its exercises.
func NewDocument(job *domain.GenerationJob, exercises []*domain.Exercise, opts domain.ExportOptions, now time.Time) Document {
	return Document{
		Title:           job.Title,
		Subject:         job.Subject,
		Grade:           job.Grade,
		DifficultyLevel: job.DifficultyLevel,
		Exercises:       exercises,
		Options:         opts,
		GeneratedAt:     now,
	}
}

// Labels are the fixed captions printed around the exercises.
type Labels struct {
	Subject    string
	Grade      string
	Difficulty string
	Count      string
	AnswerKey  string
	Answer     string
	Analysis   string
	latin      bool
}

// ChineseLabels are used by every renderer that can print CJK text.
var ChineseLabels = Labels{
	Subject: "科目", Grade: "年级", Difficulty: "难度", Count: "题量",
	AnswerKey: "参考答案", Answer: "答案：", Analysis: "解析：",
}

// LatinLabels are used by the PDF renderer when no UTF-8 font is available.
var LatinLabels = Labels{
	Subject: "Subject", Grade: "Grade", Difficulty: "Difficulty", Count: "Questions",
	AnswerKey: "Answer key", Answer: "Answer: ", Analysis: "Analysis: ", latin: true,
}

// MetaLine is the summary printed under the title.
func (d Document) MetaLine(l Labels) string {
	difficulty := d.DifficultyLevel.Label()
	sep := "："
	if l.latin {
		difficulty = string(d.DifficultyLevel)
		sep = ": "
	}
	return fmt.Sprintf("%s%s%s    %s%s%s    %s%s%s    %s%s%d",
		l.Subject, sep, d.Subject, l.Grade, sep, d.Grade,
		l.Difficulty, sep, difficulty, l.Count, sep, len(d.Exercises))
}

// ShowAnswerSection reports whether an answer key is appended.
func (d Document) ShowAnswerSection() bool {
	return d.Options.IncludeAnswers || d.Options.IncludeAnalysis
}

// AnswerLine formats the answer key entry for e according to the options.
func (d Document) AnswerLine(l Labels, e *domain.Exercise) string {
	var parts []string
	if d.Options.IncludeAnswers {
		parts = append(parts, l.Answer+e.CorrectAnswer)
	}
	if d.Options.IncludeAnalysis && e.Analysis != "" {
		parts = append(parts, l.Analysis+e.Analysis)
	}
	return fmt.Sprintf("%d. %s", e.Number, strings.Join(parts, "  "))
}

// Renderer writes a Document in one file format.
type Renderer interface {
	Format() domain.ExportFormat
	Extension() string
	ContentType() string
	Render(ctx context.Context, doc Document, w io.Writer) error
}

// Registry maps formats to renderers.
type Registry struct {
	renderers map[domain.ExportFormat]Renderer
}

// NewRegistry registers renderers by their Format.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[domain.ExportFormat]Renderer, len(renderers))}
	for _, rr := range renderers {
		r.renderers[rr.Format()] = rr
	}
	return r
}

// NewDefaultRegistry returns a registry with the text, word and pdf renderers.
// fontPath is the UTF-8 TrueType font used for PDF output and may be empty.
func NewDefaultRegistry(fontPath string) *Registry {
	return NewRegistry(TextRenderer{}, DocxRenderer{}, NewPDFRenderer(fontPath))
}

// Get returns the renderer for format.
func (r *Registry) Get(format domain.ExportFormat) (Renderer, error) {
	rr, ok := r.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return rr, nil
}

// FileName builds the download file name for doc rendered by r.
func FileName(doc Document, r Renderer) string {
	base := sanitizeFileName(doc.Title)
	if base == "" {
		base = "exercises"
	}
	return fmt.Sprintf("%s_%s.%s", base, doc.GeneratedAt.Format("20060102_150405"), r.Extension())
}

func sanitizeFileName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(s))
	return strings.Trim(s, ". ")
}
