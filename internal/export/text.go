package export

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/exercise-api/internal/domain"
)

// TextRenderer writes UTF-8 plain text.
type TextRenderer struct{}

// Format implements Renderer.
func (TextRenderer) Format() domain.ExportFormat { return domain.ExportFormatText }

// Extension implements Renderer.
func (TextRenderer) Extension() string { return "txt" }

// ContentType implements Renderer.
func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }

// Render implements Renderer.
func (TextRenderer) Render(ctx context.Context, doc Document, w io.Writer) error {
	bw := bufio.NewWriter(w)

	if doc.Options.HeaderText != "" {
		fmt.Fprintln(bw, doc.Options.HeaderText)
		fmt.Fprintln(bw)
	}
	fmt.Fprintln(bw, doc.Title)
	fmt.Fprintln(bw, doc.MetaLine(ChineseLabels))
	fmt.Fprintln(bw, strings.Repeat("=", 40))
	fmt.Fprintln(bw)

	for _, e := range doc.Exercises {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(bw, "%d. %s\n\n", e.Number, e.QuestionText)
	}

	if doc.ShowAnswerSection() {
		fmt.Fprintln(bw, strings.Repeat("-", 40))
		fmt.Fprintln(bw, ChineseLabels.AnswerKey)
		fmt.Fprintln(bw)
		for _, e := range doc.Exercises {
			fmt.Fprintln(bw, doc.AnswerLine(ChineseLabels, e))
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return nil
}
