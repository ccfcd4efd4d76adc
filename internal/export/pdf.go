package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"
	"github.com/phrazzld/exercise-api/internal/domain"
)

// ErrFontRequired is returned when text outside Latin-1 must be rendered to
// PDF but no UTF-8 font is configured.
var ErrFontRequired = errors.New("pdf export requires a UTF-8 font for non-Latin text")

const pdfFontFamily = "exercise"

// PDFRenderer writes PDF documents with fpdf.
type PDFRenderer struct {
	fontPath string
}

// NewPDFRenderer returns a renderer that embeds the TrueType font at fontPath.
// With an empty fontPath only Latin-1 text can be rendered.
func NewPDFRenderer(fontPath string) PDFRenderer {
	return PDFRenderer{fontPath: fontPath}
}

// Format implements Renderer.
func (PDFRenderer) Format() domain.ExportFormat { return domain.ExportFormatPDF }

// Extension implements Renderer.
func (PDFRenderer) Extension() string { return "pdf" }

// ContentType implements Renderer.
func (PDFRenderer) ContentType() string { return "application/pdf" }

// Render implements Renderer.
func (r PDFRenderer) Render(ctx context.Context, doc Document, w io.Writer) error {
	paper := string(doc.Options.PaperSize)
	if paper == "" {
		paper = string(domain.PaperA4)
	}

	pdf := fpdf.New("P", "mm", paper, "")
	pdf.SetTitle(doc.Title, true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)

	family := "Helvetica"
	labels := LatinLabels
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.fontPath != "" {
		pdf.AddUTF8Font(pdfFontFamily, "", r.fontPath)
		family = pdfFontFamily
		labels = ChineseLabels
		tr = func(s string) string { return s }
	} else if !latin1Only(doc) {
		return ErrFontRequired
	}

	if doc.Options.HeaderText != "" {
		header := tr(doc.Options.HeaderText)
		pdf.SetHeaderFunc(func() {
			pdf.SetFont(family, "", 9)
			pdf.CellFormat(0, 6, header, "", 1, "C", false, 0, "")
			pdf.Ln(2)
		})
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(family, "", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont(family, "", 18)
	pdf.MultiCell(0, 10, tr(doc.Title), "", "C", false)
	pdf.SetFont(family, "", 10)
	pdf.MultiCell(0, 6, tr(doc.MetaLine(labels)), "", "C", false)
	pdf.Ln(6)

	pdf.SetFont(family, "", 12)
	for _, e := range doc.Exercises {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.MultiCell(0, 7, tr(fmt.Sprintf("%d. %s", e.Number, e.QuestionText)), "", "L", false)
		pdf.Ln(4)
	}

	if doc.ShowAnswerSection() {
		pdf.AddPage()
		pdf.SetFont(family, "", 14)
		pdf.MultiCell(0, 9, tr(labels.AnswerKey), "", "C", false)
		pdf.Ln(3)
		pdf.SetFont(family, "", 11)
		for _, e := range doc.Exercises {
			pdf.MultiCell(0, 6, tr(doc.AnswerLine(labels, e)), "", "L", false)
			pdf.Ln(1)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return nil
}

// latin1Only reports whether every string printed for doc fits the core fonts.
func latin1Only(doc Document) bool {
	texts := []string{doc.Title, doc.MetaLine(LatinLabels), doc.Options.HeaderText}
	for _, e := range doc.Exercises {
		texts = append(texts, e.QuestionText, doc.AnswerLine(LatinLabels, e))
	}
	for _, s := range texts {
		if strings.IndexFunc(s, func(r rune) bool { return r > unicode.MaxLatin1 }) >= 0 {
			return false
		}
	}
	return true
}
