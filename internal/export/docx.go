package export

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/exercise-api/internal/domain"
)

// DocxRenderer writes a minimal Office Open XML word-processing package.
type DocxRenderer struct{}

// Format implements Renderer.
func (DocxRenderer) Format() domain.ExportFormat { return domain.ExportFormatWord }

// Extension implements Renderer.
func (DocxRenderer) Extension() string { return "docx" }

// ContentType implements Renderer.
func (DocxRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

// Page sizes in twentieths of a point (portrait width, height).
var docxPageSizes = map[domain.PaperSize][2]int{
	domain.PaperA3:     {16838, 23811},
	domain.PaperA4:     {11906, 16838},
	domain.PaperA5:     {8391, 11906},
	domain.PaperLetter: {12240, 15840},
	domain.PaperLegal:  {12240, 20160},
}

const docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const docxRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Render implements Renderer.
func (DocxRenderer) Render(ctx context.Context, doc Document, w io.Writer) error {
	body, err := docxBody(ctx, doc)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRels},
		{"word/document.xml", body},
	}
	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("%w: create %s: %v", ErrRenderFailed, p.name, err)
		}
		if _, err := io.WriteString(f, p.content); err != nil {
			return fmt.Errorf("%w: write %s: %v", ErrRenderFailed, p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return nil
}

func docxBody(ctx context.Context, doc Document) (string, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)

	if doc.Options.HeaderText != "" {
		docxParagraph(&b, doc.Options.HeaderText, 20, false, "center")
	}
	docxParagraph(&b, doc.Title, 36, true, "center")
	docxParagraph(&b, doc.MetaLine(ChineseLabels), 21, false, "center")

	for _, e := range doc.Exercises {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		docxParagraph(&b, fmt.Sprintf("%d. %s", e.Number, e.QuestionText), 24, false, "")
	}

	if doc.ShowAnswerSection() {
		b.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
		docxParagraph(&b, ChineseLabels.AnswerKey, 28, true, "center")
		for _, e := range doc.Exercises {
			docxParagraph(&b, doc.AnswerLine(ChineseLabels, e), 22, false, "")
		}
	}

	size, ok := docxPageSizes[doc.Options.PaperSize]
	if !ok {
		size = docxPageSizes[domain.PaperA4]
	}
	fmt.Fprintf(&b, `<w:sectPr><w:pgSz w:w="%d" w:h="%d"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`,
		size[0], size[1])
	b.WriteString(`</w:body></w:document>`)
	return b.String(), nil
}

// docxParagraph writes one paragraph; size is in half-points. Newlines in
// text become line breaks inside the paragraph.
func docxParagraph(b *strings.Builder, text string, size int, bold bool, align string) {
	b.WriteString(`<w:p>`)
	if align != "" {
		fmt.Fprintf(b, `<w:pPr><w:jc w:val="%s"/></w:pPr>`, align)
	}
	for i, line := range strings.Split(text, "\n") {
		b.WriteString(`<w:r><w:rPr>`)
		if bold {
			b.WriteString(`<w:b/>`)
		}
		fmt.Fprintf(b, `<w:sz w:val="%d"/></w:rPr>`, size)
		if i > 0 {
			b.WriteString(`<w:br/>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		_ = xml.EscapeText(b, []byte(line))
		b.WriteString(`</w:t></w:r>`)
	}
	b.WriteString(`</w:p>`)
}
