package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/export"
)

// MockRenderer implements export.Renderer for testing
type MockRenderer struct {
	FormatValue domain.ExportFormat
	RenderFn    func(ctx context.Context, doc export.Document, w io.Writer) error

	mu          sync.Mutex
	RenderCount int
	Documents   []export.Document
}

var _ export.Renderer = (*MockRenderer)(nil)

// Format implements export.Renderer.
func (m *MockRenderer) Format() domain.ExportFormat {
	if m.FormatValue == "" {
		return domain.ExportFormatText
	}
	return m.FormatValue
}

// Extension implements export.Renderer.
func (m *MockRenderer) Extension() string { return "mock" }

// ContentType implements export.Renderer.
func (m *MockRenderer) ContentType() string { return "application/octet-stream" }

// Render implements export.Renderer. Without RenderFn it writes the title.
func (m *MockRenderer) Render(ctx context.Context, doc export.Document, w io.Writer) error {
	m.mu.Lock()
	m.RenderCount++
	m.Documents = append(m.Documents, doc)
	m.mu.Unlock()

	if m.RenderFn != nil {
		return m.RenderFn(ctx, doc, w)
	}
	_, err := io.WriteString(w, doc.Title)
	return err
}

// Calls returns how many times Render was called.
func (m *MockRenderer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RenderCount
}
