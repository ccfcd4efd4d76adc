package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// DefaultDownloadTTL is how long an export file stays downloadable.
const DefaultDownloadTTL = 24 * time.Hour

// MaxHeaderTextLength bounds the optional header printed on exports.
const MaxHeaderTextLength = 200

// ExportFormat is the file type produced by an export.
type ExportFormat string

// Supported export formats
const (
	ExportFormatWord ExportFormat = "word"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatText ExportFormat = "text"
)

// ExportFormats lists every supported format in presentation order.
var ExportFormats = []ExportFormat{ExportFormatWord, ExportFormatPDF, ExportFormatText}

// Valid reports whether f is a supported format.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatWord, ExportFormatPDF, ExportFormatText:
		return true
	default:
		return false
	}
}

// PaperSize is the page size used by paginated formats.
type PaperSize string

// Supported paper sizes
const (
	PaperA4     PaperSize = "A4"
	PaperA3     PaperSize = "A3"
	PaperA5     PaperSize = "A5"
	PaperLetter PaperSize = "Letter"
	PaperLegal  PaperSize = "Legal"
)

// Valid reports whether p is a supported paper size.
func (p PaperSize) Valid() bool {
	switch p {
	case PaperA4, PaperA3, PaperA5, PaperLetter, PaperLegal:
		return true
	default:
		return false
	}
}

// ExportOptions controls what an export contains and how it is laid out.
type ExportOptions struct {
	Format          ExportFormat `json:"format"`
	IncludeAnswers  bool         `json:"include_answers"`
	IncludeAnalysis bool         `json:"include_analysis"`
	PaperSize       PaperSize    `json:"paper_size"`
	HeaderText      string       `json:"header_text,omitempty"`
}

// Normalize fills defaults and validates the options.
func (o *ExportOptions) Normalize() error {
	o.HeaderText = strings.TrimSpace(o.HeaderText)
	if o.PaperSize == "" {
		o.PaperSize = PaperA4
	}
	if !o.Format.Valid() {
		return NewValidationError("format", "must be one of word, pdf, text", nil)
	}
	if !o.PaperSize.Valid() {
		return NewValidationError("paper_size", "must be one of A4, A3, A5, Letter, Legal", nil)
	}
	if utf8.RuneCountInString(o.HeaderText) > MaxHeaderTextLength {
		return NewValidationError("header_text", "is too long", nil)
	}
	return nil
}

// FileInfo describes a rendered file once it is stored.
type FileInfo struct {
	FileName    string
	SizeBytes   int64
	BlobRef     string
	ContentType string
}

// Download is an export of a completed generation into a file with a
// finite lifetime. The stored blob is owned exclusively by the record.
type Download struct {
	ID           uuid.UUID `json:"id"`
	GenerationID uuid.UUID `json:"generation_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	ExportOptions

	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`

	FileName      string `json:"file_name,omitempty"`
	FileSizeBytes int64  `json:"file_size_bytes,omitempty"`
	BlobRef       string `json:"-"`
	ContentType   string `json:"content_type,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// NewDownload returns a pending download that expires ttl after now.
func NewDownload(ownerID, generationID uuid.UUID, opts ExportOptions, now time.Time, ttl time.Duration) (*Download, error) {
	if ownerID == uuid.Nil {
		return nil, NewValidationError("owner_id", "cannot be empty", ErrInvalidID)
	}
	if generationID == uuid.Nil {
		return nil, NewValidationError("generation_id", "cannot be empty", ErrInvalidID)
	}
	if err := opts.Normalize(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}

	created := now.UTC()
	return &Download{
		ID:            uuid.New(),
		GenerationID:  generationID,
		OwnerID:       ownerID,
		ExportOptions: opts,
		Status:        JobStatusPending,
		CreatedAt:     created,
		UpdatedAt:     created,
		ExpiresAt:     created.Add(ttl),
	}, nil
}

// IsExpired reports whether the download is eligible for deletion at now.
func (d *Download) IsExpired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// OwnedBy reports whether userID owns the download.
func (d *Download) OwnedBy(userID uuid.UUID) bool {
	return d.OwnerID == userID
}

// Clone returns a deep copy of d.
func (d *Download) Clone() *Download {
	c := *d
	c.CompletedAt = cloneTime(d.CompletedAt)
	return &c
}
