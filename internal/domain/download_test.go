package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDownloadExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	d, err := NewDownload(uuid.New(), uuid.New(), ExportOptions{Format: ExportFormatText}, now, 2*time.Hour)

	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, d.Status)
	assert.Equal(t, PaperA4, d.PaperSize)
	assert.Equal(t, d.CreatedAt.Add(2*time.Hour), d.ExpiresAt)
	assert.False(t, d.IsExpired(now.Add(2*time.Hour-time.Nanosecond)))
	assert.True(t, d.IsExpired(now.Add(2*time.Hour)))
}

func TestNewDownloadDefaultTTL(t *testing.T) {
	t.Parallel()

	now := time.Now()
	d, err := NewDownload(uuid.New(), uuid.New(), ExportOptions{Format: ExportFormatPDF}, now, 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultDownloadTTL, d.ExpiresAt.Sub(d.CreatedAt))
}

func TestNewDownloadValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts ExportOptions
	}{
		{"unknown format", ExportOptions{Format: "xlsx"}},
		{"unknown paper", ExportOptions{Format: ExportFormatWord, PaperSize: "B5"}},
		{"long header", ExportOptions{Format: ExportFormatWord, HeaderText: strings.Repeat("x", MaxHeaderTextLength+1)}},
	}

	for _, tc := range tests {
		_, err := NewDownload(uuid.New(), uuid.New(), tc.opts, time.Now(), time.Hour)
		assert.ErrorIs(t, err, ErrValidation, tc.name)
	}

	_, err := NewDownload(uuid.Nil, uuid.New(), ExportOptions{Format: ExportFormatText}, time.Now(), time.Hour)
	assert.ErrorIs(t, err, ErrInvalidID)
}
