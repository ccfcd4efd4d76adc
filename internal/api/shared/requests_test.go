package shared

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Format string   `json:"format"         validate:"required,oneof=word pdf text"`
	Count  int      `json:"exercise_count" validate:"min=1,max=50"`
	Types  []string `json:"question_types" validate:"required,min=1"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid json", `{"format":"text","exercise_count":3}`, false},
		{"invalid json", `{"format":"text",}`, true},
		{"empty body", "", true},
		{"too large", `{"format":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tc.body))
			var target sampleRequest
			err := DecodeJSON(httptest.NewRecorder(), req, &target)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "text", target.Format)
			assert.Equal(t, 3, target.Count)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     sampleRequest
		field   string
		message string
	}{
		{"valid", sampleRequest{Format: "pdf", Count: 5, Types: []string{"choice"}}, "", ""},
		{"missing format", sampleRequest{Count: 5, Types: []string{"choice"}}, "format", "is required"},
		{"bad format", sampleRequest{Format: "xlsx", Count: 5, Types: []string{"choice"}}, "format", "must be one of word, pdf, text"},
		{"count too high", sampleRequest{Format: "pdf", Count: 51, Types: []string{"choice"}}, "exercise_count", "must be at most 50"},
		{"no types", sampleRequest{Format: "pdf", Count: 5}, "question_types", "is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(&tc.req)
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, tc.message, ve.Message)
		})
	}
}
