package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/service/cleanup"
)

// GenerateRequest defines the payload for requesting a new exercise batch.
type GenerateRequest struct {
	Subject         string   `json:"subject"          validate:"required,max=50"`
	Grade           string   `json:"grade"            validate:"required,max=50"`
	Title           string   `json:"title"            validate:"max=200"`
	ExerciseCount   int      `json:"exercise_count"   validate:"required,min=1,max=50"`
	DifficultyLevel string   `json:"difficulty_level" validate:"required,oneof=easier same harder mixed"`
	QuestionTypes   []string `json:"question_types"   validate:"required,min=1,dive,required"`
	SourceText      string   `json:"source_text"`
}

// Params converts the request into service parameters.
func (r GenerateRequest) Params() domain.GenerationParams {
	return domain.GenerationParams{
		Subject:         r.Subject,
		Grade:           r.Grade,
		Title:           r.Title,
		RequestedCount:  r.ExerciseCount,
		DifficultyLevel: domain.DifficultyLevel(r.DifficultyLevel),
		QuestionTypes:   r.QuestionTypes,
		SourceText:      r.SourceText,
	}
}

// GenerateResponse acknowledges an accepted generation request.
type GenerateResponse struct {
	GenerationID uuid.UUID        `json:"generation_id"`
	Status       domain.JobStatus `json:"status"`
	ProgressURL  string           `json:"progress_url"`
}

// GenerationResponse is the client view of a generation job.
type GenerationResponse struct {
	ID                        uuid.UUID              `json:"id"`
	Subject                   string                 `json:"subject"`
	Grade                     string                 `json:"grade"`
	Title                     string                 `json:"title"`
	ExerciseCount             int                    `json:"exercise_count"`
	RequestedCount            int                    `json:"requested_count"`
	DifficultyLevel           domain.DifficultyLevel `json:"difficulty_level"`
	QuestionTypes             []string               `json:"question_types"`
	Status                    domain.JobStatus       `json:"status"`
	ProgressPercent           float64                `json:"progress_percent"`
	ErrorMessage              string                 `json:"error_message,omitempty"`
	IsFavorite                bool                   `json:"is_favorite"`
	CreatedAt                 time.Time              `json:"created_at"`
	UpdatedAt                 time.Time              `json:"updated_at"`
	StartedAt                 *time.Time             `json:"started_at,omitempty"`
	CompletedAt               *time.Time             `json:"completed_at,omitempty"`
	GenerationDurationSeconds *float64               `json:"generation_duration_seconds,omitempty"`
}

// ExerciseResponse is the client view of a single exercise.
type ExerciseResponse struct {
	ID              uuid.UUID `json:"id"`
	Number          int       `json:"number"`
	QuestionType    string    `json:"question_type"`
	QuestionText    string    `json:"question_text"`
	CorrectAnswer   string    `json:"correct_answer"`
	Analysis        string    `json:"analysis,omitempty"`
	Difficulty      string    `json:"difficulty"`
	KnowledgePoints []string  `json:"knowledge_points"`
	QualityScore    float64   `json:"quality_score"`
}

// ExercisesResponse wraps the ordered exercises of a completed generation.
type ExercisesResponse struct {
	GenerationID uuid.UUID          `json:"generation_id"`
	Items        []ExerciseResponse `json:"items"`
	Total        int                `json:"total"`
}

// GenerationListResponse is one page of generations.
type GenerationListResponse struct {
	Items   []GenerationResponse `json:"items"`
	Total   int                  `json:"total"`
	Limit   int                  `json:"limit"`
	Offset  int                  `json:"offset"`
	HasMore bool                 `json:"has_more"`
}

// FavoriteRequest toggles the favourite flag of a generation.
type FavoriteRequest struct {
	IsFavorite *bool `json:"is_favorite" validate:"required"`
}

// ExportRequest defines the payload for exporting a generation to a file.
type ExportRequest struct {
	Format          string `json:"format"           validate:"required,oneof=word pdf text"`
	PaperSize       string `json:"paper_size"       validate:"omitempty,oneof=A4 A3 A5 Letter Legal"`
	IncludeAnswers  bool   `json:"include_answers"`
	IncludeAnalysis bool   `json:"include_analysis"`
	HeaderText      string `json:"header_text"      validate:"max=200"`
}

// Options converts the request into export options.
func (r ExportRequest) Options() domain.ExportOptions {
	return domain.ExportOptions{
		Format:          domain.ExportFormat(r.Format),
		PaperSize:       domain.PaperSize(r.PaperSize),
		IncludeAnswers:  r.IncludeAnswers,
		IncludeAnalysis: r.IncludeAnalysis,
		HeaderText:      r.HeaderText,
	}
}

// DownloadResponse describes an export and where to fetch it.
type DownloadResponse struct {
	ID              uuid.UUID           `json:"id"`
	GenerationID    uuid.UUID           `json:"generation_id"`
	Format          domain.ExportFormat `json:"format"`
	PaperSize       domain.PaperSize    `json:"paper_size"`
	IncludeAnswers  bool                `json:"include_answers"`
	IncludeAnalysis bool                `json:"include_analysis"`
	Status          domain.JobStatus    `json:"status"`
	ErrorMessage    string              `json:"error_message,omitempty"`
	FileName        string              `json:"file_name,omitempty"`
	FileSizeBytes   int64               `json:"file_size_bytes,omitempty"`
	DownloadURL     string              `json:"download_url"`
	CreatedAt       time.Time           `json:"created_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
	ExpiresAt       time.Time           `json:"expires_at"`
	IsExpired       bool                `json:"is_expired"`
}

// DetailResponse carries a human-readable confirmation.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// OptionResponse is one selectable value of a catalog list.
type OptionResponse struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionsResponse wraps a catalog list.
type OptionsResponse struct {
	Items []OptionResponse `json:"items"`
}

// CleanupResponse reports the outcome of a manual sweep.
type CleanupResponse = cleanup.Result

func toGenerationResponse(job *domain.GenerationJob) GenerationResponse {
	return GenerationResponse{
		ID:                        job.ID,
		Subject:                   job.Subject,
		Grade:                     job.Grade,
		Title:                     job.Title,
		ExerciseCount:             job.ExerciseCount,
		RequestedCount:            job.RequestedCount,
		DifficultyLevel:           job.DifficultyLevel,
		QuestionTypes:             job.QuestionTypes,
		Status:                    job.Status,
		ProgressPercent:           job.ProgressPercent,
		ErrorMessage:              job.ErrorMessage,
		IsFavorite:                job.IsFavorite,
		CreatedAt:                 job.CreatedAt,
		UpdatedAt:                 job.UpdatedAt,
		StartedAt:                 job.StartedAt,
		CompletedAt:               job.CompletedAt,
		GenerationDurationSeconds: job.GenerationDurationSeconds,
	}
}

func toExerciseResponses(exercises []*domain.Exercise) []ExerciseResponse {
	out := make([]ExerciseResponse, 0, len(exercises))
	for _, e := range exercises {
		out = append(out, ExerciseResponse{
			ID:              e.ID,
			Number:          e.Number,
			QuestionType:    e.QuestionType,
			QuestionText:    e.QuestionText,
			CorrectAnswer:   e.CorrectAnswer,
			Analysis:        e.Analysis,
			Difficulty:      e.Difficulty,
			KnowledgePoints: e.KnowledgePoints,
			QualityScore:    e.QualityScore,
		})
	}
	return out
}

func toDownloadResponse(d *domain.Download, downloadURL string, now time.Time) DownloadResponse {
	return DownloadResponse{
		ID:              d.ID,
		GenerationID:    d.GenerationID,
		Format:          d.Format,
		PaperSize:       d.PaperSize,
		IncludeAnswers:  d.IncludeAnswers,
		IncludeAnalysis: d.IncludeAnalysis,
		Status:          d.Status,
		ErrorMessage:    d.ErrorMessage,
		FileName:        d.FileName,
		FileSizeBytes:   d.FileSizeBytes,
		DownloadURL:     downloadURL,
		CreatedAt:       d.CreatedAt,
		CompletedAt:     d.CompletedAt,
		ExpiresAt:       d.ExpiresAt,
		IsExpired:       d.IsExpired(now),
	}
}
