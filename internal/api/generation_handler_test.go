package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/service"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validGenerateBody = `{
	"subject": "数学",
	"grade": "三年级",
	"exercise_count": 5,
	"difficulty_level": "same",
	"question_types": ["calculation"]
}`

func decodeBody[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), "response body: %s", body)
	return v
}

func TestGenerate(t *testing.T) {
	t.Parallel()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		userID := uuid.New()
		ta := newTestAPI(t, userID)

		var got domain.GenerationParams
		var job *domain.GenerationJob
		ta.generations.SubmitFn = func(_ context.Context, ownerID uuid.UUID, params domain.GenerationParams) (*domain.GenerationJob, error) {
			assert.Equal(t, userID, ownerID)
			got = params
			job = testutils.MustCreateGenerationJob(t, ownerID, testNow)
			return job, nil
		}

		rec := ta.do(http.MethodPost, "/generate", validGenerateBody)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decodeBody[GenerateResponse](t, rec.Body.Bytes())
		assert.Equal(t, job.ID, resp.GenerationID)
		assert.Equal(t, domain.JobStatusPending, resp.Status)
		assert.Equal(t, "https://exercises.example.com/generation/"+job.ID.String(), resp.ProgressURL)

		assert.Equal(t, "数学", got.Subject)
		assert.Equal(t, 5, got.RequestedCount)
		assert.Equal(t, domain.DifficultySame, got.DifficultyLevel)
		assert.Equal(t, []string{"calculation"}, got.QuestionTypes)
	})

	t.Run("request validation", func(t *testing.T) {
		t.Parallel()

		bodies := map[string]string{
			"count too high":   `{"subject":"数学","grade":"三年级","exercise_count":51,"difficulty_level":"same","question_types":["calculation"]}`,
			"count zero":       `{"subject":"数学","grade":"三年级","exercise_count":0,"difficulty_level":"same","question_types":["calculation"]}`,
			"bad difficulty":   `{"subject":"数学","grade":"三年级","exercise_count":5,"difficulty_level":"extreme","question_types":["calculation"]}`,
			"no question type": `{"subject":"数学","grade":"三年级","exercise_count":5,"difficulty_level":"same","question_types":[]}`,
			"missing subject":  `{"grade":"三年级","exercise_count":5,"difficulty_level":"same","question_types":["calculation"]}`,
			"malformed json":   `{"subject":`,
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				ta := newTestAPI(t, uuid.New())
				called := false
				ta.generations.SubmitFn = func(context.Context, uuid.UUID, domain.GenerationParams) (*domain.GenerationJob, error) {
					called = true
					return nil, nil
				}

				rec := ta.do(http.MethodPost, "/generate", body)

				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
				assert.False(t, called, "service must not be called for invalid requests")
				resp := decodeBody[map[string]string](t, rec.Body.Bytes())
				assert.NotEmpty(t, resp["detail"])
			})
		}
	})

	t.Run("catalog rejection from service", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, uuid.New())
		ta.generations.SubmitFn = func(context.Context, uuid.UUID, domain.GenerationParams) (*domain.GenerationJob, error) {
			return nil, domain.NewValidationError("subject", "is not supported", nil)
		}

		rec := ta.do(http.MethodPost, "/generate", validGenerateBody)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "subject is not supported", decodeBody[map[string]string](t, rec.Body.Bytes())["detail"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, uuid.Nil)

		rec := ta.do(http.MethodPost, "/generate", validGenerateBody)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetGeneration(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	job := testutils.MustCreateGenerationJob(t, userID, testNow)

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.GetFn = func(_ context.Context, ownerID, id uuid.UUID) (*domain.GenerationJob, error) {
			assert.Equal(t, userID, ownerID)
			assert.Equal(t, job.ID, id)
			return job, nil
		}

		rec := ta.do(http.MethodGet, "/generation/"+job.ID.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[GenerationResponse](t, rec.Body.Bytes())
		assert.Equal(t, job.ID, resp.ID)
		assert.Equal(t, "三年级数学练习", resp.Title)
		assert.Equal(t, domain.JobStatusPending, resp.Status)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.GetFn = func(context.Context, uuid.UUID, uuid.UUID) (*domain.GenerationJob, error) {
			return nil, service.ErrGenerationNotFound
		}

		rec := ta.do(http.MethodGet, "/generation/"+uuid.NewString(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Generation not found", decodeBody[map[string]string](t, rec.Body.Bytes())["detail"])
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)

		rec := ta.do(http.MethodGet, "/generation/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetExercises(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	genID := uuid.New()

	t.Run("completed", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.ExercisesFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.Exercise, error) {
			drafts := []domain.ExerciseDraft{
				{QuestionType: "calculation", QuestionText: "3 + 4 = ?", CorrectAnswer: "7", Difficulty: "same", QualityScore: 0.9},
				{QuestionType: "calculation", QuestionText: "9 - 5 = ?", CorrectAnswer: "4", Difficulty: "same", QualityScore: 0.9},
			}
			return domain.NewExercises(genID, drafts, testNow), nil
		}

		rec := ta.do(http.MethodGet, "/generation/"+genID.String()+"/exercises", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[ExercisesResponse](t, rec.Body.Bytes())
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, 1, resp.Items[0].Number)
		assert.Equal(t, "7", resp.Items[0].CorrectAnswer)
		assert.Equal(t, 2, resp.Items[1].Number)
	})

	t.Run("not ready", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.ExercisesFn = func(context.Context, uuid.UUID, uuid.UUID) ([]*domain.Exercise, error) {
			return nil, service.ErrGenerationNotReady
		}

		rec := ta.do(http.MethodGet, "/generation/"+genID.String()+"/exercises", "")

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Generation is not ready", decodeBody[map[string]string](t, rec.Body.Bytes())["detail"])
	})
}

func TestListGenerations(t *testing.T) {
	t.Parallel()

	userID := uuid.New()

	t.Run("filters are parsed", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		var got store.GenerationFilter
		ta.generations.ListFn = func(_ context.Context, _ uuid.UUID, filter store.GenerationFilter) (*store.GenerationPage, error) {
			got = filter
			job := testutils.MustCreateGenerationJob(t, userID, testNow)
			return &store.GenerationPage{Jobs: []*domain.GenerationJob{job}, Total: 3, HasMore: true}, nil
		}

		rec := ta.do(http.MethodGet,
			"/generations?subject=%E6%95%B0%E5%AD%A6&status=completed&is_favorite=true&limit=1&offset=1&date_from=2025-03-01&date_to=2025-03-09",
			"")

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "数学", got.Subject)
		assert.Equal(t, domain.JobStatusCompleted, got.Status)
		require.NotNil(t, got.IsFavorite)
		assert.True(t, *got.IsFavorite)
		assert.Equal(t, 1, got.Limit)
		assert.Equal(t, 1, got.Offset)
		require.NotNil(t, got.CreatedFrom)
		require.NotNil(t, got.CreatedTo)
		assert.Equal(t, "2025-03-01", got.CreatedFrom.Format("2006-01-02"))
		assert.Equal(t, "2025-03-10", got.CreatedTo.Format("2006-01-02"), "date_to includes the named day")
		assert.True(t, got.CreatedFrom.Equal(time.Date(2025, 2, 28, 16, 0, 0, 0, time.UTC)),
			"bare dates are midnight in the configured zone, got %s", got.CreatedFrom)
		assert.True(t, got.CreatedTo.Equal(time.Date(2025, 3, 9, 16, 0, 0, 0, time.UTC)))

		resp := decodeBody[GenerationListResponse](t, rec.Body.Bytes())
		assert.Len(t, resp.Items, 1)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, 1, resp.Limit)
		assert.Equal(t, 1, resp.Offset)
		assert.True(t, resp.HasMore)
	})

	t.Run("default limit", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.ListFn = func(context.Context, uuid.UUID, store.GenerationFilter) (*store.GenerationPage, error) {
			return &store.GenerationPage{}, nil
		}

		rec := ta.do(http.MethodGet, "/generations", "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[GenerationListResponse](t, rec.Body.Bytes())
		assert.Equal(t, store.DefaultPageLimit, resp.Limit)
		assert.NotNil(t, resp.Items)
		assert.Empty(t, resp.Items)
	})

	for name, query := range map[string]string{
		"non-numeric limit": "limit=ten",
		"zero limit":        "limit=0",
		"bad favorite":      "is_favorite=maybe",
		"bad date":          "date_from=yesterday",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ta := newTestAPI(t, userID)

			rec := ta.do(http.MethodGet, "/generations?"+query, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSetFavorite(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	job := testutils.MustCreateGenerationJob(t, userID, testNow)

	t.Run("updated", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.generations.SetFavoriteFn = func(_ context.Context, _, _ uuid.UUID, favorite bool) (*domain.GenerationJob, error) {
			updated := job.Clone()
			updated.IsFavorite = favorite
			return updated, nil
		}

		rec := ta.do(http.MethodPut, "/generation/"+job.ID.String()+"/favorite", `{"is_favorite": true}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[GenerationResponse](t, rec.Body.Bytes()).IsFavorite)
	})

	t.Run("flag required", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)

		rec := ta.do(http.MethodPut, "/generation/"+job.ID.String()+"/favorite", `{}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestDeleteGeneration(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	genID := uuid.New()

	ta := newTestAPI(t, userID)
	deleted := false
	ta.generations.DeleteFn = func(_ context.Context, _ uuid.UUID, id uuid.UUID) error {
		assert.Equal(t, genID, id)
		deleted = true
		return nil
	}

	rec := ta.do(http.MethodDelete, "/generation/"+genID.String(), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, deleted)
	assert.Equal(t, "Generation deleted", decodeBody[DetailResponse](t, rec.Body.Bytes()).Detail)

	ta.generations.DeleteFn = func(context.Context, uuid.UUID, uuid.UUID) error {
		return service.ErrGenerationNotFound
	}
	rec = ta.do(http.MethodDelete, "/generation/"+genID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	genID := uuid.New()

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		var download *domain.Download
		ta.exports.SubmitFn = func(_ context.Context, ownerID, generationID uuid.UUID, opts domain.ExportOptions) (*domain.Download, error) {
			assert.Equal(t, genID, generationID)
			assert.Equal(t, domain.ExportFormatText, opts.Format)
			assert.True(t, opts.IncludeAnswers)
			var err error
			download, err = domain.NewDownload(ownerID, generationID, opts, testNow, domain.DefaultDownloadTTL)
			require.NoError(t, err)
			return download, nil
		}

		rec := ta.do(http.MethodPost, "/generation/"+genID.String()+"/export",
			`{"format":"text","include_answers":true}`)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decodeBody[DownloadResponse](t, rec.Body.Bytes())
		assert.Equal(t, download.ID, resp.ID)
		assert.Equal(t, domain.JobStatusPending, resp.Status)
		assert.Equal(t, "https://exercises.example.com/download/"+download.ID.String(), resp.DownloadURL)
		assert.True(t, testNow.Add(domain.DefaultDownloadTTL).Equal(resp.ExpiresAt))
		assert.False(t, resp.IsExpired)
	})

	t.Run("unsupported format", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)

		rec := ta.do(http.MethodPost, "/generation/"+genID.String()+"/export", `{"format":"epub"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("generation not completed", func(t *testing.T) {
		t.Parallel()
		ta := newTestAPI(t, userID)
		ta.exports.SubmitFn = func(context.Context, uuid.UUID, uuid.UUID, domain.ExportOptions) (*domain.Download, error) {
			return nil, service.ErrGenerationNotReady
		}

		rec := ta.do(http.MethodPost, "/generation/"+genID.String()+"/export", `{"format":"pdf"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
