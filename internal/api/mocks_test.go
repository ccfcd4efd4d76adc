package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/api/shared"
	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/service"
	"github.com/phrazzld/exercise-api/internal/service/cleanup"
	"github.com/phrazzld/exercise-api/internal/service/stats"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/testutils"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// testLocation matches the UTC+8 default of stats.time_zone without needing tzdata.
var testLocation = time.FixedZone("UTC+8", 8*60*60)

type mockGenerationService struct {
	SubmitFn      func(ctx context.Context, ownerID uuid.UUID, params domain.GenerationParams) (*domain.GenerationJob, error)
	GetFn         func(ctx context.Context, ownerID, id uuid.UUID) (*domain.GenerationJob, error)
	ExercisesFn   func(ctx context.Context, ownerID, id uuid.UUID) ([]*domain.Exercise, error)
	ListFn        func(ctx context.Context, ownerID uuid.UUID, filter store.GenerationFilter) (*store.GenerationPage, error)
	SetFavoriteFn func(ctx context.Context, ownerID, id uuid.UUID, favorite bool) (*domain.GenerationJob, error)
	DeleteFn      func(ctx context.Context, ownerID, id uuid.UUID) error
}

var _ service.GenerationService = (*mockGenerationService)(nil)

func (m *mockGenerationService) SubmitGeneration(
	ctx context.Context,
	ownerID uuid.UUID,
	params domain.GenerationParams,
) (*domain.GenerationJob, error) {
	return m.SubmitFn(ctx, ownerID, params)
}

func (m *mockGenerationService) GetGeneration(ctx context.Context, ownerID, id uuid.UUID) (*domain.GenerationJob, error) {
	return m.GetFn(ctx, ownerID, id)
}

func (m *mockGenerationService) GetExercises(ctx context.Context, ownerID, id uuid.UUID) ([]*domain.Exercise, error) {
	return m.ExercisesFn(ctx, ownerID, id)
}

func (m *mockGenerationService) ListGenerations(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.GenerationFilter,
) (*store.GenerationPage, error) {
	return m.ListFn(ctx, ownerID, filter)
}

func (m *mockGenerationService) SetFavorite(
	ctx context.Context,
	ownerID, id uuid.UUID,
	favorite bool,
) (*domain.GenerationJob, error) {
	return m.SetFavoriteFn(ctx, ownerID, id, favorite)
}

func (m *mockGenerationService) DeleteGeneration(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.DeleteFn(ctx, ownerID, id)
}

type mockExportService struct {
	SubmitFn func(ctx context.Context, ownerID, generationID uuid.UUID, opts domain.ExportOptions) (*domain.Download, error)
	GetFn    func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, error)
	OpenFn   func(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, io.ReadCloser, error)
}

var _ service.ExportService = (*mockExportService)(nil)

func (m *mockExportService) SubmitExport(
	ctx context.Context,
	ownerID, generationID uuid.UUID,
	opts domain.ExportOptions,
) (*domain.Download, error) {
	return m.SubmitFn(ctx, ownerID, generationID, opts)
}

func (m *mockExportService) GetDownload(ctx context.Context, ownerID, id uuid.UUID) (*domain.Download, error) {
	return m.GetFn(ctx, ownerID, id)
}

func (m *mockExportService) OpenDownload(
	ctx context.Context,
	ownerID, id uuid.UUID,
) (*domain.Download, io.ReadCloser, error) {
	return m.OpenFn(ctx, ownerID, id)
}

type mockStats struct {
	SummaryFn   func(ctx context.Context, ownerID uuid.UUID) (*stats.Summary, error)
	DailyFn     func(ctx context.Context, ownerID uuid.UUID, days int) ([]stats.DailyActivity, error)
	RecommendFn func(ctx context.Context, ownerID uuid.UUID) (*stats.Recommendation, error)
}

func (m *mockStats) Summary(ctx context.Context, ownerID uuid.UUID) (*stats.Summary, error) {
	return m.SummaryFn(ctx, ownerID)
}

func (m *mockStats) Daily(ctx context.Context, ownerID uuid.UUID, days int) ([]stats.DailyActivity, error) {
	return m.DailyFn(ctx, ownerID, days)
}

func (m *mockStats) Recommend(ctx context.Context, ownerID uuid.UUID) (*stats.Recommendation, error) {
	return m.RecommendFn(ctx, ownerID)
}

type mockSweeper struct {
	SweepFn func(ctx context.Context) (cleanup.Result, error)
	calls   int
}

func (m *mockSweeper) Sweep(ctx context.Context) (cleanup.Result, error) {
	m.calls++
	return m.SweepFn(ctx)
}

// withUser stands in for the auth middleware.
func withUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != uuid.Nil {
				r = r.WithContext(shared.WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type testAPI struct {
	generations *mockGenerationService
	exports     *mockExportService
	stats       *mockStats
	sweeper     *mockSweeper
	clock       *testutils.FakeClock
	router      chi.Router
}

func newTestAPI(t *testing.T, userID uuid.UUID) *testAPI {
	t.Helper()

	ta := &testAPI{
		generations: &mockGenerationService{},
		exports:     &mockExportService{},
		stats:       &mockStats{},
		sweeper:     &mockSweeper{},
		clock:       testutils.NewFakeClock(testNow),
	}
	log := testutils.DiscardLogger()
	urls := NewURLBuilder("https://exercises.example.com/")
	genHandler := NewGenerationHandler(ta.generations, ta.exports, urls, ta.clock, testLocation, log)
	dlHandler := NewDownloadHandler(ta.exports, urls, ta.clock, log)
	statsHandler := NewStatsHandler(ta.stats, log)
	adminHandler := NewAdminHandler(ta.sweeper, log)
	configHandler := NewConfigHandler(service.NewCatalog(testCatalogConfig()))

	r := chi.NewRouter()
	r.Use(withUser(userID))
	r.Post("/generate", genHandler.Generate)
	r.Get("/generations", genHandler.ListGenerations)
	r.Get("/generation/{id}", genHandler.GetGeneration)
	r.Get("/generation/{id}/exercises", genHandler.GetExercises)
	r.Put("/generation/{id}/favorite", genHandler.SetFavorite)
	r.Delete("/generation/{id}", genHandler.DeleteGeneration)
	r.Post("/generation/{id}/export", genHandler.Export)
	r.Get("/download/{id}", dlHandler.Download)
	r.Get("/download/{id}/info", dlHandler.Info)
	r.Get("/statistics", statsHandler.Summary)
	r.Get("/statistics/daily", statsHandler.Daily)
	r.Get("/recommendation", statsHandler.Recommend)
	r.Get("/config/subjects", configHandler.Subjects)
	r.Get("/config/grades", configHandler.Grades)
	r.Get("/config/question-types", configHandler.QuestionTypes)
	r.Get("/config/difficulty-levels", configHandler.DifficultyLevels)
	r.Get("/config/export-formats", configHandler.ExportFormats)
	r.Delete("/admin/cleanup", adminHandler.Cleanup)
	ta.router = r
	return ta
}

func (ta *testAPI) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ta.router.ServeHTTP(rec, req)
	return rec
}

func testCatalogConfig() config.CatalogConfig {
	return config.CatalogConfig{
		Subjects:      []string{"数学", "语文", "英语"},
		Grades:        []string{"一年级", "二年级", "三年级"},
		QuestionTypes: []string{"calculation", "choice", "fill_blank"},
	}
}
