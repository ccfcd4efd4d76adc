package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/config"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/mocks"
	"github.com/phrazzld/exercise-api/internal/platform/memstore"
	"github.com/phrazzld/exercise-api/internal/store"
	"github.com/phrazzld/exercise-api/internal/testutils"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

const testTTL = 24 * time.Hour

var testCatalog = config.CatalogConfig{
	Subjects:      []string{"数学", "语文", "英语"},
	Grades:        []string{"一年级", "二年级", "三年级"},
	QuestionTypes: []string{"calculation", "choice", "fill_blank"},
}

type fixture struct {
	ctx         context.Context
	clock       *testutils.FakeClock
	generations *memstore.GenerationStore
	downloads   *memstore.DownloadStore
	blobs       *mocks.MockBlobStore
	emitter     *mocks.MockEventEmitter
	gen         GenerationService
	exp         ExportService
	owner       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := testutils.DiscardLogger()
	f := &fixture{
		ctx:         context.Background(),
		clock:       testutils.NewFakeClock(testStart),
		generations: memstore.NewGenerationStore(log),
		downloads:   memstore.NewDownloadStore(log),
		blobs:       mocks.NewMockBlobStore(),
		emitter:     &mocks.MockEventEmitter{},
		owner:       uuid.New(),
	}

	var err error
	f.gen, err = NewGenerationService(f.generations, NewCatalog(testCatalog), f.emitter, f.clock, log)
	require.NoError(t, err)
	f.exp, err = NewExportService(f.generations, f.downloads, f.blobs, f.emitter, f.clock, testTTL, log)
	require.NoError(t, err)
	return f
}

func validParams() domain.GenerationParams {
	return domain.GenerationParams{
		Subject:         "数学",
		Grade:           "三年级",
		RequestedCount:  5,
		DifficultyLevel: domain.DifficultySame,
		QuestionTypes:   []string{"calculation"},
	}
}

func (f *fixture) completedGeneration(t *testing.T, owner uuid.UUID) *domain.GenerationJob {
	t.Helper()
	job := testutils.MustCreateGenerationJob(t, owner, f.clock.Now())
	return testutils.MustInsertCompletedGeneration(f.ctx, t, f.generations, job, f.clock.Now())
}

// completeDownload drives a pending download to completed with content stored in the blob store.
func (f *fixture) completeDownload(t *testing.T, d *domain.Download, content string) {
	t.Helper()
	key := "downloads/" + d.OwnerID.String() + "/" + d.ID.String() + ".txt"
	_, err := f.blobs.Put(f.ctx, key, strings.NewReader(content), "text/plain")
	require.NoError(t, err)

	claimed, err := f.downloads.Claim(f.ctx, d.ID, f.clock.Now())
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, f.downloads.Complete(f.ctx, d.ID, domain.FileInfo{
		FileName:    "exercises.txt",
		SizeBytes:   int64(len(content)),
		BlobRef:     key,
		ContentType: "text/plain; charset=utf-8",
	}, f.clock.Now()))
}

// failingGenerationStore fails Create and delegates nothing else.
type failingGenerationStore struct {
	store.GenerationStore
	mock.Mock
}

func (m *failingGenerationStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
