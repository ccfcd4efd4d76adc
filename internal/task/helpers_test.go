package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/exercise-api/internal/domain"
	"github.com/phrazzld/exercise-api/internal/export"
	"github.com/phrazzld/exercise-api/internal/generation"
	"github.com/phrazzld/exercise-api/internal/mocks"
	"github.com/phrazzld/exercise-api/internal/platform/memstore"
	"github.com/phrazzld/exercise-api/internal/testutils"
)

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// mockTask implements the Task interface for testing
type mockTask struct {
	id       uuid.UUID
	taskType string
	execFn   func(ctx context.Context) error
	runs     atomic.Int32
}

func newMockTask() *mockTask {
	return &mockTask{id: uuid.New(), taskType: "mock"}
}

func (m *mockTask) ID() uuid.UUID   { return m.id }
func (m *mockTask) Type() string    { return m.taskType }
func (m *mockTask) Runs() int       { return int(m.runs.Load()) }
func (m *mockTask) Execute(ctx context.Context) error {
	m.runs.Add(1)
	if m.execFn != nil {
		return m.execFn(ctx)
	}
	return nil
}

// fixture wires the in-memory stores, a fake clock and mock capabilities.
type fixture struct {
	generations *memstore.GenerationStore
	downloads   *memstore.DownloadStore
	generator   *mocks.MockGenerator
	renderer    *mocks.MockRenderer
	blobs       *mocks.MockBlobStore
	clock       *testutils.FakeClock
	factory     *TaskFactory
	owner       uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testutils.DiscardLogger()
	f := &fixture{
		generations: memstore.NewGenerationStore(logger),
		downloads:   memstore.NewDownloadStore(logger),
		generator:   mocks.NewMockGeneratorWithDrafts(mocks.SampleDrafts(10)...),
		renderer:    &mocks.MockRenderer{FormatValue: domain.ExportFormatText},
		blobs:       mocks.NewMockBlobStore(),
		clock:       testutils.NewFakeClock(testStart),
		owner:       uuid.New(),
	}
	f.factory = NewTaskFactory(
		f.generations, f.downloads, f.generator,
		export.NewRegistry(f.renderer), f.blobs, f.clock,
		TaskFactoryConfig{GenerationTimeout: time.Second, RenderTimeout: time.Second},
		logger,
	)
	return f
}

// pendingGeneration stores a pending job requesting count exercises.
func (f *fixture) pendingGeneration(t *testing.T, count int) *domain.GenerationJob {
	t.Helper()
	job := testutils.MustCreateGenerationJob(t, f.owner, f.clock.Now(), testutils.WithCount(count))
	if err := f.generations.Create(context.Background(), job); err != nil {
		t.Fatalf("create generation: %v", err)
	}
	return job
}

// pendingDownload stores a pending download of generationID.
func (f *fixture) pendingDownload(t *testing.T, generationID uuid.UUID, format domain.ExportFormat) *domain.Download {
	t.Helper()
	d, err := domain.NewDownload(f.owner, generationID, domain.ExportOptions{Format: format, IncludeAnswers: true}, f.clock.Now(), time.Hour)
	if err != nil {
		t.Fatalf("new download: %v", err)
	}
	if err := f.downloads.Create(context.Background(), d); err != nil {
		t.Fatalf("create download: %v", err)
	}
	return d
}

func (f *fixture) generationTask(t *testing.T, id uuid.UUID) Task {
	t.Helper()
	task, err := f.factory.CreateTask(TaskTypeGeneration, id)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func (f *fixture) exportTask(t *testing.T, id uuid.UUID) Task {
	t.Helper()
	task, err := f.factory.CreateTask(TaskTypeExport, id)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

// emitAll is a generator body that emits n sample drafts.
func emitAll(n int) func(ctx context.Context, req generation.Request, emit generation.EmitFunc) error {
	return func(ctx context.Context, req generation.Request, emit generation.EmitFunc) error {
		for _, d := range mocks.SampleDrafts(n) {
			if err := emit(d); err != nil {
				return err
			}
		}
		return nil
	}
}
