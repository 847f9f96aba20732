package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/infrastructure/buffer"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/repository/memory"
	"github.com/fastygo/lifequest/usecase"
)

type switchHealth struct{ online atomic.Bool }

func (h *switchHealth) IsOnline() bool { return h.online.Load() }

// flakyTasks fails every write while down is set.
type flakyTasks struct {
	repository.TaskRepository
	down *atomic.Bool
}

func (f flakyTasks) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if f.down.Load() {
		return nil, errors.New("connection refused")
	}
	return f.TaskRepository.Create(ctx, task)
}

func newProcessor(t *testing.T, health ConnectionHealth, tasks repository.TaskRepository, mem *memory.Store) (*BufferProcessor, *buffer.Store) {
	t.Helper()
	store, err := buffer.Open(filepath.Join(t.TempDir(), "buffer.db"), buffer.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewBufferProcessor(store, health, mem.Users(), tasks, nil, ProcessorConfig{MaxRetries: 2}), store
}

func TestBufferedTaskReplaysWhenBackOnline(t *testing.T) {
	mem := memory.New(nil)
	health := &switchHealth{}
	down := &atomic.Bool{}
	down.Store(true)
	processor, store := newProcessor(t, health, flakyTasks{mem.Tasks(), down}, mem)
	bridge := NewBufferBridge(processor)

	task := &domain.Task{ID: "t1", UserID: "alice", Category: domain.CategoryHome, Title: "offline", Status: domain.StatusPending}
	require.NoError(t, bridge.BufferTask(context.Background(), usecase.OperationCreate, task))
	assert.Equal(t, 1, processor.Size())

	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 1, processor.Size(), "offline drains are skipped")

	health.online.Store(true)
	down.Store(false)
	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 0, processor.Size())

	stored, err := mem.Tasks().GetByID(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "offline", stored.Title)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestDrainRetriesThenDrops(t *testing.T) {
	mem := memory.New(nil)
	health := &switchHealth{}
	down := &atomic.Bool{}
	down.Store(true)
	processor, _ := newProcessor(t, health, flakyTasks{mem.Tasks(), down}, mem)

	require.NoError(t, NewBufferBridge(processor).BufferTask(context.Background(), usecase.OperationCreate,
		&domain.Task{ID: "t1", UserID: "alice", Category: domain.CategoryHome, Title: "x", Status: domain.StatusPending}))

	health.online.Store(true)
	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 1, processor.Size(), "first failure is requeued")
	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 0, processor.Size(), "second failure hits max retries")
}

func TestReplayIsIdempotent(t *testing.T) {
	mem := memory.New(nil)
	health := &switchHealth{}
	health.online.Store(true)
	processor, store := newProcessor(t, health, mem.Tasks(), mem)
	mem.SeedTask(domain.Task{ID: "t1", UserID: "alice", Category: domain.CategoryHome, Title: "already there", Status: domain.StatusPending, CreatedAt: time.Now()})

	bridge := NewBufferBridge(processor)
	task := &domain.Task{ID: "t1", UserID: "alice", Category: domain.CategoryHome, Title: "dup", Status: domain.StatusPending}
	err := bridge.BufferTask(context.Background(), usecase.OperationCreate, task)
	require.NoError(t, err, "an existing id means the create already landed")

	require.NoError(t, store.Enqueue(buffer.Item{Entity: buffer.EntityTask, Operation: usecase.OperationDelete, Data: []byte(`{"id":"missing"}`)}))
	require.NoError(t, store.Enqueue(buffer.Item{Entity: "widget", Operation: usecase.OperationCreate, Data: []byte(`{}`)}))
	require.NoError(t, processor.Drain(context.Background()))
	assert.Equal(t, 0, processor.Size(), "gone targets and unknown entities are not retried")
}

func TestBufferedProfileReplays(t *testing.T) {
	mem := memory.New(nil)
	health := &switchHealth{}
	processor, _ := newProcessor(t, health, mem.Tasks(), mem)

	require.NoError(t, NewBufferBridge(processor).BufferProfile(context.Background(), usecase.OperationUpdate,
		&domain.User{ID: "alice", Name: "Alice"}))
	assert.Equal(t, 1, processor.Size())

	health.online.Store(true)
	require.NoError(t, processor.Drain(context.Background()))

	user, err := mem.Users().GetByID(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
}
