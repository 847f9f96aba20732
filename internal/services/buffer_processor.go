package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/internal/infrastructure/buffer"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/usecase"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	// Retention drops items that could not be replayed for this long. Zero keeps them.
	Retention time.Duration
}

// BufferProcessor replays parked task and profile writes once the primary store is back.
type BufferProcessor struct {
	store    *buffer.Store
	monitor  ConnectionHealth
	userRepo repository.UserRepository
	taskRepo repository.TaskRepository
	logger   *zap.Logger
	cron     *cron.Cron
	cfg      ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:    store,
		monitor:  monitor,
		userRepo: userRepo,
		taskRepo: taskRepo,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", max(1, int(cfg.Interval.Seconds())))
	_, _ = bp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := bp.Drain(ctx); err != nil {
			bp.logger.Error("buffer drain failed", zap.Error(err))
		}
	})
	if cfg.Retention > 0 {
		_, _ = bp.cron.AddFunc("@hourly", bp.expire)
	}

	return bp
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for a running drain to finish or for ctx to expire.
func (bp *BufferProcessor) Stop(ctx context.Context) error {
	if bp == nil || bp.cron == nil {
		return nil
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	bp.logger.Info("buffer processor stopped")
	return nil
}

// Drain replays one batch of buffered items.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.Peek(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := bp.logger.With(
			zap.String("item_id", item.ID),
			zap.String("entity", item.Entity),
			zap.String("operation", item.Operation))

		err := bp.processItem(ctx, item)
		switch {
		case err == nil:
			if err := bp.store.Remove(item); err != nil {
				log.Warn("failed to purge processed buffer item", zap.Error(err))
			}
		case isPermanent(err):
			log.Warn("dropping buffer item rejected by store", zap.Error(err))
			_ = bp.store.Remove(item)
		case item.Retries+1 >= bp.cfg.MaxRetries:
			log.Warn("dropping buffer item (max retries reached)", zap.Error(err))
			_ = bp.store.Remove(item)
		default:
			log.Error("failed to process buffer item", zap.Error(err))
			if err := bp.store.Requeue(item); err != nil {
				log.Error("failed to requeue buffer item", zap.Error(err))
			}
		}
	}
	return nil
}

// BufferOperation attempts to run the operation immediately and falls back to persisting it.
func (bp *BufferProcessor) BufferOperation(ctx context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errors.New("buffer processor not configured")
	}

	if bp.monitor == nil || bp.monitor.IsOnline() {
		err := bp.processItem(ctx, item)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return err
		}
		bp.logger.Warn("immediate processing failed, buffering", zap.Error(err))
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) expire() {
	removed, err := bp.store.Cleanup(time.Now().Add(-bp.cfg.Retention))
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		bp.logger.Warn("expired buffered writes", zap.Int("count", removed))
	}
}

func (bp *BufferProcessor) processItem(ctx context.Context, item buffer.Item) error {
	switch item.Entity {
	case buffer.EntityProfile:
		var user domain.User
		if err := json.Unmarshal(item.Data, &user); err != nil {
			return domain.WrapError(domain.ErrCodeInvalid, "decode buffered profile", err)
		}
		return bp.userRepo.Upsert(ctx, &user)

	case buffer.EntityTask:
		var task domain.Task
		if err := json.Unmarshal(item.Data, &task); err != nil {
			return domain.WrapError(domain.ErrCodeInvalid, "decode buffered task", err)
		}
		switch item.Operation {
		case usecase.OperationCreate:
			_, err := bp.taskRepo.Create(ctx, &task)
			if domain.IsDomainError(err, domain.ErrCodeConflict) {
				// replayed before; the id was fixed when the write was parked
				return nil
			}
			return err
		case usecase.OperationUpdate:
			return bp.taskRepo.Update(ctx, &task)
		case usecase.OperationDelete:
			err := bp.taskRepo.Delete(ctx, task.ID)
			if errors.Is(err, domain.ErrTaskNotFound) {
				return nil
			}
			return err
		default:
			return domain.NewError(domain.ErrCodeInvalid, "unsupported operation "+item.Operation)
		}
	default:
		return domain.NewError(domain.ErrCodeInvalid, "unsupported entity "+item.Entity)
	}
}

// isPermanent reports whether replaying would fail the same way again.
func isPermanent(err error) bool {
	var dErr *domain.Error
	return errors.As(err, &dErr)
}
