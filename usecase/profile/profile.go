package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/pkg/logger"
	"github.com/fastygo/lifequest/repository"
	"github.com/fastygo/lifequest/usecase"
)

const (
	defaultRole   = "member"
	defaultStatus = "active"
)

type UseCase struct {
	users    repository.UserRepository
	progress repository.ProgressRepository
	buffer   usecase.OperationBuffer
	logger   *zap.Logger
}

func New(users repository.UserRepository, progress repository.ProgressRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		users:    users,
		progress: progress,
		buffer:   buffer,
		logger:   logger,
	}
}

// GetProfile returns the user with overall progress and one entry per life-category,
// in domain.Categories order. Categories without progress report the zero state.
func (uc *UseCase) GetProfile(ctx context.Context, userID string) (*domain.ProfileView, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	var (
		user     *domain.User
		progress *domain.UserProgress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = uc.users.GetByID(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = uc.progress.GetByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.StoreError("get profile", err)
	}

	categories := make([]domain.CategoryProgress, 0, len(domain.Categories))
	for _, category := range domain.Categories {
		entry, ok := progress.Categories[category]
		if !ok {
			entry = domain.NewCategoryProgress(category)
		}
		categories = append(categories, entry)
	}

	return &domain.ProfileView{
		User:       user,
		Overall:    progress.Overall(),
		Categories: categories,
	}, nil
}

// UpdateProfile stores the editable profile fields of userID.
func (uc *UseCase) UpdateProfile(ctx context.Context, userID string, user *domain.User) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if user == nil {
		return nil, domain.ErrInvalidPayload
	}
	user.ID = userID
	user.Name = strings.TrimSpace(user.Name)
	user.Email = strings.TrimSpace(user.Email)
	if user.Role == "" {
		user.Role = defaultRole
	}
	if user.Status == "" {
		user.Status = defaultStatus
	}

	if err := uc.users.Upsert(ctx, user); err != nil {
		var dErr *domain.Error
		if uc.buffer != nil && !errors.As(err, &dErr) {
			log := logger.WithRequestID(ctx, uc.logger).With(zap.String("user_id", userID))
			if bufErr := uc.buffer.BufferProfile(ctx, usecase.OperationUpdate, user); bufErr != nil {
				log.Error("failed to buffer profile update", zap.Error(bufErr))
				return nil, domain.StoreError("update profile", err)
			}
			log.Warn("profile update buffered due to repository error", zap.Error(err))
			return user, nil
		}
		return nil, domain.StoreError("update profile", err)
	}
	return user, nil
}
