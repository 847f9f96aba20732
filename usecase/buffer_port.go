package usecase

import (
	"context"

	"github.com/fastygo/lifequest/domain"
)

const (
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
)

// OperationBuffer abstracts the buffer processor so use cases stay storage-agnostic.
type OperationBuffer interface {
	BufferProfile(ctx context.Context, operation string, user *domain.User) error
	BufferTask(ctx context.Context, operation string, task *domain.Task) error
}

// EventPublisher announces committed completions to other services.
type EventPublisher interface {
	PublishCompletion(ctx context.Context, event domain.CompletionEvent) error
}
