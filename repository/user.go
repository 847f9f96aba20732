package repository

import (
	"context"

	"github.com/fastygo/lifequest/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Upsert(ctx context.Context, user *domain.User) error
	// Profiles returns the public fields and overall progress of the given users.
	// Unknown ids are skipped.
	Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error)
}

type ProgressRepository interface {
	// GetByUser returns every category the user has progress in. Users without
	// progress get an empty map, not an error.
	GetByUser(ctx context.Context, userID string) (*domain.UserProgress, error)
}
