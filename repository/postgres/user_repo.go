package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/lifequest/domain"
	"github.com/fastygo/lifequest/repository"
)

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates a Postgres-backed user repository.
func NewUserRepository(pool *pgxpool.Pool) repository.UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
		SELECT id, name, email, avatar, role, status, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)

	var user domain.User
	var metadata []byte

	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Avatar, &user.Role, &user.Status, &metadata, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	meta, err := unmarshalMap(metadata)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", user.ID, err)
	}
	user.Metadata = meta

	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO users (id, name, email, avatar, role, status, metadata, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()), NOW())
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		email = EXCLUDED.email,
		avatar = EXCLUDED.avatar,
		role = EXCLUDED.role,
		status = EXCLUDED.status,
		metadata = EXCLUDED.metadata,
		updated_at = NOW()
	RETURNING created_at, updated_at;
	`

	metadata := marshalMap(user.Metadata)
	var createdAt, updatedAt time.Time

	if err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Avatar,
		user.Role,
		user.Status,
		metadata,
		nullTime(user.CreatedAt),
	).Scan(&createdAt, &updatedAt); err != nil {
		return err
	}

	user.CreatedAt = createdAt
	user.UpdatedAt = updatedAt
	return nil
}

func (r *userRepository) Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	profiles := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	const query = `
	SELECT u.id, u.name, u.email, u.avatar,
		COALESCE(SUM(p.xp), 0)::BIGINT,
		COALESCE(SUM(p.total_completed), 0)::BIGINT
	FROM users u
	LEFT JOIN category_progress p ON p.user_id = u.id
	WHERE u.id = ANY($1)
	GROUP BY u.id, u.name, u.email, u.avatar
	`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			profile   domain.Profile
			completed int64
		)
		if err := rows.Scan(&profile.UserID, &profile.Name, &profile.Email, &profile.Avatar, &profile.Progress.XP, &completed); err != nil {
			return nil, err
		}
		profile.Progress.LifetimeCompleted = int(completed)
		profile.Progress.Level = domain.LevelForXP(profile.Progress.XP)
		profiles[profile.UserID] = profile
	}
	return profiles, rows.Err()
}
