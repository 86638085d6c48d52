package ports

import (
	"context"
	"time"

	"lunemusic/internal/domain"
)

type UserStore interface {
	Touch(ctx context.Context, profile domain.UserProfile, now time.Time) error
	Get(ctx context.Context, userID int64) (domain.User, error)
	ListReachable(ctx context.Context) ([]domain.User, error)
	ListAll(ctx context.Context) ([]domain.User, error)
	MarkBlocked(ctx context.Context, userID int64) error
	Stats(ctx context.Context, activeSince time.Time) (domain.UserStats, error)
}
