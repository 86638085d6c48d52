package ports

import (
	"context"

	"lunemusic/internal/domain"
)

type SessionStore interface {
	Get(ctx context.Context, chatID int64) (domain.SearchSession, bool, error)
	Set(ctx context.Context, session domain.SearchSession) error
	Delete(ctx context.Context, chatID int64) error
}
