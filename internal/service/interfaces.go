package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/neiam/apollos-kiosk/internal/config"
	"github.com/neiam/apollos-kiosk/internal/domain"
)

// ConfigStore persists the configuration record. Save is called
// synchronously after every state mutation; there is no batching.
type ConfigStore interface {
	Save(cfg *config.Config) error
}

// SnapshotStore archives last-good feed entries so a restarted kiosk can
// repopulate its cards before the broker delivers fresh data.
type SnapshotStore interface {
	Upsert(ctx context.Context, key string, entry domain.Entry) error
	All(ctx context.Context) (map[string]domain.Entry, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
