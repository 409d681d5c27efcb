package localstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/thejonthinator/frysen/pkg/config"
	"github.com/thejonthinator/frysen/pkg/db"
	"github.com/thejonthinator/frysen/pkg/logger"
)

// Open builds the store selected by cfg. The returned close func releases
// whatever the store holds open.
func Open(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (Store, func() error, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.StorageDriverSQLite:
		client, err := db.NewSQLite(ctx, cfg.Path, logg)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewSQLStore(ctx, client)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	case config.StorageDriverFile:
		store, err := NewFileStore(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() error { return nil }, nil
	case config.StorageDriverMemory:
		return NewMemoryStore(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
