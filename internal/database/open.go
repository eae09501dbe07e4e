package database

import (
	"context"
	"fmt"

	"github.com/hpratapsigh/creator-dashboard/internal/config"
)

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return New(cfg.Path)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DSN)
	case config.DriverRedis:
		return DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 5)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
