package storage

import (
	"context"
	"errors"
	"strings"

	"github.com/true1853/sunrise-bot/internal/geo"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
)

// Store is the minimal persistence API used by the app: one settings row
// holding the shared location, written with upsert semantics.
type Store interface {
	LoadLocation(ctx context.Context) (geo.Location, bool, error)
	SaveLocation(ctx context.Context, loc geo.Location) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
