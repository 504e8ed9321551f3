package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/true1853/sunrise-bot/internal/geo"
	logx "github.com/true1853/sunrise-bot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// settingsID is the fixed key of the singleton settings row.
const settingsID = 1

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) LoadLocation(ctx context.Context) (geo.Location, bool, error) {
	if s == nil || s.db == nil {
		return geo.Location{}, false, ErrDisabled
	}
	var loc geo.Location
	err := s.db.QueryRowContext(ctx,
		`SELECT lat, lon, tz FROM settings WHERE id = ?`, settingsID,
	).Scan(&loc.Lat, &loc.Lon, &loc.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return geo.Location{}, false, nil
	}
	if err != nil {
		return geo.Location{}, false, err
	}
	return loc, true, nil
}

func (s *sqliteStore) SaveLocation(ctx context.Context, loc geo.Location) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(id, lat, lon, tz) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET lat=excluded.lat, lon=excluded.lon, tz=excluded.tz`,
		settingsID, loc.Lat, loc.Lon, loc.Timezone,
	)
	return err
}
