// Package database opens the Postgres pool backing the consent store.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"consents/internal/platform/config"
)

const pingTimeout = 5 * time.Second

type Pool struct {
	db *sql.DB
}

// New opens a pgx pool, pings it and exports its connection stats on reg.
// It returns nil, nil when no URL is configured.
func New(ctx context.Context, cfg config.DatabaseConfig, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Pool{db: db}
	if reg != nil {
		if err := p.registerMetrics(reg); err != nil {
			db.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, err
		}
	}
	return p, nil
}

func (p *Pool) registerMetrics(reg prometheus.Registerer) error {
	gauges := []struct {
		name, help string
		value      func(sql.DBStats) int
	}{
		{"consents_db_open_connections", "Established connections, in use and idle", func(s sql.DBStats) int { return s.OpenConnections }},
		{"consents_db_in_use_connections", "Connections currently serving a query", func(s sql.DBStats) int { return s.InUse }},
		{"consents_db_idle_connections", "Idle pooled connections", func(s sql.DBStats) int { return s.Idle }},
		{"consents_db_wait_count", "Total connections waited for", func(s sql.DBStats) int { return int(s.WaitCount) }},
	}
	for _, g := range gauges {
		collector := prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: g.name, Help: g.help}, func() float64 {
			return float64(g.value(p.db.Stats()))
		})
		if err := reg.Register(collector); err != nil {
			return fmt.Errorf("register %s: %w", g.name, err)
		}
	}
	return nil
}

func (p *Pool) DB() *sql.DB {
	return p.db
}

func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *Pool) Stats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	return p.db.Stats()
}

// Migrate applies every *.up.sql file of fsys in lexical order. The files are
// expected to be idempotent (CREATE ... IF NOT EXISTS).
func Migrate(ctx context.Context, db *sql.DB, fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return files, nil
}
