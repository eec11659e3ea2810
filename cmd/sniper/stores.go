package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/config"
	"solana-launch-sniper/internal/storage"
	chstore "solana-launch-sniper/internal/storage/clickhouse"
	"solana-launch-sniper/internal/storage/memory"
	"solana-launch-sniper/internal/storage/migrations"
	pgstore "solana-launch-sniper/internal/storage/postgres"
	"solana-launch-sniper/internal/storage/sqlite"
)

// stores holds the storage implementations selected by configuration.
type stores struct {
	trades    storage.TradeStore
	positions storage.PositionStore
	journal   storage.LaunchJournal
	closers   []func()
}

// Close releases every open connection in reverse order.
func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores picks the trade/position backend (memory, PostgreSQL, then
// SQLite) and the journal backend (ClickHouse, else memory).
func openStores(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*stores, error) {
	st := &stores{}

	switch {
	case cfg.UseMemory:
		st.trades = memory.NewTradeStore()
		st.positions = memory.NewPositionStore()
		logger.Info().Str("backend", "memory").Msg("trade store ready")

	case cfg.PostgresDSN != "":
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		st.closers = append(st.closers, pool.Close)

		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			st.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st.trades = pgstore.NewTradeStore(pool)
		st.positions = pgstore.NewPositionStore(pool)
		logger.Info().Str("backend", "postgres").Msg("trade store ready")

	case cfg.SQLitePath != "":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		st.closers = append(st.closers, func() { _ = db.Close() })
		st.trades = sqlite.NewTradeStore(db)
		st.positions = sqlite.NewPositionStore(db)
		logger.Info().Str("backend", "sqlite").Str("path", cfg.SQLitePath).Msg("trade store ready")

	default:
		return nil, errors.New("no trade store configured (set --use-memory, --postgres-dsn or --sqlite-path)")
	}

	if cfg.ClickhouseDSN != "" && !cfg.UseMemory {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("clickhouse: %w", err)
		}
		st.closers = append(st.closers, func() { _ = conn.Close() })
		st.journal = chstore.NewLaunchJournal(conn)
		logger.Info().Str("backend", "clickhouse").Msg("launch journal ready")
	} else {
		st.journal = memory.NewLaunchJournal(memory.DefaultJournalCapacity)
	}

	return st, nil
}
