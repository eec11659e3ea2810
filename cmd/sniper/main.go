// Command sniper watches the log stream for pool launches and buys each new
// token once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"solana-launch-sniper/internal/api"
	"solana-launch-sniper/internal/blockhash"
	"solana-launch-sniper/internal/config"
	"solana-launch-sniper/internal/coordinator"
	"solana-launch-sniper/internal/detect"
	"solana-launch-sniper/internal/dispatch"
	"solana-launch-sniper/internal/guard"
	"solana-launch-sniper/internal/notify"
	"solana-launch-sniper/internal/observability"
	chain "solana-launch-sniper/internal/solana"
	"solana-launch-sniper/internal/source"
	"solana-launch-sniper/internal/wallet"
)

const shutdownGrace = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for trades and positions")
	sqlitePath := flag.String("sqlite-path", "", "SQLite file for trades and positions when no PostgreSQL DSN is set")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the launch journal")
	httpAddr := flag.String("http-addr", "", "HTTP API address (empty keeps the config value)")
	mode := flag.String("mode", "", "Dispatch mode: fire_and_forget or confirm")
	workers := flag.Int("workers", 0, "Concurrent launches (<= 1 is sequential)")
	pretty := flag.Bool("pretty", false, "Human-readable console logs")
	dryRun := flag.Bool("dry-run", false, "Build routes but never dispatch")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Flags win over file and environment, but only when given.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "use-memory":
			cfg.Storage.UseMemory = *useMemory
		case "postgres-dsn":
			cfg.Storage.PostgresDSN = *postgresDSN
		case "sqlite-path":
			cfg.Storage.SQLitePath = *sqlitePath
		case "clickhouse-dsn":
			cfg.Storage.ClickhouseDSN = *clickhouseDSN
		case "http-addr":
			cfg.HTTP.Addr = *httpAddr
		case "mode":
			cfg.Trade.Mode = *mode
		case "workers":
			cfg.Trade.Workers = *workers
		case "pretty":
			cfg.General.Pretty = *pretty
		case "dry-run":
			cfg.General.DryRun = *dryRun
		}
	})

	logger := newLogger(cfg.General)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to signal main goroutine completion
	done := make(chan error, 1)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
			cancel()
		case <-done:
			return
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(shutdownGrace):
			logger.Warn().Dur("grace", shutdownGrace).Msg("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)

	// Signal completion to shutdown handler
	close(done)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("sniper stopped")
	}

	logger.Info().Msg("shutdown complete")
}

func newLogger(cfg config.GeneralConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("service", "sniper").Logger()
}

// run wires every component and blocks until the log stream ends, the
// subscription fails or ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signer, err := wallet.Load(cfg.Wallet.KeyPath)
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}
	logger.Info().Str("wallet", signer.PublicKey().String()).Msg("wallet loaded")

	programs, err := cfg.ProgramIDs()
	if err != nil {
		return err
	}
	buyLamports, err := cfg.BaseBuyLamports()
	if err != nil {
		return err
	}
	buySOL, err := cfg.BaseBuySOL()
	if err != nil {
		return err
	}
	mode, err := dispatch.ParseMode(cfg.Trade.Mode)
	if err != nil {
		return err
	}

	rpc := chain.NewHTTPClient(cfg.RPC.URL,
		chain.WithTimeout(cfg.RPC.Timeout),
		chain.WithMaxRetries(cfg.RPC.MaxRetries),
		chain.WithLogger(logger),
		chain.WithObserver(func(method string, d time.Duration, err error) {
			observability.RecordRPCLatency(method, d.Seconds(), err)
		}),
	)

	// Seed the blockhash before anything can dispatch.
	cache := blockhash.New(rpc, blockhash.Options{
		Interval:   cfg.Blockhash.RefreshInterval,
		Commitment: chain.Commitment(cfg.RPC.Commitment),
		Logger:     logger,
	})
	if err := cache.Seed(ctx); err != nil {
		return fmt.Errorf("seed blockhash: %w", err)
	}
	go cache.Run(ctx)

	wsCfg := chain.DefaultWSConfig()
	wsCfg.Logger = logger
	wsCfg.MaxReconnectAttempts = cfg.RPC.WSMaxReconnects
	ws, err := chain.NewWSClient(ctx, cfg.RPC.WSURL, &wsCfg)
	if err != nil {
		return fmt.Errorf("%w: %v", source.ErrSubscription, err)
	}
	defer ws.Close()

	src := source.New(source.Options{
		Client: ws,
		Filter: chain.LogsFilter{Commitment: chain.Commitment(cfg.RPC.Commitment)},
		Logger: logger,
	})
	events, subErrs, err := src.Events(ctx)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.TelegramEnabled() {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		go tg.Run(ctx)
		defer tg.Close()
		notifier = tg
	}

	coord, err := coordinator.New(coordinator.Options{
		Detector: detect.NewDetector(programs, detect.Options{Keyword: cfg.Programs.Keyword}),
		Dispatcher: dispatch.New(rpc, dispatch.Options{
			MaxRetries:     cfg.Trade.SendRetries,
			ConfirmTimeout: cfg.Trade.ConfirmTimeout,
			Logger:         logger,
		}),
		Blockhash:     cache,
		Signer:        signer,
		Trades:        st.trades,
		Guard:         guard.New(rpc, cfg.Guard.DenyFreeze, cfg.Guard.DenyMintAuthority),
		Positions:     st.positions,
		Journal:       st.journal,
		Notifier:      notifier,
		Priority:      cfg.Priority,
		Mode:          mode,
		BuyLamports:   buyLamports,
		BuySOL:        buySOL,
		SlippageBps:   cfg.Trade.SlippageBps,
		TakeProfitPct: cfg.Position.TakeProfitPct,
		StopLossPct:   cfg.Position.StopLossPct,
		MaxSeconds:    cfg.Position.MaxSeconds,
		Workers:       cfg.Trade.Workers,
		DryRun:        cfg.General.DryRun,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	if cfg.HTTP.Addr != "" {
		srv := api.NewServer(api.Options{
			Blockhash:   cache,
			Coordinator: coord,
			Trades:      st.trades,
			Journal:     st.journal,
			DryRun:      cfg.General.DryRun,
			CORSOrigins: cfg.HTTP.CORSOrigins,
			Logger:      logger,
		})
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
				logger.Error().Err(err).Msg("http server stopped")
			}
		}()
	}

	// A lost subscription ends the process.
	subErr := make(chan error, 1)
	go func() {
		defer close(subErr)
		if err, ok := <-subErrs; ok {
			subErr <- err
			cancel()
		}
	}()

	logger.Info().
		Str("mode", string(mode)).
		Bool("dry_run", cfg.General.DryRun).
		Int("workers", cfg.Trade.Workers).
		Strs("kinds", kindNames(programs)).
		Uint64("buy_lamports", buyLamports).
		Msg("sniper running")

	runErr := coord.Run(ctx, events)
	if err := <-subErr; err != nil {
		return err
	}
	return runErr
}

func kindNames(p detect.Programs) []string {
	d := detect.NewDetector(p, detect.Options{})
	kinds := d.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
