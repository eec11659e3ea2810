// Command trades prints the trade log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	"solana-launch-sniper/internal/config"
	"solana-launch-sniper/internal/domain"
	"solana-launch-sniper/internal/storage"
	pgstore "solana-launch-sniper/internal/storage/postgres"
	"solana-launch-sniper/internal/storage/sqlite"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	sqlitePath := flag.String("sqlite-path", "", "SQLite database file")
	signature := flag.String("signature", "", "Only show trades for this transaction signature")
	format := flag.String("format", "table", "Output format: table or json")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *sqlitePath != "" {
		cfg.Storage.SQLitePath = *sqlitePath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, closeStore, err := openTradeStore(ctx, cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening trade store: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()

	var trades []*domain.Trade
	if *signature != "" {
		trades, err = store.GetBySignature(ctx, *signature)
	} else {
		trades, err = store.FetchTrades(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching trades: %v\n", err)
		os.Exit(1)
	}

	if err := printTrades(os.Stdout, trades, *format); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openTradeStore prefers PostgreSQL and falls back to SQLite.
func openTradeStore(ctx context.Context, cfg config.StorageConfig) (storage.TradeStore, func(), error) {
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		return pgstore.NewTradeStore(pool), pool.Close, nil
	}
	if cfg.SQLitePath != "" {
		if _, err := os.Stat(cfg.SQLitePath); err != nil {
			return nil, nil, fmt.Errorf("sqlite database: %w", err)
		}
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewTradeStore(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, errors.New("--postgres-dsn or --sqlite-path is required")
}

type tradeJSON struct {
	ID        string    `json:"id"`
	Ts        time.Time `json:"ts"`
	Side      string    `json:"side"`
	Mint      string    `json:"mint"`
	Signature string    `json:"signature"`
	Qty       string    `json:"qty"`
	PriceSOL  string    `json:"price_sol"`
}

func printTrades(w io.Writer, trades []*domain.Trade, format string) error {
	switch format {
	case "json":
		out := make([]tradeJSON, len(trades))
		for i, t := range trades {
			out[i] = tradeJSON{
				ID:        t.ID,
				Ts:        t.Ts,
				Side:      string(t.Side),
				Mint:      t.Mint,
				Signature: t.Signature,
				Qty:       t.Qty.String(),
				PriceSOL:  t.PriceSOL.String(),
			}
		}
		body, err := sonnet.Marshal(out)
		if err != nil {
			return fmt.Errorf("encode trades: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", body)
		return err

	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tSIDE\tMINT\tQTY\tPRICE_SOL\tSIGNATURE")

		spent := decimal.Zero
		for _, t := range trades {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				t.Ts.UTC().Format(time.RFC3339), t.Side, t.Mint, t.Qty, t.PriceSOL, t.Signature)
			if t.Side == domain.SideBuy {
				spent = spent.Add(t.Qty)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d trades, %s SOL spent on buys\n", len(trades), spent)
		return err

	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
