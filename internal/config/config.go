// Package config loads process configuration from defaults, an optional YAML
// file, a .env file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"solana-launch-sniper/internal/detect"
	"solana-launch-sniper/internal/dispatch"
	"solana-launch-sniper/internal/domain"
)

const lamportsPerSOL = 1_000_000_000

// Config is the root configuration structure.
type Config struct {
	General   GeneralConfig         `yaml:"general"`
	RPC       RPCConfig             `yaml:"rpc"`
	Wallet    WalletConfig          `yaml:"wallet"`
	Priority  domain.PriorityConfig `yaml:"priority"`
	Trade     TradeConfig           `yaml:"trade"`
	Programs  ProgramsConfig        `yaml:"programs"`
	Blockhash BlockhashConfig       `yaml:"blockhash"`
	Guard     GuardConfig           `yaml:"guard"`
	Position  PositionConfig        `yaml:"position"`
	Storage   StorageConfig         `yaml:"storage"`
	Telegram  TelegramConfig        `yaml:"telegram"`
	HTTP      HTTPConfig            `yaml:"http"`
}

type GeneralConfig struct {
	LogLevel string `yaml:"log_level"`
	Pretty   bool   `yaml:"pretty"`
	DryRun   bool   `yaml:"dry_run"`
}

type RPCConfig struct {
	URL        string        `yaml:"url"`
	WSURL      string        `yaml:"ws_url"`
	Commitment string        `yaml:"commitment"` // empty uses the node default
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	// WSMaxReconnects is how many consecutive failed reconnects end the
	// log stream. Zero retries forever.
	WSMaxReconnects int `yaml:"ws_max_reconnects"`
}

type WalletConfig struct {
	KeyPath string `yaml:"keypath"`
}

type TradeConfig struct {
	BaseBuySOL     string        `yaml:"base_buy_sol"` // decimal SOL
	SlippageBps    uint16        `yaml:"slippage_bps"`
	Mode           string        `yaml:"mode"` // fire_and_forget|confirm
	SendRetries    uint          `yaml:"send_retries"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	Workers        int           `yaml:"workers"`
}

// ProgramsConfig holds the watched program IDs. An empty ID disables that kind.
type ProgramsConfig struct {
	RaydiumAMMV4 string `yaml:"raydium_amm_v4"`
	RaydiumCLMM  string `yaml:"raydium_clmm"`
	PumpFun      string `yaml:"pump_fun"`
	Keyword      string `yaml:"keyword"`
}

type BlockhashConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

type GuardConfig struct {
	DenyFreeze        bool `yaml:"deny_freeze"`
	DenyMintAuthority bool `yaml:"deny_mint_authority"`
}

type PositionConfig struct {
	TakeProfitPct float64 `yaml:"take_profit_pct"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	MaxSeconds    int64   `yaml:"max_seconds"`
}

type StorageConfig struct {
	UseMemory     bool   `yaml:"use_memory"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	SQLitePath    string `yaml:"sqlite_path"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"` // empty disables CORS headers
}

// DefaultWSMaxReconnects gives up on the log stream after roughly three
// minutes of backed-off reconnects.
const DefaultWSMaxReconnects = 10

// Default returns the built-in configuration. The endpoints point at testnet
// while the program IDs are the mainnet deployments; set RAYDIUM_AMM_V4,
// RAYDIUM_CLMM and PUMP_FUN (or blank them) when running against another
// cluster.
func Default() *Config {
	return &Config{
		General: GeneralConfig{LogLevel: "info"},
		RPC: RPCConfig{
			URL:        "https://api.testnet.solana.com",
			WSURL:      "wss://api.testnet.solana.com",
			Timeout:         30 * time.Second,
			MaxRetries:      3,
			WSMaxReconnects: DefaultWSMaxReconnects,
		},
		Priority: domain.DefaultPriorityConfig(),
		Trade: TradeConfig{
			BaseBuySOL:     "0.02",
			SlippageBps:    500,
			Mode:           string(dispatch.ModeFireAndForget),
			SendRetries:    dispatch.DefaultMaxRetries,
			ConfirmTimeout: dispatch.DefaultConfirmTimeout,
			Workers:        1,
		},
		Programs: ProgramsConfig{
			RaydiumAMMV4: detect.RaydiumAMMV4,
			RaydiumCLMM:  detect.RaydiumCLMM,
			PumpFun:      detect.PumpFun,
			Keyword:      detect.DefaultKeyword,
		},
		Blockhash: BlockhashConfig{RefreshInterval: 3 * time.Second},
		Position: PositionConfig{
			TakeProfitPct: 50,
			StopLossPct:   20,
			MaxSeconds:    600,
		},
		Storage: StorageConfig{SQLitePath: "data/sniper.db"},
		HTTP:    HTTPConfig{Addr: ":8080"},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
// envFiles default to ".env"; missing files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Wallet.KeyPath, "WALLET_KEYPATH")
	setString(&cfg.RPC.URL, "RPC_URL")
	setString(&cfg.RPC.WSURL, "WS_URL")
	setString(&cfg.Trade.BaseBuySOL, "BASE_BUY_SOL")
	setString(&cfg.Trade.Mode, "DISPATCH_MODE")
	setString(&cfg.Storage.PostgresDSN, "POSTGRES_DSN")
	setString(&cfg.Storage.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Storage.ClickhouseDSN, "CLICKHOUSE_DSN")
	setString(&cfg.Telegram.Token, "TELEGRAM_BOT_TOKEN")

	// Program IDs may be set to the empty string to disable a kind.
	setStringAllowEmpty(&cfg.Programs.RaydiumAMMV4, "RAYDIUM_AMM_V4")
	setStringAllowEmpty(&cfg.Programs.RaydiumCLMM, "RAYDIUM_CLMM")
	setStringAllowEmpty(&cfg.Programs.PumpFun, "PUMP_FUN")

	if v := os.Getenv("COMPUTE_UNIT_LIMIT"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("COMPUTE_UNIT_LIMIT: %w", err)
		}
		cfg.Priority.ComputeUnitLimit = uint32(n)
	}
	if v := os.Getenv("PRIORITY_MICROLAMPORTS_PER_CU"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PRIORITY_MICROLAMPORTS_PER_CU: %w", err)
		}
		cfg.Priority.MicroLamportsPerCU = n
	}
	if v := os.Getenv("SLIPPAGE_BPS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return fmt.Errorf("SLIPPAGE_BPS: %w", err)
		}
		cfg.Trade.SlippageBps = uint16(n)
	}
	if v := os.Getenv("WS_MAX_RECONNECTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WS_MAX_RECONNECTS: %w", err)
		}
		cfg.RPC.WSMaxReconnects = n
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Telegram.ChatID = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setStringAllowEmpty(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

var maxLamports = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// BaseBuyLamports converts the base buy size to lamports, truncating
// anything below one lamport.
func (c *Config) BaseBuyLamports() (uint64, error) {
	sol, err := c.BaseBuySOL()
	if err != nil {
		return 0, err
	}
	lamports := sol.Shift(9).Truncate(0)
	if lamports.IsNegative() || lamports.GreaterThan(maxLamports) {
		return 0, fmt.Errorf("base_buy_sol %s does not fit in a lamport amount", sol)
	}
	return lamports.BigInt().Uint64(), nil
}

// BaseBuySOL parses the base buy size.
func (c *Config) BaseBuySOL() (decimal.Decimal, error) {
	sol, err := decimal.NewFromString(c.Trade.BaseBuySOL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("base_buy_sol %q: %w", c.Trade.BaseBuySOL, err)
	}
	return sol, nil
}

// ProgramIDs decodes the configured program IDs. Disabled kinds are nil.
func (c *Config) ProgramIDs() (detect.Programs, error) {
	var p detect.Programs
	var err error
	if p.AMM, err = optionalKey(c.Programs.RaydiumAMMV4); err != nil {
		return p, fmt.Errorf("raydium_amm_v4: %w", err)
	}
	if p.CLMM, err = optionalKey(c.Programs.RaydiumCLMM); err != nil {
		return p, fmt.Errorf("raydium_clmm: %w", err)
	}
	if p.BondingCurve, err = optionalKey(c.Programs.PumpFun); err != nil {
		return p, fmt.Errorf("pump_fun: %w", err)
	}
	return p, nil
}

func optionalKey(s string) (*solana.PublicKey, error) {
	if s == "" {
		return nil, nil
	}
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// TelegramEnabled reports whether both bot token and chat ID are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && c.Telegram.ChatID != 0
}

// Validate checks the configuration for values the sniper cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Wallet.KeyPath == "" {
		errs = append(errs, errors.New("wallet keypath is required (WALLET_KEYPATH)"))
	}
	if err := c.Priority.Validate(); err != nil {
		errs = append(errs, err)
	}

	sol, err := c.BaseBuySOL()
	switch {
	case err != nil:
		errs = append(errs, err)
	case !sol.IsPositive():
		errs = append(errs, fmt.Errorf("base_buy_sol must be positive, got %s", sol))
	default:
		lamports, err := c.BaseBuyLamports()
		switch {
		case err != nil:
			errs = append(errs, err)
		case lamports == 0:
			errs = append(errs, fmt.Errorf("base_buy_sol %s is below one lamport", sol))
		}
	}

	if c.Trade.SlippageBps > 10_000 {
		errs = append(errs, fmt.Errorf("slippage_bps must be <= 10000, got %d", c.Trade.SlippageBps))
	}
	if _, err := dispatch.ParseMode(c.Trade.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.Trade.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", c.Trade.Workers))
	}
	if _, err := c.ProgramIDs(); err != nil {
		errs = append(errs, err)
	}
	switch c.RPC.Commitment {
	case "", "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("unknown commitment %q", c.RPC.Commitment))
	}
	if c.RPC.URL == "" || c.RPC.WSURL == "" {
		errs = append(errs, errors.New("rpc url and ws_url are required"))
	}
	if c.RPC.WSMaxReconnects < 0 {
		errs = append(errs, fmt.Errorf("ws_max_reconnects must be >= 0, got %d", c.RPC.WSMaxReconnects))
	}
	if c.Blockhash.RefreshInterval <= 0 {
		errs = append(errs, errors.New("blockhash refresh_interval must be positive"))
	}

	return errors.Join(errs...)
}
