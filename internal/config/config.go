// Package config provides application configuration loaded from environment
// variables. Use MustLoad() in main() to catch misconfiguration at boot.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// SportsConfig holds upstream sports-data API settings.
type SportsConfig struct {
	FootballURL     string        // premium football provider base URL
	FootballAPIKey  string        // premium API key
	FreeSportsURL   string        // free-tier provider base URL
	LiveTimeout     time.Duration // default 8s
	UpcomingTimeout time.Duration // default 15s
	ResultsTimeout  time.Duration // default 10s
	OddsPrefetch    time.Duration // odds warm-cache interval, default 2m
}

// ChainConfig holds Sui gateway settings. The admin key never leaves the
// gateway implementation.
type ChainConfig struct {
	RPCURL          string // Sui fullnode JSON-RPC endpoint
	Network         string // "mainnet" | "testnet"
	AdminAddress    string
	AdminKey        string // signing key for payouts
	TreasuryObject  string // betting treasury object id
	PackageID       string // betting Move package
	HoldersURL      string // upstream token-holders API
	PlatformWallets []string
	CallTimeout     time.Duration // default 10s
	PayoutGap       time.Duration // pause between sequential payouts, default 3s
	SettleDelay     time.Duration // treasury withdraw → send delay, default 2s
}

// BettingConfig holds admission-pipeline policy knobs.
type BettingConfig struct {
	MaxStakeSUI      float64       // default 100
	MaxStakeSBETS    float64       // default 10_000
	MaxBetsPerDay    int           // default 7
	MaxBetsPerEvent  int           // default 2
	BetCooldown      time.Duration // default 30s
	FeeRate          float64       // platform fee on stake, default 0.01
	SuiPriceUSD      float64       // default 1.50
	SbetsPriceUSD    float64       // default 1e-6
	LiveCacheMaxAge  time.Duration // default 90s
	UpcomingMaxAge   time.Duration // default 15m
	SnapshotMaxAge   time.Duration // default 10m
	LiveCutoffMinute int           // first-half cutoff, default 45
	WelcomeBonus     int64         // free-bet SBETS on first connect, default 500
}

// RevenueConfig holds revenue-engine settings.
type RevenueConfig struct {
	DeploymentCutoff time.Time     // bets settled before this never count
	HoldersCacheTTL  time.Duration // default 5m
	HoldersPageDelay time.Duration // default 1.5s
	HoldersMaxPages  int           // default 20
	HoldersCap       int           // default 1000
}

// AdminConfig holds admin authentication settings.
type AdminConfig struct {
	Password   string        // required in production
	SessionTTL time.Duration // default 1h
	SweepEvery time.Duration // default 5m
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Sports  SportsConfig
	Chain   ChainConfig
	Betting BettingConfig
	Revenue RevenueConfig
	Admin   AdminConfig

	// suiPaused blocks SUI-currency bet admission while keeping SBETS open.
	// Mutable at runtime via the admin endpoint.
	suiPaused atomic.Bool
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// SuiBettingPaused reports the runtime pause flag.
func (c *Config) SuiBettingPaused() bool { return c.suiPaused.Load() }

// SetSuiBettingPaused flips the runtime pause flag.
func (c *Config) SetSuiBettingPaused(v bool) { c.suiPaused.Store(v) }

// Validate checks that all required configuration values are present and valid.
func (c *Config) Validate() error {
	var errs []error

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}
	if c.IsProd() && c.Admin.Password == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be set in production"))
	}
	if c.Betting.FeeRate <= 0 || c.Betting.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf("PLATFORM_FEE_RATE must be between 0 and 1 (exclusive), got %.4f", c.Betting.FeeRate))
	}
	if c.Betting.SuiPriceUSD <= 0 || c.Betting.SbetsPriceUSD <= 0 {
		errs = append(errs, errors.New("token USD prices must be positive"))
	}
	if c.Revenue.HoldersMaxPages <= 0 || c.Revenue.HoldersCap <= 0 {
		errs = append(errs, errors.New("holders paging limits must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "suibets"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}
	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}
	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── Sports providers ──────────────────────────────────────────────────────
	cfg.Sports = SportsConfig{
		FootballURL:     getEnv("FOOTBALL_API_URL", "https://v3.football.api-sports.io"),
		FootballAPIKey:  getEnv("FOOTBALL_API_KEY", ""),
		FreeSportsURL:   getEnv("FREE_SPORTS_API_URL", "https://www.thesportsdb.com/api/v1/json/3"),
		LiveTimeout:     getDuration("SPORTS_LIVE_TIMEOUT", 8*time.Second),
		UpcomingTimeout: getDuration("SPORTS_UPCOMING_TIMEOUT", 15*time.Second),
		ResultsTimeout:  getDuration("SPORTS_RESULTS_TIMEOUT", 10*time.Second),
		OddsPrefetch:    getDuration("SPORTS_ODDS_PREFETCH", 2*time.Minute),
	}

	// ── Chain gateway ─────────────────────────────────────────────────────────
	var platformWallets []string
	if raw := os.Getenv("PLATFORM_WALLETS"); raw != "" {
		for _, w := range strings.Split(raw, ",") {
			platformWallets = append(platformWallets, strings.ToLower(strings.TrimSpace(w)))
		}
	}
	cfg.Chain = ChainConfig{
		RPCURL:          getEnv("SUI_RPC_URL", "https://fullnode.mainnet.sui.io:443"),
		Network:         getEnv("SUI_NETWORK", "mainnet"),
		AdminAddress:    getEnv("SUI_ADMIN_ADDRESS", ""),
		AdminKey:        getEnv("SUI_ADMIN_KEY", ""),
		TreasuryObject:  getEnv("SUI_TREASURY_OBJECT", ""),
		PackageID:       getEnv("SUI_PACKAGE_ID", ""),
		HoldersURL:      getEnv("HOLDERS_API_URL", ""),
		PlatformWallets: platformWallets,
		CallTimeout:     getDuration("CHAIN_CALL_TIMEOUT", 10*time.Second),
		PayoutGap:       getDuration("CHAIN_PAYOUT_GAP", 3*time.Second),
		SettleDelay:     getDuration("CHAIN_SETTLE_DELAY", 2*time.Second),
	}

	// ── Betting policy ────────────────────────────────────────────────────────
	maxSui, err := getFloat("MAX_STAKE_SUI", 100)
	if err != nil {
		return nil, fmt.Errorf("MAX_STAKE_SUI: %w", err)
	}
	maxSbets, err := getFloat("MAX_STAKE_SBETS", 10_000)
	if err != nil {
		return nil, fmt.Errorf("MAX_STAKE_SBETS: %w", err)
	}
	maxDay, err := getInt("MAX_BETS_PER_DAY", 7)
	if err != nil {
		return nil, fmt.Errorf("MAX_BETS_PER_DAY: %w", err)
	}
	maxEvent, err := getInt("MAX_BETS_PER_EVENT", 2)
	if err != nil {
		return nil, fmt.Errorf("MAX_BETS_PER_EVENT: %w", err)
	}
	feeRate, err := getFloat("PLATFORM_FEE_RATE", 0.01)
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_FEE_RATE: %w", err)
	}
	suiPrice, err := getFloat("SUI_PRICE_USD", 1.50)
	if err != nil {
		return nil, fmt.Errorf("SUI_PRICE_USD: %w", err)
	}
	sbetsPrice, err := getFloat("SBETS_PRICE_USD", 0.000001)
	if err != nil {
		return nil, fmt.Errorf("SBETS_PRICE_USD: %w", err)
	}
	welcome, err := getInt("WELCOME_BONUS_SBETS", 500)
	if err != nil {
		return nil, fmt.Errorf("WELCOME_BONUS_SBETS: %w", err)
	}
	cfg.Betting = BettingConfig{
		MaxStakeSUI:      maxSui,
		MaxStakeSBETS:    maxSbets,
		MaxBetsPerDay:    maxDay,
		MaxBetsPerEvent:  maxEvent,
		BetCooldown:      getDuration("BET_COOLDOWN", 30*time.Second),
		FeeRate:          feeRate,
		SuiPriceUSD:      suiPrice,
		SbetsPriceUSD:    sbetsPrice,
		LiveCacheMaxAge:  getDuration("LIVE_CACHE_MAX_AGE", 90*time.Second),
		UpcomingMaxAge:   getDuration("UPCOMING_CACHE_MAX_AGE", 15*time.Minute),
		SnapshotMaxAge:   getDuration("SNAPSHOT_MAX_AGE", 10*time.Minute),
		LiveCutoffMinute: 45,
		WelcomeBonus:     int64(welcome),
	}

	// ── Revenue engine ────────────────────────────────────────────────────────
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if raw := os.Getenv("REVENUE_CUTOFF"); raw != "" {
		parsed, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			return nil, fmt.Errorf("REVENUE_CUTOFF: %w", perr)
		}
		cutoff = parsed
	}
	maxPages, err := getInt("HOLDERS_MAX_PAGES", 20)
	if err != nil {
		return nil, fmt.Errorf("HOLDERS_MAX_PAGES: %w", err)
	}
	holdersCap, err := getInt("HOLDERS_CAP", 1000)
	if err != nil {
		return nil, fmt.Errorf("HOLDERS_CAP: %w", err)
	}
	cfg.Revenue = RevenueConfig{
		DeploymentCutoff: cutoff,
		HoldersCacheTTL:  getDuration("HOLDERS_CACHE_TTL", 5*time.Minute),
		HoldersPageDelay: getDuration("HOLDERS_PAGE_DELAY", 1500*time.Millisecond),
		HoldersMaxPages:  maxPages,
		HoldersCap:       holdersCap,
	}

	// ── Admin ─────────────────────────────────────────────────────────────────
	cfg.Admin = AdminConfig{
		Password:   getEnv("ADMIN_PASSWORD", ""),
		SessionTTL: getDuration("ADMIN_SESSION_TTL", time.Hour),
		SweepEvery: getDuration("ADMIN_SESSION_SWEEP", 5*time.Minute),
	}

	cfg.suiPaused.Store(getEnv("SUI_BETTING_PAUSED", "") == "true")

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or unparseable.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
