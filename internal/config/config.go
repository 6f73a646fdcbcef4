package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"

	"github.com/ramonehamilton/deckforge/internal/deck"
	"github.com/ramonehamilton/deckforge/internal/deck/printing"
)

// Environment variables that override file settings.
const (
	EnvDBPath   = "DECKFORGE_DB_PATH"
	EnvLogLevel = "DECKFORGE_LOG_LEVEL"
	EnvAPIPort  = "DECKFORGE_API_PORT"

	// EnvBackupPassword seals backups without passing the password as a flag.
	EnvBackupPassword = "DECKFORGE_BACKUP_PASSWORD"
)

// Config represents the application configuration.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Storage  StorageConfig  `toml:"storage"`
	Scryfall ScryfallConfig `toml:"scryfall"`
	Pricing  PricingConfig  `toml:"pricing"`
	API      APIConfig      `toml:"api"`
	Printing PrintingConfig `toml:"printing"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn or error
	Format string `toml:"format"` // json or console
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Path        string `toml:"path"`         // SQLite file, or ":memory:"
	BusyTimeout string `toml:"busy_timeout"` // e.g. "5s"
	JournalMode string `toml:"journal_mode"`
	CacheTTL    string `toml:"cache_ttl"` // Printing cache lifetime, e.g. "720h"
}

// ScryfallConfig contains card data API settings.
type ScryfallConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	RateDelay string `toml:"rate_delay"` // Minimum time between requests
	Workers   int    `toml:"workers"`    // Concurrent printing lookups
}

// PricingConfig contains price resolution settings.
type PricingConfig struct {
	BasicLandPrice string `toml:"basic_land_price"` // Decimal USD, e.g. "0.10"
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// PrintingConfig contains printing resolution settings.
type PrintingConfig struct {
	// BasicLands overrides the default printing of individual basic lands.
	BasicLands map[string]BasicLandPrinting `toml:"basic_lands"`
}

// BasicLandPrinting identifies the printing used for a basic land.
type BasicLandPrinting struct {
	ScryfallID      string `toml:"scryfall_id"`
	Set             string `toml:"set"`
	CollectorNumber string `toml:"collector_number"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Path:        "",
			BusyTimeout: "5s",
			JournalMode: "WAL",
			CacheTTL:    "720h",
		},
		Scryfall: ScryfallConfig{
			BaseURL:   "https://api.scryfall.com",
			UserAgent: "deckforge/1.0",
			RateDelay: "100ms",
			Workers:   4,
		},
		Pricing: PricingConfig{
			BasicLandPrice: "0.10",
		},
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".deckforge")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return configDir, nil
}

// Path returns the path to the configuration file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default path.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads the configuration from path and applies environment
// overrides. Settings absent from the file keep their defaults; a missing
// file yields the default configuration.
func LoadFrom(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	if config.Storage.Path == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		config.Storage.Path = filepath.Join(dir, "deckforge.db")
	}
	return config, nil
}

// LoadEnvFiles loads variables from .env files into the process
// environment. Missing files are ignored; variables already set win.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAPIPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvAPIPort, v, err)
		}
		c.API.Port = port
	}
	return nil
}

// Save saves the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format %q: must be json or console", c.Log.Format)
	}

	if _, err := time.ParseDuration(c.Storage.BusyTimeout); err != nil {
		return fmt.Errorf("invalid busy timeout %q: %w", c.Storage.BusyTimeout, err)
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Storage.CacheTTL, err)
	}

	if _, err := c.RateDelay(); err != nil {
		return fmt.Errorf("invalid rate delay %q: %w", c.Scryfall.RateDelay, err)
	}
	if c.Scryfall.Workers < 1 {
		return fmt.Errorf("scryfall workers must be at least 1: %d", c.Scryfall.Workers)
	}

	if _, err := c.BasicLandPrice(); err != nil {
		return fmt.Errorf("invalid basic land price %q: %w", c.Pricing.BasicLandPrice, err)
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api port out of range: %d", c.API.Port)
	}

	for name, p := range c.Printing.BasicLands {
		if !printing.IsBasicLand(name) {
			return fmt.Errorf("printing override for %q: not a basic land", name)
		}
		if !p.ref().IsKnown() {
			return fmt.Errorf("printing override for %q: needs scryfall_id or set and collector_number", name)
		}
	}
	return nil
}

// BusyTimeout returns the database busy timeout as a duration.
func (c *Config) BusyTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Storage.BusyTimeout)
}

// CacheTTL returns the printing cache lifetime as a duration.
func (c *Config) CacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Storage.CacheTTL)
}

// RateDelay returns the minimum delay between Scryfall requests.
func (c *Config) RateDelay() (time.Duration, error) {
	return time.ParseDuration(c.Scryfall.RateDelay)
}

// BasicLandPrice returns the configured basic land price.
func (c *Config) BasicLandPrice() (deck.Price, error) {
	return deck.ParsePrice(c.Pricing.BasicLandPrice)
}

// BasicLands returns the basic land printing table: the built-in defaults
// with any configured overrides applied.
func (c *Config) BasicLands() printing.Table {
	overrides := make(printing.Table, len(c.Printing.BasicLands))
	for name, p := range c.Printing.BasicLands {
		overrides[name] = p.ref()
	}
	return printing.MergeBasicLands(overrides)
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func (p BasicLandPrinting) ref() deck.PrintingRef {
	return deck.PrintingRef{
		ScryfallID:      p.ScryfallID,
		SetCode:         strings.ToLower(p.Set),
		CollectorNumber: p.CollectorNumber,
	}
}
