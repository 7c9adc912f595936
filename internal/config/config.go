package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
)

type Config struct {
	// Key material (from .env)
	PublicKey  string
	PrivateKey string
	Provider   string

	// Chain
	ChainProfile string
	ABIDir       string
	PinChainID   *bool

	// Price oracle
	TickerBaseURL string
	PriceSymbols  map[string]string

	// Receipts
	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration

	// Notifications
	WebhookURL string
	BotName    string

	// Logging
	LogLevel  string
	LogFormat string

	// Journal database (optional)
	DatabaseURL string
	DBHost      string
	DBPort      int
	DBName      string
	DBUser      string
	DBPassword  string

	// malformed numeric settings, reported by Validate
	invalid []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	symbols, err := parseSymbolMap(envStr("PRICE_SYMBOLS", ""))
	if err != nil {
		return nil, &Error{Problems: []string{err.Error()}}
	}

	var invalid []string
	receiptTimeout := envIntStrict("RECEIPT_TIMEOUT_SECONDS", 300, &invalid)
	receiptPoll := envIntStrict("RECEIPT_POLL_MILLIS", 1000, &invalid)

	cfg := &Config{
		PublicKey:  envStr("PUBLIC_KEY", ""),
		PrivateKey: envStr("PRIVATE_KEY", ""),
		Provider:   envStr("PROVIDER", ""),

		ChainProfile: envStr("CHAIN_PROFILE", "mainnet"),
		ABIDir:       envStr("ABI_DIR", "./abi"),
		PinChainID:   envOptBool("PIN_CHAIN_ID"),

		TickerBaseURL: envStr("TICKER_BASE_URL", "https://api.binance.com"),
		PriceSymbols:  symbols,

		ReceiptTimeout:      time.Duration(receiptTimeout) * time.Second,
		ReceiptPollInterval: time.Duration(receiptPoll) * time.Millisecond,

		WebhookURL: envStr("WEBHOOK_URL", ""),
		BotName:    envStr("BOT_NAME", "TrahnWallet"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "console"),

		DatabaseURL: envStr("DATABASE_URL", ""),
		DBHost:      envStr("DB_HOST", ""),
		DBPort:      envInt("DB_PORT", 5432),
		DBName:      envStr("DB_NAME", "trahn_wallet"),
		DBUser:      envStr("DB_USER", ""),
		DBPassword:  envStr("DB_PASSWORD", ""),

		invalid: invalid,
	}

	return cfg, nil
}

// Validate checks the key material needed by every chain command.
func (c *Config) Validate() error {
	var errs []string

	if c.PublicKey == "" {
		errs = append(errs, "PUBLIC_KEY is required")
	} else if !common.IsHexAddress(c.PublicKey) {
		errs = append(errs, "PUBLIC_KEY is not a hex address")
	}
	if c.PrivateKey == "" {
		errs = append(errs, "PRIVATE_KEY is required")
	}
	if c.Provider == "" {
		errs = append(errs, "PROVIDER is required")
	} else if !strings.HasPrefix(c.Provider, "http://") && !strings.HasPrefix(c.Provider, "https://") {
		errs = append(errs, "PROVIDER must be an http(s) JSON-RPC URL")
	}

	if c.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
		if err != nil {
			errs = append(errs, "PRIVATE_KEY is not a 32-byte hex key")
		} else if common.IsHexAddress(c.PublicKey) &&
			crypto.PubkeyToAddress(key.PublicKey) != common.HexToAddress(c.PublicKey) {
			errs = append(errs, "PUBLIC_KEY does not match the address of PRIVATE_KEY")
		}
	}

	errs = append(errs, c.invalid...)
	if c.ReceiptTimeout < 0 {
		errs = append(errs, "RECEIPT_TIMEOUT_SECONDS must not be negative")
	}
	if c.ReceiptPollInterval <= 0 {
		errs = append(errs, "RECEIPT_POLL_MILLIS must be positive")
	}

	if len(errs) > 0 {
		return &Error{Problems: errs}
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== EVM Wallet Configuration ===")
	fmt.Printf("Chain profile: %s\n", c.ChainProfile)
	if len(c.PublicKey) > 16 {
		fmt.Printf("Wallet: %s...%s\n", c.PublicKey[:10], c.PublicKey[len(c.PublicKey)-6:])
	}
	fmt.Printf("Provider: %s\n", boolLabel(c.Provider != "", "configured", "not set"))
	fmt.Printf("ABI dir: %s\n", c.ABIDir)
	fmt.Printf("Ticker: %s\n", c.TickerBaseURL)
	if c.ReceiptTimeout > 0 {
		fmt.Printf("Receipt timeout: %s\n", c.ReceiptTimeout)
	} else {
		fmt.Println("Receipt timeout: none")
	}
	fmt.Printf("Journal: %s\n", boolLabel(c.JournalEnabled(), "enabled", "disabled"))
	fmt.Printf("Webhook: %s\n", boolLabel(c.WebhookURL != "", "configured", "not set"))
	fmt.Println("================================")
}

// JournalEnabled reports whether a Postgres journal is configured.
func (c *Config) JournalEnabled() bool {
	return c.DatabaseURL != "" || c.DBHost != ""
}

func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envIntStrict is envInt for settings where a typo must not silently become
// the default.
func envIntStrict(key string, fallback int, invalid *[]string) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*invalid = append(*invalid, fmt.Sprintf("%s is not an integer: %q", key, v))
		return fallback
	}
	return n
}

func envOptBool(key string) *bool {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	b := v == "true" || v == "1" || v == "yes"
	return &b
}

// parseSymbolMap reads "WETH=ETHUSDT,WMATIC=MATICUSDT".
func parseSymbolMap(raw string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		k, v = strings.ToUpper(strings.TrimSpace(k)), strings.ToUpper(strings.TrimSpace(v))
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("PRICE_SYMBOLS entry %q is not TOKEN=TICKER", pair)
		}
		out[k] = v
	}
	return out, nil
}

func boolLabel(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
