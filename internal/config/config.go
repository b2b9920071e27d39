package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	LogLevel     slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
	DataDir      string        `env:"DATA_DIR" envDefault:"data"`
	StoreBackend string        `env:"STORE_BACKEND" envDefault:"sqlite"`
	CatalogPath  string        `env:"CATALOG_PATH"`
	AudioDir     string        `env:"AUDIO_DIR" envDefault:"audio"`
	SPADir       string        `env:"SPA_DIR" envDefault:"../web/dist"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	RewardArrive  int `env:"REWARD_ARRIVE" envDefault:"10"`
	RewardCorrect int `env:"REWARD_CORRECT" envDefault:"20"`
	HintPenalty   int `env:"HINT_PENALTY" envDefault:"5"`
	MaxAttempts   int `env:"MAX_ATTEMPTS" envDefault:"3"`

	RewardsEnabled    bool          `env:"REWARDS_ENABLED" envDefault:"true"`
	SolanaRPCURL      string        `env:"SOLANA_RPC_URL"`
	SenderPrivateKey  string        `env:"SENDER_PRIVATE_KEY"`
	ReceiverWallet    string        `env:"RECEIVER_WALLET_ADDRESS"`
	TokenMint         string        `env:"TOKEN_MINT_ADDRESS"`
	TokenDecimals     uint8         `env:"TOKEN_DECIMALS" envDefault:"6"`
	RewardTimeout     time.Duration `env:"REWARD_TIMEOUT" envDefault:"20s"`
	RewardMaxAttempts uint          `env:"REWARD_MAX_ATTEMPTS" envDefault:"3"`

	AIAPIKey       string  `env:"AI_API_KEY"`
	AIModel        string  `env:"AI_MODEL" envDefault:"gpt-4o-mini"`
	AIBaseURL      string  `env:"AI_BASE_URL"`
	FuzzyThreshold float64 `env:"FUZZY_THRESHOLD" envDefault:"0.85"`

	CertSecret        string `env:"CERT_SECRET,required"`
	AdminEmail        string `env:"ADMIN_EMAIL"`
	AdminPasswordHash string `env:"ADMIN_PASSWORD_HASH"`

	RedisURL     string `env:"REDIS_URL"`
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case "sqlite", "bolt", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND must be sqlite, bolt or memory, got %q", c.StoreBackend))
	}
	if c.CertSecret == "" {
		errs = append(errs, errors.New("CERT_SECRET is required"))
	}
	if c.RewardArrive < 0 || c.RewardCorrect < 0 || c.HintPenalty < 0 {
		errs = append(errs, errors.New("rewards and penalties must not be negative"))
	}
	if c.MaxAttempts < 0 {
		errs = append(errs, errors.New("MAX_ATTEMPTS must not be negative"))
	}
	if c.FuzzyThreshold <= 0 || c.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("FUZZY_THRESHOLD must be in (0, 1], got %v", c.FuzzyThreshold))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("SESSION_TTL must not be negative"))
	}

	if c.RewardsEnabled {
		for _, v := range []struct{ name, value string }{
			{"SOLANA_RPC_URL", c.SolanaRPCURL},
			{"SENDER_PRIVATE_KEY", c.SenderPrivateKey},
			{"RECEIVER_WALLET_ADDRESS", c.ReceiverWallet},
			{"TOKEN_MINT_ADDRESS", c.TokenMint},
		} {
			if v.value == "" {
				errs = append(errs, fmt.Errorf("%s is required when REWARDS_ENABLED is true", v.name))
			}
		}
		if c.RewardTimeout <= 0 {
			errs = append(errs, errors.New("REWARD_TIMEOUT must be positive"))
		}
	}

	if (c.AdminEmail == "") != (c.AdminPasswordHash == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set together"))
	}

	return errors.Join(errs...)
}

// AdminEnabled reports whether the operator routes are served.
func (c *Config) AdminEnabled() bool {
	return c.AdminEmail != "" && c.AdminPasswordHash != ""
}

func (c *Config) DBPath() string    { return filepath.Join(c.DataDir, "hunt.db") }
func (c *Config) BoltPath() string  { return filepath.Join(c.DataDir, "sessions.bolt") }
func (c *Config) SelfieDir() string { return filepath.Join(c.DataDir, "selfies") }
