// Package config loads relayer client settings from a YAML file, an optional .env
// file and RELAYER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/relayer_sdk/pkg/logger"
	"github.com/R3E-Network/relayer_sdk/pkg/relayer"
	"github.com/R3E-Network/relayer_sdk/pkg/signers"
)

// Auth types accepted in configuration.
const (
	AuthNone         = ""
	AuthBearer       = "bearer"
	AuthAPIKeyHeader = "api-key-header"
	AuthAPIKeyCookie = "api-key-cookie"
)

// Config is the full client configuration.
type Config struct {
	Relayer      RelayerConfig      `yaml:"relayer"`
	Log          LogConfig          `yaml:"log"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Verification VerificationConfig `yaml:"verification"`
}

type RelayerConfig struct {
	URL                 string          `yaml:"url" env:"RELAYER_URL"`
	TimeoutSeconds      int             `yaml:"timeout_seconds" env:"RELAYER_TIMEOUT_SECONDS,strict"`
	ThrowIfNoRetryAfter bool            `yaml:"throw_if_no_retry_after" env:"RELAYER_THROW_IF_NO_RETRY_AFTER,strict"`
	UserAgent           string          `yaml:"user_agent" env:"RELAYER_USER_AGENT"`
	Auth                AuthConfig      `yaml:"auth"`
	RateLimit           RateLimitConfig `yaml:"rate_limit"`
}

type AuthConfig struct {
	Type  string `yaml:"type" env:"RELAYER_AUTH_TYPE"`
	Value string `yaml:"value" env:"RELAYER_AUTH_VALUE"`
	// Name is the header or cookie name for API key auth.
	Name string `yaml:"name" env:"RELAYER_AUTH_NAME"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" env:"RELAYER_RATE_LIMIT_RPS,strict"`
	Burst             int     `yaml:"burst" env:"RELAYER_RATE_LIMIT_BURST,strict"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"RELAYER_LOG_LEVEL"`
	Format string `yaml:"format" env:"RELAYER_LOG_FORMAT"`
}

type MetricsConfig struct {
	// Addr serves /metrics when set, e.g. ":9090".
	Addr string `yaml:"addr" env:"RELAYER_METRICS_ADDR"`
}

// VerificationConfig enables signer checks when Enabled is set. Addresses must be
// EIP-55 checksummed.
type VerificationConfig struct {
	Enabled                   bool            `yaml:"enabled"`
	GatewayChainID            uint64          `yaml:"gateway_chain_id"`
	InputVerificationContract string          `yaml:"input_verification_contract"`
	DecryptionContract        string          `yaml:"decryption_contract"`
	Coprocessors              SignerSetConfig `yaml:"coprocessors"`
	KMSSigners                SignerSetConfig `yaml:"kms_signers"`
}

type SignerSetConfig struct {
	Addresses []string `yaml:"addresses"`
	Threshold int      `yaml:"threshold"`
}

// Override adjusts a loaded configuration before it is validated, e.g. from
// command-line flags.
type Override func(*Config)

// Load reads path (skipped when empty), then .env in the working directory if present,
// then the environment, then applies overrides in order.
func Load(path string, overrides ...Override) (Config, error) {
	return load(path, []string{".env"}, overrides)
}

// LoadFiles is Load with explicit .env files. Missing .env files are ignored.
// Variables already present in the environment win over .env values.
func LoadFiles(path string, envFiles ...string) (Config, error) {
	return load(path, envFiles, nil)
}

func load(path string, envFiles []string, overrides []Override) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}
	cfg.Relayer.Auth.Type = strings.ToLower(strings.TrimSpace(cfg.Relayer.Auth.Type))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Relayer.URL) == "" {
		return errors.New("config: relayer.url is required")
	}
	if c.Relayer.TimeoutSeconds < 0 {
		return fmt.Errorf("config: relayer.timeout_seconds must not be negative, got %d", c.Relayer.TimeoutSeconds)
	}
	switch c.Relayer.Auth.Type {
	case AuthNone:
	case AuthBearer, AuthAPIKeyHeader, AuthAPIKeyCookie:
		if c.Relayer.Auth.Value == "" {
			return fmt.Errorf("config: relayer.auth.value is required for %s auth", c.Relayer.Auth.Type)
		}
	default:
		return fmt.Errorf("config: unknown relayer.auth.type %q", c.Relayer.Auth.Type)
	}
	if c.Verification.Enabled {
		if _, err := c.Verification.build(); err != nil {
			return err
		}
	}
	return nil
}

// ClientConfig maps the configuration onto relayer.Config.
func (c Config) ClientConfig() (relayer.Config, error) {
	out := relayer.Config{
		BaseURL:                  c.Relayer.URL,
		Timeout:                  time.Duration(c.Relayer.TimeoutSeconds) * time.Second,
		ThrowErrorIfNoRetryAfter: c.Relayer.ThrowIfNoRetryAfter,
		UserAgent:                c.Relayer.UserAgent,
		RateLimit: relayer.RateLimit{
			RequestsPerSecond: c.Relayer.RateLimit.RequestsPerSecond,
			Burst:             c.Relayer.RateLimit.Burst,
		},
		Logger: c.Logger("relayer"),
	}

	switch c.Relayer.Auth.Type {
	case AuthBearer:
		out.Auth = relayer.BearerToken{Token: c.Relayer.Auth.Value}
	case AuthAPIKeyHeader:
		out.Auth = relayer.APIKeyHeader{Name: c.Relayer.Auth.Name, Value: c.Relayer.Auth.Value}
	case AuthAPIKeyCookie:
		out.Auth = relayer.APIKeyCookie{Name: c.Relayer.Auth.Name, Value: c.Relayer.Auth.Value}
	}

	if c.Verification.Enabled {
		v, err := c.Verification.build()
		if err != nil {
			return relayer.Config{}, err
		}
		out.Verification = v
	}
	return out, nil
}

// Logger builds a logger for component from the log settings.
func (c Config) Logger(component string) *logger.Logger {
	return logger.New(logger.Config{
		Component: component,
		Level:     c.Log.Level,
		Format:    c.Log.Format,
	})
}

func (v VerificationConfig) build() (*relayer.Verification, error) {
	inputContract, err := signers.ParseChecksummedAddress(v.InputVerificationContract)
	if err != nil {
		return nil, fmt.Errorf("config: verification.input_verification_contract: %w", err)
	}
	decryptionContract, err := signers.ParseChecksummedAddress(v.DecryptionContract)
	if err != nil {
		return nil, fmt.Errorf("config: verification.decryption_contract: %w", err)
	}
	coprocessors, err := signers.ParseChecksummedAddresses(v.Coprocessors.Addresses)
	if err != nil {
		return nil, fmt.Errorf("config: verification.coprocessors: %w", err)
	}
	kms, err := signers.ParseChecksummedAddresses(v.KMSSigners.Addresses)
	if err != nil {
		return nil, fmt.Errorf("config: verification.kms_signers: %w", err)
	}

	out := &relayer.Verification{
		GatewayChainID:            v.GatewayChainID,
		InputVerificationContract: relayer.Address(inputContract),
		DecryptionContract:        relayer.Address(decryptionContract),
		Coprocessors:              signers.Set{Addresses: coprocessors, Threshold: v.Coprocessors.Threshold},
		KMSSigners:                signers.Set{Addresses: kms, Threshold: v.KMSSigners.Threshold},
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return out, nil
}
