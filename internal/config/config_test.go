package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/relayer_sdk/pkg/relayer"
)

const sampleYAML = `
relayer:
  url: https://relayer.example.org
  timeout_seconds: 30
  auth:
    type: api-key-header
    value: from-file
  rate_limit:
    requests_per_second: 4
    burst: 2
log:
  level: debug
  format: json
verification:
  enabled: true
  gateway_chain_id: 55815
  input_verification_contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  decryption_contract: "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
  coprocessors:
    addresses: ["0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"]
    threshold: 1
  kms_signers:
    addresses:
      - "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
      - "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
    threshold: 2
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFiles_YAML(t *testing.T) {
	cfg, err := LoadFiles(writeFile(t, "relayer.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://relayer.example.org", cfg.Relayer.URL)
	assert.Equal(t, 30, cfg.Relayer.TimeoutSeconds)
	assert.Equal(t, AuthAPIKeyHeader, cfg.Relayer.Auth.Type)
	assert.Equal(t, 2, cfg.Relayer.RateLimit.Burst)

	client, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.Timeout)
	assert.Equal(t, relayer.APIKeyHeader{Value: "from-file"}, client.Auth)
	assert.Equal(t, 4.0, client.RateLimit.RequestsPerSecond)
	require.NotNil(t, client.Verification)
	assert.Equal(t, uint64(55815), client.Verification.GatewayChainID)
	assert.Equal(t, 2, client.Verification.KMSSigners.Threshold)
	assert.Len(t, client.Verification.KMSSigners.Addresses, 2)
	assert.Equal(t, "debug", client.Logger.GetLevel().String())
}

func TestLoadFiles_EnvOverrides(t *testing.T) {
	t.Setenv("RELAYER_URL", "http://localhost:3000")
	t.Setenv("RELAYER_TIMEOUT_SECONDS", "5")
	t.Setenv("RELAYER_THROW_IF_NO_RETRY_AFTER", "true")
	t.Setenv("RELAYER_AUTH_TYPE", "Bearer")
	t.Setenv("RELAYER_AUTH_VALUE", "env-token")

	cfg, err := LoadFiles(writeFile(t, "relayer.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Relayer.URL)
	assert.Equal(t, 5, cfg.Relayer.TimeoutSeconds)
	assert.True(t, cfg.Relayer.ThrowIfNoRetryAfter)

	client, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, relayer.BearerToken{Token: "env-token"}, client.Auth)
	assert.True(t, client.ThrowErrorIfNoRetryAfter)
}

func TestLoadFiles_DotEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "RELAYER_URL=http://dotenv:8080\nRELAYER_RATE_LIMIT_RPS=2.5\n")
	// t.Setenv registers cleanup so variables set by godotenv are restored.
	t.Setenv("RELAYER_URL", "")
	t.Setenv("RELAYER_RATE_LIMIT_RPS", "")
	os.Unsetenv("RELAYER_URL")
	os.Unsetenv("RELAYER_RATE_LIMIT_RPS")

	cfg, err := LoadFiles("", envFile, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "http://dotenv:8080", cfg.Relayer.URL)
	assert.Equal(t, 2.5, cfg.Relayer.RateLimit.RequestsPerSecond)
}

func TestLoad_OverridesApplyBeforeValidation(t *testing.T) {
	t.Setenv("RELAYER_URL", "")
	os.Unsetenv("RELAYER_URL")

	_, err := Load("")
	require.Error(t, err)

	cfg, err := Load("", func(c *Config) {
		c.Relayer.URL = "http://flag:9000"
	}, func(c *Config) {
		c.Relayer.TimeoutSeconds = 7
	})
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9000", cfg.Relayer.URL)
	assert.Equal(t, 7, cfg.Relayer.TimeoutSeconds)
}

func TestLoad_OverrideWinsOverEnvironment(t *testing.T) {
	t.Setenv("RELAYER_URL", "http://env:3000")

	cfg, err := Load("", func(c *Config) { c.Relayer.URL = "http://flag:9000" })
	require.NoError(t, err)
	assert.Equal(t, "http://flag:9000", cfg.Relayer.URL)
	assert.Equal(t, "http://env:3000", os.Getenv("RELAYER_URL"))
}

func TestLoadFiles_InvalidEnvValue(t *testing.T) {
	t.Setenv("RELAYER_URL", "http://localhost")
	t.Setenv("RELAYER_TIMEOUT_SECONDS", "soon")

	_, err := LoadFiles("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"missing url", func(c *Config) { c.Relayer.URL = "" }, true},
		{"negative timeout", func(c *Config) { c.Relayer.TimeoutSeconds = -1 }, true},
		{"unknown auth", func(c *Config) { c.Relayer.Auth.Type = "oauth" }, true},
		{"auth without value", func(c *Config) { c.Relayer.Auth = AuthConfig{Type: AuthBearer} }, true},
		{"lowercase address", func(c *Config) {
			c.Verification.Enabled = true
			c.Verification.GatewayChainID = 1
			c.Verification.InputVerificationContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Relayer: RelayerConfig{URL: "http://relayer"}}
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
