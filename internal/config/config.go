package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for ck3fence, read once at process start.
type Config struct {
	Port      int
	Version   string
	Policy    PolicyConfig
	Roots     map[string]string
	Telemetry TelemetryConfig
	Auth      AuthConfig
}

// PolicyConfig carries the knobs the CORE components need: the registry
// capacity cap, the session HMAC secret for script approval (C11), and
// the path to the protected command-whitelist file (C8).
type PolicyConfig struct {
	MaxTokens          int
	SessionSecret      []byte
	WhitelistPath      string
	DefaultMode        string
}

// TelemetryConfig configures the OpenTelemetry tracer provider.
type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// AuthConfig configures the ambient AuthProviderChain — authenticating
// which session/agent is calling the tool frontend, distinct from the
// script-approval HMAC in PolicyConfig.
type AuthConfig struct {
	APIKeyHeader      string
	ServiceAccountKey string
}

// rootEnvVars maps each closed root key to the environment variable that
// supplies its host directory. One var per key, per §1's ambient config
// section.
var rootEnvVars = map[string]string{
	"repo":          "CK3FENCE_ROOT_REPO",
	"game":          "CK3FENCE_ROOT_GAME",
	"steam":         "CK3FENCE_ROOT_STEAM",
	"user_docs":     "CK3FENCE_ROOT_USER_DOCS",
	"ck3raven_data": "CK3FENCE_ROOT_CK3RAVEN_DATA",
	"vscode":        "CK3FENCE_ROOT_VSCODE",
}

// Load reads configuration from environment variables with sensible
// defaults. Root paths with no configured environment variable are
// simply absent from the resulting Roots map — NewRootMap only requires
// that configured keys be in the closed set, not that every key be set.
func Load() *Config {
	roots := make(map[string]string)
	for key, envVar := range rootEnvVars {
		if v := os.Getenv(envVar); v != "" {
			roots[key] = v
		}
	}

	return &Config{
		Port:    envInt("CK3FENCE_PORT", 8080),
		Version: envStr("CK3FENCE_VERSION", "0.1.0"),
		Policy: PolicyConfig{
			MaxTokens:     envInt("CK3FENCE_MAX_TOKENS", 10_000),
			SessionSecret: []byte(envStr("CK3FENCE_SESSION_SECRET", "")),
			WhitelistPath: envStr("CK3FENCE_WHITELIST_PATH", "policy/command_whitelist.json"),
			DefaultMode:   envStr("CK3FENCE_MODE", ""),
		},
		Roots: roots,
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", true),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "ck3fence"),
		},
		Auth: AuthConfig{
			APIKeyHeader:      envStr("AUTH_API_KEY_HEADER", "Authorization"),
			ServiceAccountKey: envStr("AUTH_SERVICE_ACCOUNT_SECRET", ""),
		},
	}
}

// ModeSource returns a resolver.ModeSource-shaped closure reading the
// process-wide mode: env var first, falling back to the configured
// default. An unset mode with no default reports ok=false, which the
// resolver turns into WA-SYS-I-001.
func (c *Config) ModeSource() func() (string, bool) {
	return func() (string, bool) {
		if v := strings.TrimSpace(os.Getenv("CK3FENCE_CURRENT_MODE")); v != "" {
			return v, true
		}
		if c.Policy.DefaultMode != "" {
			return c.Policy.DefaultMode, true
		}
		return "", false
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
