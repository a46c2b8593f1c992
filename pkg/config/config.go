// Package config loads the backend configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harveywai/thermopanel/pkg/security"
)

// User is a seed account created when the users table is empty.
type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// RateLimit configures the per-client token bucket used while DoS
// protection is enabled.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the backend configuration.
type Config struct {
	Listen          string            `yaml:"listen"`
	DatabasePath    string            `yaml:"database_path"`
	JWTSecret       string            `yaml:"jwt_secret"`
	SessionTTL      time.Duration     `yaml:"session_ttl"`
	SecureCookie    bool              `yaml:"secure_cookie"`
	LogLevel        string            `yaml:"log_level"`
	AllowedIPs      []string          `yaml:"allowed_ips"`
	TrustedProxies  []string          `yaml:"trusted_proxies"`
	RateLimit       RateLimit         `yaml:"rate_limit"`
	Security        security.Settings `yaml:"security"`
	Users           []User            `yaml:"users"`
	AlertWebhookURL string            `yaml:"alert_webhook_url"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:       ":5000",
		DatabasePath: "thermopanel.db",
		SessionTTL:   24 * time.Hour,
		LogLevel:     "info",
		AllowedIPs:   []string{"127.0.0.1", "::1"},
		RateLimit: RateLimit{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Security: security.Defaults(),
		Users: []User{
			{Username: "user1", Password: "password123", Role: "admin"},
			{Username: "attacker", Password: "hackerpass", Role: "unauthorized"},
		},
	}
}

// Load reads the YAML file at path on top of the defaults, applies the
// THERMOPANEL_* environment overrides and validates the result. An empty path
// skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("error reading config file '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("error parsing YAML from '%s': %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("THERMOPANEL_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("THERMOPANEL_DB"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("THERMOPANEL_JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("THERMOPANEL_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("THERMOPANEL_ALERT_WEBHOOK"); v != "" {
		c.AlertWebhookURL = v
	}
	if v := os.Getenv("THERMOPANEL_ALLOWED_IPS"); v != "" {
		c.AllowedIPs = splitList(v)
	}
	if v := os.Getenv("THERMOPANEL_TRUSTED_PROXIES"); v != "" {
		c.TrustedProxies = splitList(v)
	}
	if v := os.Getenv("THERMOPANEL_SECURE_COOKIE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid THERMOPANEL_SECURE_COOKIE %q: %w", v, err)
		}
		c.SecureCookie = b
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database path is required")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %s", c.SessionTTL)
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate_limit requires positive requests_per_second and burst")
	}
	// client IPs come from X-Forwarded-For only when the peer is one of these
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("trusted_proxies: %q is neither an IP nor a CIDR", p)
			}
		}
	}
	for i, u := range c.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
