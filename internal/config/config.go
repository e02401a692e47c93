// Package config loads runtime settings from the process environment.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-provided settings.
type Config struct {
	// Hosted account service (auth + profile records).
	AccountURL string `env:"ACCOUNT_SERVICE_URL,required,notEmpty"`
	AccountKey string `env:"ACCOUNT_SERVICE_KEY,required,notEmpty"`

	// PublicURL is where browsers reach this server; the OAuth callback is
	// built from it.
	PublicURL     string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	OAuthProvider string `env:"OAUTH_PROVIDER" envDefault:"google"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// ItemIDs selects how new closet items are numbered: "counter" or "uuid".
	ItemIDs string `env:"ITEM_IDS" envDefault:"counter"`
}

// Load parses the environment. Missing required values are an error the
// caller should treat as fatal.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.AccountURL = strings.TrimRight(cfg.AccountURL, "/")
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return cfg, nil
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{
		"ACCOUNT_SERVICE_URL": c.AccountURL,
		"PUBLIC_URL":          c.PublicURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
		}
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.ItemIDs != "counter" && c.ItemIDs != "uuid" {
		return fmt.Errorf("ITEM_IDS must be counter or uuid, got %q", c.ItemIDs)
	}
	return nil
}

// CallbackURL is the OAuth redirect target.
func (c *Config) CallbackURL() string {
	return c.PublicURL + "/auth/callback"
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicURL, "https://")
}
