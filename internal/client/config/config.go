// Package config loads runtime settings for the CredLink client: defaults
// first, then a JSON config file, then command-line flags, with later
// sources winning.
package config

import "time"

// Config holds runtime settings.
type Config struct {
	// APIBaseURL is the backend root, e.g. "https://api.credlink.example".
	APIBaseURL string

	// RequestTimeout bounds every remote call.
	RequestTimeout time.Duration

	// LocalDBPath is the SQLite file backing the persistence adapter.
	LocalDBPath string

	// WalletProjectID identifies the app to the wallet-connect provider.
	WalletProjectID string

	// DarkMode is the default UI theme preference.
	DarkMode bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 15 * time.Second
	c.LocalDBPath = "credlink.db"
}

// Load constructs a Config: defaults, then JSON overlay, then flags.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
