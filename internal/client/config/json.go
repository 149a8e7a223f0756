package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/credlink/credlink/internal/flagx"
	"github.com/credlink/credlink/internal/timex"
)

// jsonConfig is the DTO for the JSON config file. timex.Duration lets the
// timeout be written as "15s" or as integer nanoseconds.
type jsonConfig struct {
	APIBaseURL      string         `json:"api_base_url"`
	RequestTimeout  timex.Duration `json:"request_timeout"`
	LocalDBPath     string         `json:"local_db_path"`
	WalletProjectID string         `json:"wallet_project_id"`
	DarkMode        bool           `json:"dark_mode"`
}

// parseJSON overlays cfg with values from the file named by -c/-config.
// Missing flag means no JSON overlay. Read or decode failures panic; the
// caller may recover.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	if jc.LocalDBPath != "" {
		cfg.LocalDBPath = jc.LocalDBPath
	}
	if jc.WalletProjectID != "" {
		cfg.WalletProjectID = jc.WalletProjectID
	}
	cfg.DarkMode = jc.DarkMode
}
