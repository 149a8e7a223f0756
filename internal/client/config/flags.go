package config

import (
	"flag"
	"os"
	"time"

	"github.com/credlink/credlink/internal/flagx"
)

// parseFlags overlays Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   backend base URL
//	-t int      request timeout in seconds
//	-d string   path to the local database file
//	-w string   wallet-connect project id
//
// Arguments are filtered with flagx.FilterArgs so flags owned by other
// components do not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-d", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "backend base URL")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LocalDBPath, "d", cfg.LocalDBPath, "path to local database file")
	fs.StringVar(&cfg.WalletProjectID, "w", cfg.WalletProjectID, "wallet-connect project id")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
