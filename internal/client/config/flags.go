package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/notekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags. Only
// the flags handled here are passed to the parser (see flagx.FilterArgs).
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-b", "-d", "-l", "-o", "-p", "-r", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "backend mode (memory or postgres)")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "Postgres DSN")
	fs.StringVar(&cfg.LocalDBPath, "l", cfg.LocalDBPath, "local database file")
	fs.StringVar(&cfg.DownloadDir, "o", cfg.DownloadDir, "download directory")
	fs.StringVar(&cfg.PreviewAddr, "p", cfg.PreviewAddr, "preview server address")
	fs.IntVar(&cfg.RetryAttempts, "r", cfg.RetryAttempts, "download attempts")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (json, text or zap)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
