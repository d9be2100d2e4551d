package config

import (
	"flag"
	"os"
	"time"

	"github.com/talenorix/candidate-portal/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the backend
//	-k string   anon API key
//	-t int      HTTP timeout in seconds
//	-r int      readiness budget in milliseconds
//	-s string   local state directory
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-t", "-r", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.BaseURL, "a", cfg.BaseURL, "base URL of the backend")
	fs.StringVar(&cfg.AnonKey, "k", cfg.AnonKey, "anon API key")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")
	readyBudget := fs.Int("r", int(cfg.ReadyTimeout.Milliseconds()), "readiness budget (in milliseconds)")
	fs.StringVar(&cfg.StateDir, "s", cfg.StateDir, "local state directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
	cfg.ReadyTimeout = time.Duration(*readyBudget) * time.Millisecond
}
