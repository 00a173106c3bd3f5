package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/internal/simulate"
)

// Default configuration constants.
const (
	defaultUsers       = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL = flag.String("url", "http://localhost:9080", "Base URL of the service")
		users   = flag.Int("users", defaultUsers, "Number of synthetic users")
		workers = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed    = flag.Uint64("seed", 1, "Seed of the input generator")
		replay  = flag.Bool("replay", false, "Resend every batch and expect a duplicate acknowledgement")
		logFile = flag.String("log", "", "Log file (default: sync_sim_TIMESTAMP.log)")
		verbose = flag.Bool("verbose", false, "Log every user report")
		help    = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	closer, err := simulate.SetupLogging(*logFile)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTestTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL: *baseURL,
		Users:   *users,
		Workers: *workers,
		Timeout: *timeout,
		Seed:    *seed,
		Replay:  *replay,
		Verbose: *verbose,
	}
	if _, err := simulate.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		cancel()
		_ = closer.Close()
		os.Exit(1)
	}
}
