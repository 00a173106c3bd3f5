package simulate

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/takumisawano-hash/dodo-demo-sub000/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging initializes the global logger to write to stdout and to
// logFile. An empty logFile gets a timestamped name.
func SetupLogging(logFile string) (io.Closer, error) {
	if logFile == "" {
		logFile = "sync_sim_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	if err := logger.Init(logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return file, nil
}

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	os.Stdout.WriteString(`Sync Simulator
==============

Posts one synthetic day per user to a running sync service and verifies the
unified reports it returns.

Usage:
  go run ./cmd/sync-sim [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -users int
        Number of synthetic users (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Seed of the input generator (default 1)
  -replay
        Resend every batch and expect a duplicate acknowledgement
  -log string
        Log file (default: sync_sim_TIMESTAMP.log)
  -verbose
        Log every user report
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run ./cmd/sync-sim

  # Check idempotency with more users
  go run ./cmd/sync-sim -users 5000 -workers 16 -replay
`)
}
